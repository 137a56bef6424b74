package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
)

// NewProgress returns a progress callback that draws a bar on w as records
// are processed. The bar is created on the first call, once the total is known.
func NewProgress(w io.Writer, description string) func(done, total int) {
	if w == nil {
		w = os.Stderr
	}

	var bar *progressbar.ProgressBar
	last := 0
	return func(done, total int) {
		if bar == nil {
			bar = newProgressBar(w, description, total)
		}
		if done <= last {
			return
		}
		if err := bar.Add(done - last); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
		last = done
	}
}

func newProgressBar(w io.Writer, description string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

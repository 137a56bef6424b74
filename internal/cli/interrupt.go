package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ErrInterrupted is returned by Wait when the process received SIGINT or SIGTERM.
var ErrInterrupted = errors.New("interrupted")

// InterruptHandler turns an interrupt signal into an error with a friendly
// message, for use as one member of an errgroup.
type InterruptHandler struct {
	writer      io.Writer
	signals     chan os.Signal
	message     string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler that prints message
// when interrupted.
func NewInterruptHandler(writer io.Writer, message string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer:  writer,
		message: message,
		signals: make(chan os.Signal, 1),
	}
}

// Wait blocks until an interrupt arrives or ctx is done. It returns
// ErrInterrupted for a signal and nil when ctx ends first.
func (h *InterruptHandler) Wait(ctx context.Context) error {
	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(h.signals)

	select {
	case <-ctx.Done():
		return nil
	case sig := <-h.signals:
		h.mu.Lock()
		h.interrupted = true
		h.mu.Unlock()

		slog.Debug("received signal", "signal", sig.String())
		if _, err := fmt.Fprintln(h.writer, "\n"+FormatWarning(h.message)); err != nil {
			// Best effort - we're shutting down anyway
			slog.Warn("failed to write interrupt message", "error", err)
		}
		return ErrInterrupted
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

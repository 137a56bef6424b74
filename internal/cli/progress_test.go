package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProgress(t *testing.T) {
	output := &syncBuffer{}
	progress := NewProgress(output, "Importing")

	for done := 1; done <= 4; done++ {
		progress(done, 4)
	}
	// Repeated or stale counts are ignored.
	progress(4, 4)

	assert.Contains(t, output.String(), "Importing")
	assert.Contains(t, output.String(), "4/4")
}

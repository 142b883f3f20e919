package progressreporter

import (
	"fmt"
	"io"
	"sync"
)

var _ Display = (*WriterDisplay)(nil)

// WriterDisplay renders status changes as lines on a writer.
type WriterDisplay struct {
	mu      sync.Mutex
	w       io.Writer
	busy    bool
	message string
}

// NewWriterDisplay returns a Display writing to w.
func NewWriterDisplay(w io.Writer) *WriterDisplay { return &WriterDisplay{w: w} }

func (d *WriterDisplay) SetBusy(busy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = busy
	cursor := "arrow"
	if busy {
		cursor = "busy"
	}
	fmt.Fprintf(d.w, "cursor: %s\n", cursor)
}

func (d *WriterDisplay) ShowMessage(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.message = msg
	if msg != "" {
		fmt.Fprintf(d.w, "status: %s\n", msg)
	}
}

// Busy reports the last busy flag shown.
func (d *WriterDisplay) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Message reports the last message shown.
func (d *WriterDisplay) Message() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.message
}

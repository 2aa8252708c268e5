package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/itohio/goadc/pkg/sample"
)

// Text writes one human readable line per sample: "<RFC3339 time> <raw> <volts>V".
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText creates a text sink over w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Publish writes s.
func (t *Text) Publish(_ context.Context, s sample.Sample) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := fmt.Fprintf(t.w, "%s %4d %.3fV\n", s.Timestamp.Format(time.RFC3339Nano), s.Raw, s.Volts)
	if err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (t *Text) Close() error {
	return nil
}

// Package trace provides a minimal tracer for pipeline stage events.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event is one traced pipeline occurrence.
type Event struct {
	Time   time.Time
	Kernel string
	Stage  string
	Dur    time.Duration
	Msg    string
}

// Tracer consumes trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Enabled() bool
}

type ctxKey struct{}

// FromContext extracts the Tracer from context, or Nop when absent.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches a Tracer to context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// Nop is the disabled tracer.
var Nop Tracer = nopTracer{}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Enabled() bool { return false }

// streamTracer writes one text line per event.
type streamTracer struct {
	mu    sync.Mutex
	w     io.Writer
	close func() error
}

// NewStream returns a tracer writing text lines to w.
func NewStream(w io.Writer) Tracer {
	return &streamTracer{w: w}
}

// Open creates a file-backed stream tracer ("-" means stderr).
func Open(path string) (Tracer, error) {
	if path == "" || path == "-" {
		return NewStream(os.Stderr), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return &streamTracer{w: f, close: f.Close}, nil
}

func (t *streamTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("%s %s %s", ts.Format(time.RFC3339Nano), ev.Kernel, ev.Stage)
	if ev.Dur > 0 {
		line += fmt.Sprintf(" %.2fms", float64(ev.Dur)/float64(time.Millisecond))
	}
	if ev.Msg != "" {
		line += " " + ev.Msg
	}
	_, _ = fmt.Fprintln(t.w, line)
}

func (t *streamTracer) Flush() error { return nil }

func (t *streamTracer) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

func (t *streamTracer) Enabled() bool { return true }

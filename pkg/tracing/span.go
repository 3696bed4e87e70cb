// Package tracing records a tree of timed spans carried through contexts.
// A run opens one root span; each step under it opens a child. The finished
// tree is written to slog, one record per span.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

type Span struct {
	Name    string
	TraceID string

	mu       sync.Mutex
	start    time.Time
	duration time.Duration
	err      error
	attrs    []any
	children []*Span
}

// Record is one finished span flattened out of a tree.
type Record struct {
	Name     string
	Depth    int
	Duration time.Duration
	Err      error
}

// StartTrace opens a root span for traceID.
func StartTrace(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, start: time.Now()}
	return context.WithValue(ctx, contextKey{}, span), span
}

// Start opens a child of the span in ctx. Without one it opens a root span
// with an empty trace ID.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	if parent == nil {
		return StartTrace(ctx, name, "")
	}
	child := &Span{Name: name, TraceID: parent.TraceID, start: time.Now()}
	parent.mu.Lock()
	parent.children = append(parent.children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End closes the span; err, if non-nil, marks it failed.
func (s *Span) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = time.Since(s.start)
	s.err = err
}

// SetAttr attaches a key-value pair logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Records flattens the tree depth first, children in start order.
func (s *Span) Records() []Record {
	var out []Record
	s.walk(0, func(span *Span, depth int) {
		span.mu.Lock()
		out = append(out, Record{Name: span.Name, Depth: depth, Duration: span.duration, Err: span.err})
		span.mu.Unlock()
	})
	return out
}

// Log writes one record per span to logger.
func (s *Span) Log(logger *slog.Logger) {
	s.walk(0, func(span *Span, depth int) {
		span.mu.Lock()
		defer span.mu.Unlock()
		attrs := []any{
			"trace_id", span.TraceID,
			"span", span.Name,
			"depth", depth,
			"duration_ms", span.duration.Milliseconds(),
		}
		if span.err != nil {
			attrs = append(attrs, "error", span.err)
		}
		attrs = append(attrs, span.attrs...)
		logger.Info("span", attrs...)
	})
}

func (s *Span) walk(depth int, fn func(*Span, int)) {
	s.mu.Lock()
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	fn(s, depth)
	for _, child := range children {
		child.walk(depth+1, fn)
	}
}

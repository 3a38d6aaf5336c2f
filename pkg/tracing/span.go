// Package tracing provides lightweight in-process spans for timing the
// stages of a search request (query embedding, index lookups, fusion).
// Spans form parent-child trees carried through contexts and are emitted
// as structured slog records when the root span finishes.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

// Span is a timed stage of a request.
type Span struct {
	Name    string
	TraceID string
	Start   time.Time
	Elapsed time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    []any
}

// Start creates a root span for a trace and stores it in the context.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// Child creates a span nested under the one in ctx. If ctx carries no
// span, the child becomes a root of its own.
func Child(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// Attr records a key-value pair on the span.
func (s *Span) Attr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End stops the span's clock.
func (s *Span) End() {
	s.Elapsed = time.Since(s.Start)
}

// Emit logs the span and its descendants.
func (s *Span) Emit() {
	s.emit(0)
}

func (s *Span) emit(depth int) {
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Elapsed.Milliseconds(),
		"depth", depth,
	}
	s.mu.Lock()
	attrs = append(attrs, s.attrs...)
	children := s.children
	s.mu.Unlock()
	slog.Info("span", attrs...)
	for _, c := range children {
		c.emit(depth + 1)
	}
}

package extension

import (
	"context"

	"github.com/seelebot/cmdbridge/internal/segment"
)

// Result is one unit of handler output. Chain carries structured content;
// Message is a generic plain-text fallback used when no chain is built.
type Result struct {
	Chain   []segment.Segment
	Message string
}

// TextResult builds a Result holding a single text segment.
func TextResult(text string) *Result {
	return &Result{Chain: []segment.Segment{segment.Text(text)}}
}

// SingleHandler produces at most one result per invocation.
type SingleHandler interface {
	Handle(ctx context.Context, ev Event) (*Result, error)
}

// StreamHandler produces zero or more results per invocation, delivered
// through emit in production order.
type StreamHandler interface {
	HandleStream(ctx context.Context, ev Event, emit func(*Result) error) error
}

// HandlerMeta is one registry entry: the dispatch declarations plus the
// invocable handler, which must implement SingleHandler or StreamHandler.
type HandlerMeta struct {
	ModulePath  string
	Description string
	Filters     []Filter
	Handler     any
}

package extension

import (
	"context"

	"github.com/seelebot/cmdbridge/internal/segment"
)

// Event is one inbound message being handled. It exposes the caller identity,
// the textual content, the structured message body, and the reply channel.
// Setters mutate the live event the host is dispatching.
type Event interface {
	// SenderID identifies the user the message came from.
	SenderID() string
	// SelfID identifies the bot account on the transport.
	SelfID() string
	// Platform names the transport the event arrived on, e.g. "onebot".
	Platform() string

	MessageText() string
	SetMessageText(text string)

	// MessageChain returns the structured message body, nil when the
	// transport delivered plain text only.
	MessageChain() []segment.Segment
	// SetMessageChain replaces the structured body. Transports that cannot
	// represent one return an error; callers treat that as non-fatal.
	SetMessageChain(chain []segment.Segment) error

	// Send delivers a result back on the event's reply channel.
	Send(ctx context.Context, res *Result) error
}

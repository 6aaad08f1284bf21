package bridge

import "github.com/seelebot/cmdbridge/internal/extension"

// botIdentityEvent substitutes the caller identity of an event while
// delegating every other read and write to the wrapped event. Because the
// embedded interface value is the live event, mutations made through the
// wrapper land on the original.
type botIdentityEvent struct {
	extension.Event
	botUserID string
}

// WrapBotIdentity returns ev with SenderID overridden to botUserID.
func WrapBotIdentity(ev extension.Event, botUserID string) extension.Event {
	return &botIdentityEvent{Event: ev, botUserID: botUserID}
}

func (e *botIdentityEvent) SenderID() string {
	return e.botUserID
}

// Unwrap returns the original event beneath an identity substitution, or ev
// itself when it is not wrapped.
func Unwrap(ev extension.Event) extension.Event {
	if wrapped, ok := ev.(*botIdentityEvent); ok {
		return wrapped.Event
	}
	return ev
}

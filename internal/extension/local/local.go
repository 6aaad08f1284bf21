// Package local provides an in-process host with a small sample extension.
// It backs the serve command in development and doubles as a fixture for
// exercising the bridge end to end without a real chatbot runtime.
package local

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/seelebot/cmdbridge/internal/extension"
	"github.com/seelebot/cmdbridge/internal/segment"
)

const (
	// ExtensionName is the sample extension's host-facing name.
	ExtensionName = "playground"
	// ModulePath attributes the sample handlers in the registry.
	ModulePath = "github.com/seelebot/cmdbridge/internal/extension/local"
)

// Host is a static in-process extension catalogue.
type Host struct {
	extensions []extension.Extension
}

// NewHost creates a host listing the given extensions.
func NewHost(extensions ...extension.Extension) *Host {
	return &Host{extensions: extensions}
}

func (h *Host) Extensions(ctx context.Context) ([]extension.Extension, error) {
	out := make([]extension.Extension, len(h.extensions))
	copy(out, h.extensions)
	return out, nil
}

// NewPlaygroundHost builds a host carrying the sample extension and registers
// its handlers.
func NewPlaygroundHost(registry *extension.HandlerRegistry) (*Host, error) {
	entries := []*extension.HandlerMeta{
		{
			ModulePath:  ModulePath,
			Description: "echo the argument text back",
			Filters: []extension.Filter{
				extension.CommandFilter{Name: "echo", Aliases: []string{"say"}},
			},
			Handler: echoHandler{},
		},
		{
			ModulePath:  ModulePath,
			Description: "roll a six-sided die",
			Filters: []extension.Filter{
				extension.CommandFilter{Name: "roll"},
			},
			Handler: rollHandler{},
		},
		{
			ModulePath:  ModulePath,
			Description: "shut the playground down",
			Filters: []extension.Filter{
				extension.CommandFilter{Name: "shutdown"},
				extension.PermissionFilter{},
			},
			Handler: echoHandler{},
		},
	}
	for _, meta := range entries {
		if err := registry.Register(meta); err != nil {
			return nil, err
		}
	}
	return NewHost(extension.Extension{
		Name:       ExtensionName,
		ModulePath: ModulePath,
		Activated:  true,
		Instance:   struct{}{},
	}), nil
}

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, ev extension.Event) (*extension.Result, error) {
	_, args, _ := strings.Cut(ev.MessageText(), " ")
	if args == "" {
		args = "(nothing to echo)"
	}
	return extension.TextResult(args), nil
}

type rollHandler struct{}

func (rollHandler) HandleStream(ctx context.Context, ev extension.Event, emit func(*extension.Result) error) error {
	return emit(extension.TextResult(fmt.Sprintf("rolled a %d", 1+rand.Intn(6))))
}

// EventRegistrar is the bridge's session-to-event binding surface.
type EventRegistrar interface {
	Register(sessionID string, ev extension.Event)
	Event(sessionID string) (extension.Event, bool)
}

// SessionBinder backfills a synthetic inbound event for tool sessions that
// reach the gateway without one. A chatbot host registers its live events
// before handing a turn to the agent; in serve mode the playground stands in
// for it.
type SessionBinder struct {
	registrar EventRegistrar
	selfID    string
}

// NewSessionBinder creates a binder registering synthetic events attributed
// to selfID as the bot account.
func NewSessionBinder(registrar EventRegistrar, selfID string) *SessionBinder {
	return &SessionBinder{registrar: registrar, selfID: selfID}
}

// Bind registers a synthetic event for sessionID unless one is already bound.
// Blank sender and platform fall back to local defaults.
func (b *SessionBinder) Bind(sessionID, senderID, platform string) {
	if b.registrar == nil || strings.TrimSpace(sessionID) == "" {
		return
	}
	if _, ok := b.registrar.Event(sessionID); ok {
		return
	}
	if strings.TrimSpace(senderID) == "" {
		senderID = "local-user"
	}
	if strings.TrimSpace(platform) == "" {
		platform = "onebot"
	}
	b.registrar.Register(sessionID, NewEvent(senderID, b.selfID, platform, ""))
}

// Event is an in-memory implementation of extension.Event. Sends are captured
// for inspection.
type Event struct {
	sender   string
	selfID   string
	platform string

	mu    sync.Mutex
	text  string
	chain []segment.Segment
	sent  []*extension.Result
}

// NewEvent creates an event attributed to sender on platform.
func NewEvent(sender, selfID, platform, text string) *Event {
	return &Event{sender: sender, selfID: selfID, platform: platform, text: text}
}

func (e *Event) SenderID() string { return e.sender }
func (e *Event) SelfID() string   { return e.selfID }
func (e *Event) Platform() string { return e.platform }

func (e *Event) MessageText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

func (e *Event) SetMessageText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

func (e *Event) MessageChain() []segment.Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chain
}

func (e *Event) SetMessageChain(chain []segment.Segment) error {
	e.mu.Lock()
	e.chain = chain
	e.mu.Unlock()
	return nil
}

func (e *Event) Send(ctx context.Context, res *extension.Result) error {
	e.mu.Lock()
	e.sent = append(e.sent, res)
	e.mu.Unlock()
	return nil
}

// Sent returns everything delivered through the event so far.
func (e *Event) Sent() []*extension.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*extension.Result, len(e.sent))
	copy(out, e.sent)
	return out
}

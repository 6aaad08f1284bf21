package bridge

import (
	"strings"
	"sync"

	"github.com/seelebot/cmdbridge/internal/extension"
)

// EventStore tracks in-flight inbound events by session ID so tool calls made
// during an LLM turn can reach the event that started the turn. The host
// registers the event before handing control to the agent and releases it
// when the turn ends; at most one invocation runs per event.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]extension.Event
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{events: map[string]extension.Event{}}
}

// Register binds an event to a session ID for the duration of one turn.
func (s *EventStore) Register(sessionID string, ev extension.Event) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || ev == nil {
		return
	}
	s.mu.Lock()
	s.events[sessionID] = ev
	s.mu.Unlock()
}

// Release drops the binding for a session ID.
func (s *EventStore) Release(sessionID string) {
	s.mu.Lock()
	delete(s.events, strings.TrimSpace(sessionID))
	s.mu.Unlock()
}

// Event returns the in-flight event bound to sessionID.
func (s *EventStore) Event(sessionID string) (extension.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[strings.TrimSpace(sessionID)]
	return ev, ok
}

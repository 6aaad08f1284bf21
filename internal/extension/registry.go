package extension

import (
	"fmt"
	"sync"
)

// HandlerRegistry is the process-wide list of registered command handlers.
// The host appends entries as plugins load; the bridge scans it when
// rebuilding its index. It must be created via NewHandlerRegistry and passed
// explicitly to components that need it.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers []*HandlerMeta
}

// NewHandlerRegistry creates an empty HandlerRegistry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register appends a handler entry. The handler must implement SingleHandler
// or StreamHandler and carry a module path for extension attribution.
func (r *HandlerRegistry) Register(meta *HandlerMeta) error {
	if meta == nil {
		return fmt.Errorf("handler meta is nil")
	}
	if meta.ModulePath == "" {
		return fmt.Errorf("handler module path is required")
	}
	switch meta.Handler.(type) {
	case SingleHandler, StreamHandler:
	default:
		return fmt.Errorf("handler must implement SingleHandler or StreamHandler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, meta)
	return nil
}

// MustRegister calls Register and panics on error.
func (r *HandlerRegistry) MustRegister(meta *HandlerMeta) {
	if err := r.Register(meta); err != nil {
		panic(err)
	}
}

// Handlers returns a snapshot of all registered entries in registration order.
func (r *HandlerRegistry) Handlers() []*HandlerMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*HandlerMeta, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Len reports the number of registered entries.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Package extension defines the contracts the bridge needs from the hosting
// chatbot runtime: the plugin catalogue, the handler registry with its filter
// declarations, and the inbound message event abstraction.
package extension

import "context"

// Extension describes one dynamically loaded plugin known to the host.
type Extension struct {
	// Name is the human-facing plugin name, unique across the host.
	Name string
	// ModulePath identifies the Go package the plugin's handlers live in.
	// Handlers carry the same identifier, which is how they are attributed
	// to their owning extension.
	ModulePath string
	// Activated reports whether the host currently dispatches to the plugin.
	Activated bool
	// Instance is the plugin's underlying object, opaque to the bridge.
	Instance any
}

// Host enumerates the extensions currently loaded by the runtime.
type Host interface {
	Extensions(ctx context.Context) ([]Extension, error)
}

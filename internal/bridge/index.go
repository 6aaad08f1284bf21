// Package bridge implements the command resolution and safe re-invocation
// engine: it indexes the handlers contributed by loaded extensions, gates
// execution by policy, synthesizes inbound messages for re-invocation,
// captures handler output, and restores event state afterwards.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/seelebot/cmdbridge/internal/extension"
)

// SelfExtensionName is the name the bridge registers its own admin commands
// under. It is always excluded from indexing.
const SelfExtensionName = "cmdbridge"

const noDescription = "no description"

// HandlerRecord is one indexed command: the canonical name, its metadata, and
// the invocable handler. Records are immutable between rebuilds.
type HandlerRecord struct {
	Command     string
	Description string
	Extension   string
	Aliases     []string
	Admin       bool
	Handler     any
	ModulePath  string
}

// Index maps canonical command names to handler records, with a secondary
// alias index. Rebuild replaces the whole snapshot in one swap; readers see
// either the old or the fully rebuilt index, never a partial one.
type Index struct {
	host     extension.Host
	registry *extension.HandlerRegistry
	skip     map[string]struct{}
	logger   *slog.Logger

	mu      sync.RWMutex
	records map[string]HandlerRecord
	aliases map[string]string
}

// NewIndex creates an index over the given host and handler registry.
// skipExtensions extends the built-in exclusion set (the bridge itself).
func NewIndex(log *slog.Logger, host extension.Host, registry *extension.HandlerRegistry, skipExtensions []string) *Index {
	if log == nil {
		log = slog.Default()
	}
	skip := map[string]struct{}{
		SelfExtensionName: {},
	}
	for _, name := range skipExtensions {
		name = strings.TrimSpace(name)
		if name != "" {
			skip[name] = struct{}{}
		}
	}
	return &Index{
		host:     host,
		registry: registry,
		skip:     skip,
		logger:   log.With(slog.String("component", "handler_index")),
		records:  map[string]HandlerRecord{},
		aliases:  map[string]string{},
	}
}

// Rebuild re-scans all active extensions and publishes a fresh snapshot.
// An extension enumeration failure leaves the index empty; the next query
// retries via the lazy rebuild path.
func (i *Index) Rebuild(ctx context.Context) error {
	records := map[string]HandlerRecord{}
	aliases := map[string]string{}

	exts, err := i.host.Extensions(ctx)
	if err != nil {
		i.logger.Error("list extensions failed", slog.Any("error", err))
		i.swap(records, aliases)
		return fmt.Errorf("list extensions: %w", err)
	}

	// One pass over extensions: module path -> owning extension.
	moduleToExt := make(map[string]extension.Extension, len(exts))
	for _, ext := range exts {
		if !ext.Activated || ext.ModulePath == "" {
			continue
		}
		if _, skip := i.skip[ext.Name]; skip {
			continue
		}
		moduleToExt[ext.ModulePath] = ext
	}

	// One pass over the handler registry with constant-time extension lookup.
	for _, meta := range i.registry.Handlers() {
		ext, ok := moduleToExt[meta.ModulePath]
		if !ok {
			continue
		}

		var name string
		var cmdAliases []string
		admin := false
		for _, f := range meta.Filters {
			switch filter := f.(type) {
			case extension.CommandFilter:
				name = filter.Name
				cmdAliases = filter.Aliases
			case extension.GroupFilter:
				name = filter.Group
			case extension.PermissionFilter:
				admin = true
			}
		}
		if name == "" {
			continue
		}

		name = strings.TrimPrefix(name, "/")
		desc := meta.Description
		if desc == "" {
			desc = noDescription
		}

		// Duplicate canonical names: last registered wins.
		records[name] = HandlerRecord{
			Command:     name,
			Description: desc,
			Extension:   ext.Name,
			Aliases:     cmdAliases,
			Admin:       admin,
			Handler:     meta.Handler,
			ModulePath:  meta.ModulePath,
		}
		for _, alias := range cmdAliases {
			aliases[strings.TrimPrefix(alias, "/")] = name
		}
	}

	i.swap(records, aliases)
	i.logger.Info("handler index rebuilt",
		slog.Int("commands", len(records)),
		slog.Int("aliases", len(aliases)))
	return nil
}

func (i *Index) swap(records map[string]HandlerRecord, aliases map[string]string) {
	i.mu.Lock()
	i.records = records
	i.aliases = aliases
	i.mu.Unlock()
}

// ensure triggers a rebuild when the index is empty. Rebuild errors are
// already logged; queries degrade to not-found.
func (i *Index) ensure(ctx context.Context) {
	i.mu.RLock()
	empty := len(i.records) == 0
	i.mu.RUnlock()
	if empty {
		_ = i.Rebuild(ctx)
	}
}

// Canonical strips the command prefix and resolves aliases to the canonical
// command name. Unknown names pass through unchanged.
func (i *Index) Canonical(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	i.mu.RLock()
	defer i.mu.RUnlock()
	if canonical, ok := i.aliases[name]; ok {
		return canonical
	}
	return name
}

// Resolve looks up the handler record for a command name or alias,
// lazily rebuilding an empty index first.
func (i *Index) Resolve(ctx context.Context, name string) (HandlerRecord, bool) {
	i.ensure(ctx)
	canonical := i.Canonical(name)
	i.mu.RLock()
	defer i.mu.RUnlock()
	rec, ok := i.records[canonical]
	return rec, ok
}

// Records returns the current snapshot sorted by canonical name, lazily
// rebuilding an empty index first.
func (i *Index) Records(ctx context.Context) []HandlerRecord {
	i.ensure(ctx)
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]HandlerRecord, 0, len(i.records))
	for _, rec := range i.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Command < out[b].Command })
	return out
}

// Len reports the number of indexed commands without triggering a rebuild.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

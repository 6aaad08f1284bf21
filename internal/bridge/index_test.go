package bridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/seelebot/cmdbridge/internal/extension"
	"github.com/seelebot/cmdbridge/internal/segment"
)

// --- shared fakes for the bridge package tests ---

type fakeHost struct {
	mu    sync.Mutex
	exts  []extension.Extension
	err   error
	calls int
}

func (h *fakeHost) Extensions(ctx context.Context) ([]extension.Extension, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	out := make([]extension.Extension, len(h.exts))
	copy(out, h.exts)
	return out, nil
}

type singleFunc func(ctx context.Context, ev extension.Event) (*extension.Result, error)

func (f singleFunc) Handle(ctx context.Context, ev extension.Event) (*extension.Result, error) {
	return f(ctx, ev)
}

type streamFunc func(ctx context.Context, ev extension.Event, emit func(*extension.Result) error) error

func (f streamFunc) HandleStream(ctx context.Context, ev extension.Event, emit func(*extension.Result) error) error {
	return f(ctx, ev, emit)
}

var noopHandler = singleFunc(func(ctx context.Context, ev extension.Event) (*extension.Result, error) {
	return nil, nil
})

type fakeEvent struct {
	sender   string
	self     string
	platform string
	text     string
	chain    []segment.Segment
	chainErr error
	sendErr  error
	sent     []*extension.Result
}

func (e *fakeEvent) SenderID() string                { return e.sender }
func (e *fakeEvent) SelfID() string                  { return e.self }
func (e *fakeEvent) Platform() string                { return e.platform }
func (e *fakeEvent) MessageText() string             { return e.text }
func (e *fakeEvent) SetMessageText(text string)      { e.text = text }
func (e *fakeEvent) MessageChain() []segment.Segment { return e.chain }

func (e *fakeEvent) SetMessageChain(chain []segment.Segment) error {
	if e.chainErr != nil {
		return e.chainErr
	}
	e.chain = chain
	return nil
}

func (e *fakeEvent) Send(ctx context.Context, res *extension.Result) error {
	if e.sendErr != nil {
		return e.sendErr
	}
	e.sent = append(e.sent, res)
	return nil
}

func commandMeta(module, name string, aliases []string, admin bool) *extension.HandlerMeta {
	filters := []extension.Filter{
		extension.CommandFilter{Name: name, Aliases: aliases},
	}
	if admin {
		filters = append(filters, extension.PermissionFilter{})
	}
	return &extension.HandlerMeta{
		ModulePath:  module,
		Description: "handler for " + name,
		Filters:     filters,
		Handler:     noopHandler,
	}
}

func newTestIndex(t *testing.T, host *fakeHost, metas ...*extension.HandlerMeta) *Index {
	t.Helper()
	registry := extension.NewHandlerRegistry()
	for _, meta := range metas {
		if err := registry.Register(meta); err != nil {
			t.Fatalf("register handler: %v", err)
		}
	}
	return NewIndex(nil, host, registry, nil)
}

// --- tests ---

func TestIndexRebuildIndexesActiveExtensions(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "fishing", ModulePath: "mod/fishing", Activated: true},
		{Name: "dormant", ModulePath: "mod/dormant", Activated: false},
	}}
	index := newTestIndex(t, host,
		commandMeta("mod/fishing", "/fish", []string{"/angle"}, false),
		commandMeta("mod/dormant", "sleep", nil, false),
	)

	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if index.Len() != 1 {
		t.Fatalf("expected 1 command indexed, got %d", index.Len())
	}

	rec, ok := index.Resolve(context.Background(), "fish")
	if !ok {
		t.Fatal("fish should resolve")
	}
	if rec.Extension != "fishing" {
		t.Errorf("extension = %q, want fishing", rec.Extension)
	}
	if rec.Command != "fish" {
		t.Errorf("command = %q, want fish (prefix stripped)", rec.Command)
	}

	if _, ok := index.Resolve(context.Background(), "sleep"); ok {
		t.Error("commands of inactive extensions must not be indexed")
	}
}

func TestIndexResolveAlias(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "fishing", ModulePath: "mod/fishing", Activated: true},
	}}
	index := newTestIndex(t, host, commandMeta("mod/fishing", "fish", []string{"/angle", "cast"}, false))
	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	for _, name := range []string{"angle", "/angle", "cast", "/fish"} {
		rec, ok := index.Resolve(context.Background(), name)
		if !ok {
			t.Fatalf("%q should resolve", name)
		}
		if rec.Command != "fish" {
			t.Errorf("resolve(%q).Command = %q, want fish", name, rec.Command)
		}
	}
}

func TestIndexSkipsExcludedExtensions(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: SelfExtensionName, ModulePath: "mod/self", Activated: true},
		{Name: "blocked", ModulePath: "mod/blocked", Activated: true},
		{Name: "kept", ModulePath: "mod/kept", Activated: true},
	}}
	registry := extension.NewHandlerRegistry()
	for _, meta := range []*extension.HandlerMeta{
		commandMeta("mod/self", "refresh", nil, false),
		commandMeta("mod/blocked", "spam", nil, false),
		commandMeta("mod/kept", "keep", nil, false),
	} {
		if err := registry.Register(meta); err != nil {
			t.Fatalf("register handler: %v", err)
		}
	}
	index := NewIndex(nil, host, registry, []string{"blocked"})
	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if _, ok := index.Resolve(context.Background(), "refresh"); ok {
		t.Error("self extension commands must never be indexed")
	}
	if _, ok := index.Resolve(context.Background(), "spam"); ok {
		t.Error("configured skip extension commands must not be indexed")
	}
	if _, ok := index.Resolve(context.Background(), "keep"); !ok {
		t.Error("non-excluded extension commands should be indexed")
	}
}

func TestIndexGroupAndPermissionFilters(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "admin-tools", ModulePath: "mod/admin", Activated: true},
	}}
	groupMeta := &extension.HandlerMeta{
		ModulePath:  "mod/admin",
		Description: "moderation group",
		Filters: []extension.Filter{
			extension.GroupFilter{Group: "/mod"},
			extension.PermissionFilter{},
		},
		Handler: noopHandler,
	}
	// A handler with neither a command nor group filter is not indexed.
	bareMeta := &extension.HandlerMeta{
		ModulePath: "mod/admin",
		Filters:    []extension.Filter{extension.PermissionFilter{}},
		Handler:    noopHandler,
	}
	index := newTestIndex(t, host, groupMeta, bareMeta)
	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if index.Len() != 1 {
		t.Fatalf("expected only group-filtered handler indexed, got %d", index.Len())
	}
	rec, ok := index.Resolve(context.Background(), "mod")
	if !ok {
		t.Fatal("group command should resolve")
	}
	if !rec.Admin {
		t.Error("permission filter should mark the record admin-only")
	}
}

func TestIndexDuplicateCanonicalNameLastWins(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "first", ModulePath: "mod/first", Activated: true},
		{Name: "second", ModulePath: "mod/second", Activated: true},
	}}
	index := newTestIndex(t, host,
		commandMeta("mod/first", "sign", nil, false),
		commandMeta("mod/second", "sign", nil, false),
	)
	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	rec, ok := index.Resolve(context.Background(), "sign")
	if !ok {
		t.Fatal("sign should resolve")
	}
	if rec.Extension != "second" {
		t.Errorf("duplicate canonical name: extension = %q, want second (last wins)", rec.Extension)
	}
}

func TestIndexHostFailureLeavesIndexEmpty(t *testing.T) {
	host := &fakeHost{err: errors.New("host unavailable")}
	index := newTestIndex(t, host, commandMeta("mod/x", "x", nil, false))

	if err := index.Rebuild(context.Background()); err == nil {
		t.Fatal("rebuild should report the enumeration error")
	}
	if index.Len() != 0 {
		t.Fatalf("index should be empty after failure, got %d", index.Len())
	}

	// Self-heals once the host recovers, via lazy rebuild on query.
	host.mu.Lock()
	host.err = nil
	host.exts = []extension.Extension{{Name: "x", ModulePath: "mod/x", Activated: true}}
	host.mu.Unlock()
	if _, ok := index.Resolve(context.Background(), "x"); !ok {
		t.Error("query against empty index should trigger a rebuild")
	}
}

func TestIndexLazyRebuildOnQuery(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "fishing", ModulePath: "mod/fishing", Activated: true},
	}}
	index := newTestIndex(t, host, commandMeta("mod/fishing", "fish", nil, false))

	if _, ok := index.Resolve(context.Background(), "fish"); !ok {
		t.Fatal("resolve should lazily rebuild an empty index")
	}
	if host.calls != 1 {
		t.Errorf("expected exactly one host enumeration, got %d", host.calls)
	}
	// Non-empty index queries do not rebuild again.
	index.Resolve(context.Background(), "fish")
	if host.calls != 1 {
		t.Errorf("populated index should not rebuild on query, calls = %d", host.calls)
	}
}

func TestIndexRebuildIdempotent(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "fishing", ModulePath: "mod/fishing", Activated: true},
	}}
	index := newTestIndex(t, host,
		commandMeta("mod/fishing", "fish", []string{"angle"}, true),
		commandMeta("mod/fishing", "bait", nil, false),
	)

	snapshot := func() map[string]HandlerRecord {
		out := map[string]HandlerRecord{}
		for _, rec := range index.Records(context.Background()) {
			rec.Handler = nil // handler references may differ across rebuilds
			out[rec.Command] = rec
		}
		return out
	}

	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	first := snapshot()
	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	second := snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rebuild is not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestIndexRecordsSorted(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "p", ModulePath: "mod/p", Activated: true},
	}}
	var metas []*extension.HandlerMeta
	for _, name := range []string{"zeta", "alpha", "mike"} {
		metas = append(metas, commandMeta("mod/p", name, nil, false))
	}
	index := newTestIndex(t, host, metas...)

	records := index.Records(context.Background())
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []string{"alpha", "mike", "zeta"}
	for i, rec := range records {
		if rec.Command != want[i] {
			t.Fatalf("records[%d] = %q, want %q", i, rec.Command, want[i])
		}
	}
}

func TestIndexDefaultDescription(t *testing.T) {
	host := &fakeHost{exts: []extension.Extension{
		{Name: "p", ModulePath: "mod/p", Activated: true},
	}}
	meta := &extension.HandlerMeta{
		ModulePath: "mod/p",
		Filters:    []extension.Filter{extension.CommandFilter{Name: "bare"}},
		Handler:    noopHandler,
	}
	index := newTestIndex(t, host, meta)

	rec, ok := index.Resolve(context.Background(), "bare")
	if !ok {
		t.Fatal("bare should resolve")
	}
	if rec.Description != noDescription {
		t.Errorf("description = %q, want %q", rec.Description, noDescription)
	}
}

func TestIndexLinearScanManyHandlers(t *testing.T) {
	const extCount = 50
	var exts []extension.Extension
	var metas []*extension.HandlerMeta
	for i := 0; i < extCount; i++ {
		module := fmt.Sprintf("mod/ext%d", i)
		exts = append(exts, extension.Extension{
			Name:       fmt.Sprintf("ext%d", i),
			ModulePath: module,
			Activated:  true,
		})
		metas = append(metas, commandMeta(module, fmt.Sprintf("cmd%d", i), nil, false))
	}
	host := &fakeHost{exts: exts}
	index := newTestIndex(t, host, metas...)

	if err := index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if index.Len() != extCount {
		t.Fatalf("expected %d commands, got %d", extCount, index.Len())
	}
}

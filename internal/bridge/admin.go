package bridge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/seelebot/cmdbridge/internal/extension"
)

// SelfModulePath attributes the bridge's own admin handlers in the registry.
const SelfModulePath = "github.com/seelebot/cmdbridge/internal/bridge"

// RegisterAdminCommands registers the bridge's administrative slash commands
// with the host handler registry: a manual index refresh, a status report,
// and an identity-wrapper self-test. The bridge's own extension name is in
// the index skip set, so these never become agent-executable.
func RegisterAdminCommands(registry *extension.HandlerRegistry, svc *Service) error {
	entries := []*extension.HandlerMeta{
		{
			ModulePath:  SelfModulePath,
			Description: "rebuild the command handler index",
			Filters: []extension.Filter{
				extension.CommandFilter{Name: "refresh_commands", Aliases: []string{"reload_commands"}},
				extension.PermissionFilter{},
			},
			Handler: &refreshHandler{svc: svc},
		},
		{
			ModulePath:  SelfModulePath,
			Description: "report bridge configuration and indexed command counts",
			Filters: []extension.Filter{
				extension.CommandFilter{Name: "bridge_status", Aliases: []string{"executor_status"}},
				extension.PermissionFilter{},
			},
			Handler: &statusHandler{svc: svc},
		},
		{
			ModulePath:  SelfModulePath,
			Description: "exercise the bot identity substitution wrapper",
			Filters: []extension.Filter{
				extension.CommandFilter{Name: "test_bot_identity"},
				extension.PermissionFilter{},
			},
			Handler: &identitySelfTestHandler{svc: svc},
		},
	}
	for _, meta := range entries {
		if err := registry.Register(meta); err != nil {
			return err
		}
	}
	return nil
}

type refreshHandler struct {
	svc *Service
}

func (h *refreshHandler) Handle(ctx context.Context, ev extension.Event) (*extension.Result, error) {
	if err := h.svc.Index().Rebuild(ctx); err != nil {
		return extension.TextResult(fmt.Sprintf("index rebuild failed: %v", err)), nil
	}
	return extension.TextResult(fmt.Sprintf("command index refreshed, %d commands indexed", h.svc.Index().Len())), nil
}

type statusHandler struct {
	svc *Service
}

func (h *statusHandler) HandleStream(ctx context.Context, ev extension.Event, emit func(*extension.Result) error) error {
	cfg := h.svc.Config()

	listOrNone := func(items []string, none string) string {
		if len(items) == 0 {
			return none
		}
		return strings.Join(items, ", ")
	}
	yesNo := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== command bridge status ===\n")
	fmt.Fprintf(&b, "enabled: %s\n", yesNo(cfg.Enabled))
	fmt.Fprintf(&b, "indexed commands: %d\n", h.svc.Index().Len())
	fmt.Fprintf(&b, "whitelist: %s\n", listOrNone(cfg.Whitelist, "unrestricted"))
	fmt.Fprintf(&b, "blacklist: %s\n", listOrNone(cfg.Blacklist, "none"))
	fmt.Fprintf(&b, "allow admin commands: %s\n", yesNo(cfg.AllowAdminCommands))
	fmt.Fprintf(&b, "admin users: %s\n", listOrNone(cfg.AdminUsers, "none"))
	fmt.Fprintf(&b, "combined forward: %s (threshold: %d)\n", yesNo(cfg.EnableForward), cfg.ForwardThreshold)
	fmt.Fprintf(&b, "\ncommands per extension:")

	counts := map[string]int{}
	for _, rec := range h.svc.Index().Records(ctx) {
		counts[rec.Extension]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %d", name, counts[name])
	}

	return emit(extension.TextResult(b.String()))
}

type identitySelfTestHandler struct {
	svc *Service
}

func (h *identitySelfTestHandler) HandleStream(ctx context.Context, ev extension.Event, emit func(*extension.Result) error) error {
	originalID := ev.SenderID()
	testID := "selftest_bot_identity"

	wrapped := WrapBotIdentity(ev, testID)
	substituted := wrapped.SenderID() == testID
	delegated := wrapped.MessageText() == ev.MessageText() && wrapped.Platform() == ev.Platform()
	restored := Unwrap(wrapped).SenderID() == originalID

	var b strings.Builder
	fmt.Fprintf(&b, "identity wrapper self-test:\n")
	fmt.Fprintf(&b, "original sender: %s\n", originalID)
	fmt.Fprintf(&b, "wrapped sender: %s\n", wrapped.SenderID())
	fmt.Fprintf(&b, "substitution: %s\n", passFail(substituted))
	fmt.Fprintf(&b, "delegation: %s\n", passFail(delegated))
	fmt.Fprintf(&b, "unwrap restores identity: %s\n", passFail(restored))
	fmt.Fprintf(&b, "configured bot user id: %s", h.svc.Config().BotUserID)

	return emit(extension.TextResult(b.String()))
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

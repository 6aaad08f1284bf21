package bridge

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/seelebot/cmdbridge/internal/config"
)

// Gate decides whether a caller may execute a command. Checks run in order
// and short-circuit on the first failure; the reason string is always safe to
// surface to the calling agent.
type Gate struct {
	cfg   config.BridgeConfig
	index *Index
}

// NewGate creates a policy gate over the given index.
func NewGate(cfg config.BridgeConfig, index *Index) *Gate {
	return &Gate{cfg: cfg, index: index}
}

// CanExecute reports whether callerID may run command, with a reason.
func (g *Gate) CanExecute(ctx context.Context, command, callerID string) (bool, string) {
	if !g.cfg.Enabled {
		return false, "command bridge is disabled"
	}

	command = strings.TrimPrefix(strings.TrimSpace(command), "/")
	rec, ok := g.index.Resolve(ctx, command)
	if !ok {
		return false, fmt.Sprintf("command not found: %s", command)
	}

	// Whitelist and blacklist honor both the raw form and the canonical
	// resolution, but not other aliases.
	if len(g.cfg.Whitelist) > 0 {
		if !slices.Contains(g.cfg.Whitelist, rec.Command) && !slices.Contains(g.cfg.Whitelist, command) {
			return false, fmt.Sprintf("command %s is not whitelisted", command)
		}
	}
	if len(g.cfg.Blacklist) > 0 {
		if slices.Contains(g.cfg.Blacklist, rec.Command) || slices.Contains(g.cfg.Blacklist, command) {
			return false, fmt.Sprintf("command %s is blacklisted", command)
		}
	}

	if rec.Admin {
		if slices.Contains(g.cfg.AdminUsers, strings.TrimSpace(callerID)) {
			return true, "allowed (admin user)"
		}
		if !g.cfg.AllowAdminCommands {
			return false, fmt.Sprintf("command %s requires admin privileges", command)
		}
	}

	return true, "allowed"
}

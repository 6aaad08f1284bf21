// Package bridge exposes the command bridge to the agent as MCP tools:
// execute_command and list_executable_commands.
package bridge

import (
	"context"
	"log/slog"

	bridgecore "github.com/seelebot/cmdbridge/internal/bridge"
	"github.com/seelebot/cmdbridge/internal/extension"
	mcpgw "github.com/seelebot/cmdbridge/internal/mcp"
)

const (
	toolExecuteCommand = "execute_command"
	toolListCommands   = "list_executable_commands"
)

// Runner executes and lists commands on behalf of the agent.
type Runner interface {
	ExecuteCommand(ctx context.Context, ev extension.Event, req bridgecore.InvocationRequest) bridgecore.InvocationResult
	ListExecutableCommands(ctx context.Context, callerID, category string) bridgecore.ListResult
}

// EventResolver looks up the in-flight inbound event for a tool session.
type EventResolver interface {
	Event(sessionID string) (extension.Event, bool)
}

// Executor exposes the bridge operations as MCP tools.
type Executor struct {
	runner Runner
	events EventResolver
	logger *slog.Logger
}

// NewExecutor creates a bridge tool executor.
func NewExecutor(log *slog.Logger, runner Runner, events EventResolver) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		runner: runner,
		events: events,
		logger: log.With(slog.String("provider", "bridge_tool")),
	}
}

func (p *Executor) ListTools(ctx context.Context, session mcpgw.ToolSessionContext) ([]mcpgw.ToolDescriptor, error) {
	if p.runner == nil {
		return nil, nil
	}
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolExecuteCommand,
			Description: "Execute an installed chat command on behalf of the current user, or as the bot itself. Use list_executable_commands first to confirm the command exists.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "Command name without prefix, e.g. \"sign\" not \"/sign\"",
					},
					"args": map[string]any{
						"type":        "string",
						"description": "Argument string, space separated. May contain positional placeholders @0, @1, ... referencing at_qq_list entries, e.g. \"@0 60\"",
					},
					"at_qq_list": map[string]any{
						"type":        "array",
						"description": "User IDs to mention, in placeholder order",
						"items":       map[string]any{"type": "string"},
					},
					"reply_image_url": map[string]any{
						"type":        "string",
						"description": "Image URL to attach as a quoted reference, for commands that operate on an image",
					},
					"as_bot": map[string]any{
						"type":        "boolean",
						"description": "Execute under the bot's own identity instead of the requesting user's. Default false.",
					},
				},
				"required": []string{"command"},
			},
		},
		{
			Name:        toolListCommands,
			Description: "List the chat commands the current user may execute through execute_command, grouped by plugin.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type":        "string",
						"description": "Filter by plugin name substring (case-insensitive)",
					},
				},
				"required": []string{},
			},
		},
	}, nil
}

func (p *Executor) CallTool(ctx context.Context, session mcpgw.ToolSessionContext, toolName string, arguments map[string]any) (map[string]any, error) {
	switch toolName {
	case toolExecuteCommand:
		return p.callExecute(ctx, session, arguments)
	case toolListCommands:
		return p.callList(ctx, session, arguments)
	default:
		return nil, mcpgw.ErrToolNotFound
	}
}

func (p *Executor) callExecute(ctx context.Context, session mcpgw.ToolSessionContext, arguments map[string]any) (map[string]any, error) {
	if p.runner == nil || p.events == nil {
		return mcpgw.BuildToolErrorResult("command bridge not available"), nil
	}

	ev, ok := p.events.Event(session.SessionID)
	if !ok {
		p.logger.Warn("no in-flight event for session", slog.String("session_id", session.SessionID))
		return mcpgw.BuildToolErrorResult("no in-flight message event for this session"), nil
	}

	asBot, _, err := mcpgw.BoolArg(arguments, "as_bot")
	if err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}

	// Agents occasionally shorten argument names; accept the common variants.
	req := bridgecore.InvocationRequest{
		Command:        mcpgw.FirstStringArg(arguments, "command", "cmd"),
		Args:           mcpgw.StringArg(arguments, "args"),
		Mentions:       mcpgw.StringListArg(arguments, "at_qq_list"),
		QuotedImageURL: mcpgw.FirstStringArg(arguments, "reply_image_url", "image_url"),
		AsBot:          asBot,
	}

	// Denials and failures ride inside the structured payload; the tool
	// call itself always succeeds at the protocol level.
	result := p.runner.ExecuteCommand(ctx, ev, req)
	return mcpgw.BuildToolSuccessResult(result), nil
}

func (p *Executor) callList(ctx context.Context, session mcpgw.ToolSessionContext, arguments map[string]any) (map[string]any, error) {
	if p.runner == nil {
		return mcpgw.BuildToolErrorResult("command bridge not available"), nil
	}
	category := mcpgw.StringArg(arguments, "category")
	result := p.runner.ListExecutableCommands(ctx, session.SenderID, category)
	return mcpgw.BuildToolSuccessResult(result), nil
}

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/seelebot/cmdbridge/internal/config"
	"github.com/seelebot/cmdbridge/internal/extension"
)

// InvocationRequest is one agent-initiated command execution.
type InvocationRequest struct {
	Command        string
	Args           string
	Mentions       []string
	QuotedImageURL string
	AsBot          bool
}

// InvocationResult is the structured payload returned to the calling agent.
type InvocationResult struct {
	Success    bool     `json:"success"`
	Command    string   `json:"command,omitempty"`
	Args       string   `json:"args,omitempty"`
	Result     string   `json:"result,omitempty"`
	Images     []string `json:"images,omitempty"`
	ExecutedAs string   `json:"executed_as,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// CommandInfo describes one executable command in a listing.
type CommandInfo struct {
	Command     string   `json:"command"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

// ListResult is the structured payload of list_executable_commands.
type ListResult struct {
	Success    bool                     `json:"success"`
	TotalCount int                      `json:"total_count"`
	Plugins    map[string][]CommandInfo `json:"plugins"`
}

// Service is the bridge facade: it resolves, gates, re-invokes, and reports.
type Service struct {
	cfg    config.BridgeConfig
	index  *Index
	gate   *Gate
	logger *slog.Logger
}

// NewService wires the bridge core from its parts.
func NewService(log *slog.Logger, cfg config.BridgeConfig, index *Index, gate *Gate) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		index:  index,
		gate:   gate,
		logger: log.With(slog.String("service", "bridge")),
	}
}

// Index exposes the handler index for the admin surface.
func (s *Service) Index() *Index {
	return s.index
}

// Config returns the policy configuration the service was built with.
func (s *Service) Config() config.BridgeConfig {
	return s.cfg
}

// ExecuteCommand runs one command on behalf of the event's sender, or under
// the bot identity when requested. Every failure mode is reported through the
// returned payload; nothing propagates to the host.
func (s *Service) ExecuteCommand(ctx context.Context, ev extension.Event, req InvocationRequest) InvocationResult {
	req.Command = strings.TrimSpace(req.Command)
	req.Args = strings.TrimSpace(req.Args)

	if req.Command == "" {
		return InvocationResult{Success: false, Error: "missing required parameter: command"}
	}

	invocationID := uuid.NewString()
	s.logger.Info("agent requested command execution",
		slog.String("invocation_id", invocationID),
		slog.String("command", req.Command),
		slog.String("args", req.Args),
		slog.Int("mentions", len(req.Mentions)),
		slog.Bool("quoted_image", req.QuotedImageURL != ""),
		slog.Bool("as_bot", req.AsBot))

	allowed, reason := s.gate.CanExecute(ctx, req.Command, ev.SenderID())
	if !allowed {
		s.logger.Warn("command execution denied",
			slog.String("invocation_id", invocationID),
			slog.String("command", req.Command),
			slog.String("reason", reason))
		return InvocationResult{Success: false, Error: reason}
	}

	rec, ok := s.index.Resolve(ctx, req.Command)
	if !ok {
		return InvocationResult{Success: false, Error: fmt.Sprintf("command not found: %s", req.Command)}
	}

	results, err := s.invoke(ctx, ev, rec, req)
	if err != nil {
		s.logger.Error("command execution failed",
			slog.String("invocation_id", invocationID),
			slog.String("command", rec.Command),
			slog.Any("error", err))
		return InvocationResult{
			Success: false,
			Command: rec.Command,
			Error:   fmt.Sprintf("execution failed: %v", err),
		}
	}

	var texts, images []string
	for _, res := range results {
		content := extractContent(res)
		texts = append(texts, content.texts...)
		images = append(images, content.images...)
	}
	totalTextLen := 0
	for _, t := range texts {
		totalTextLen += len([]rune(t))
	}

	s.deliver(ctx, ev, results, totalTextLen)

	out := InvocationResult{
		Success:    true,
		Command:    rec.Command,
		Args:       req.Args,
		Images:     images,
		ExecutedAs: "user",
	}
	if req.AsBot {
		out.ExecutedAs = "bot"
	}
	switch {
	case len(texts) > 0:
		out.Result = strings.Join(texts, "\n")
	case len(images) > 0:
		out.Result = fmt.Sprintf("command returned %d image(s)", len(images))
	default:
		out.Result = "command completed with no output"
	}

	s.logger.Info("command executed",
		slog.String("invocation_id", invocationID),
		slog.String("command", rec.Command),
		slog.String("executed_as", out.ExecutedAs),
		slog.Int("texts", len(texts)),
		slog.Int("images", len(images)))
	return out
}

// ListExecutableCommands returns the commands callerID may execute, grouped
// by owning extension. category filters on a case-insensitive extension name
// substring.
func (s *Service) ListExecutableCommands(ctx context.Context, callerID, category string) ListResult {
	category = strings.ToLower(strings.TrimSpace(category))

	out := ListResult{
		Success: true,
		Plugins: map[string][]CommandInfo{},
	}
	for _, rec := range s.index.Records(ctx) {
		if allowed, _ := s.gate.CanExecute(ctx, rec.Command, callerID); !allowed {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(rec.Extension), category) {
			continue
		}
		out.Plugins[rec.Extension] = append(out.Plugins[rec.Extension], CommandInfo{
			Command:     rec.Command,
			Description: rec.Description,
			Aliases:     rec.Aliases,
		})
		out.TotalCount++
	}
	return out
}

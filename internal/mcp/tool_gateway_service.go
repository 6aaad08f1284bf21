package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultToolRegistryCacheTTL = 5 * time.Second

type cachedToolRegistry struct {
	expiresAt time.Time
	registry  *ToolRegistry
}

// ToolGatewayService federates tools from the registered executors.
type ToolGatewayService struct {
	logger    *slog.Logger
	executors []ToolExecutor
	cacheTTL  time.Duration

	mu    sync.Mutex
	cache map[string]cachedToolRegistry
}

func NewToolGatewayService(log *slog.Logger, executors []ToolExecutor) *ToolGatewayService {
	if log == nil {
		log = slog.Default()
	}
	filtered := make([]ToolExecutor, 0, len(executors))
	for _, executor := range executors {
		if executor != nil {
			filtered = append(filtered, executor)
		}
	}
	return &ToolGatewayService{
		logger:    log.With(slog.String("service", "tool_gateway")),
		executors: filtered,
		cacheTTL:  defaultToolRegistryCacheTTL,
		cache:     map[string]cachedToolRegistry{},
	}
}

func (s *ToolGatewayService) ListTools(ctx context.Context, session ToolSessionContext) ([]ToolDescriptor, error) {
	registry, err := s.getRegistry(ctx, session, false)
	if err != nil {
		return nil, err
	}
	return registry.List(), nil
}

func (s *ToolGatewayService) CallTool(ctx context.Context, session ToolSessionContext, payload ToolCallPayload) (map[string]any, error) {
	toolName := strings.TrimSpace(payload.Name)
	if toolName == "" {
		return nil, fmt.Errorf("tool name is required")
	}

	registry, err := s.getRegistry(ctx, session, false)
	if err != nil {
		return nil, err
	}
	executor, _, ok := registry.Lookup(toolName)
	if !ok {
		// Refresh once for executors whose tool sets change per session.
		registry, err = s.getRegistry(ctx, session, true)
		if err != nil {
			return nil, err
		}
		executor, _, ok = registry.Lookup(toolName)
		if !ok {
			return BuildToolErrorResult("tool not found: " + toolName), nil
		}
	}

	arguments := payload.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}
	result, err := executor.CallTool(ctx, session, toolName, arguments)
	if err != nil {
		if err == ErrToolNotFound {
			return BuildToolErrorResult("tool not found: " + toolName), nil
		}
		return BuildToolErrorResult(err.Error()), nil
	}
	if result == nil {
		return BuildToolSuccessResult(map[string]any{"ok": true}), nil
	}
	return result, nil
}

func (s *ToolGatewayService) getRegistry(ctx context.Context, session ToolSessionContext, force bool) (*ToolRegistry, error) {
	cacheKey := strings.TrimSpace(session.SessionID)
	if cacheKey == "" {
		cacheKey = "global"
	}
	if !force {
		s.mu.Lock()
		cached, ok := s.cache[cacheKey]
		if ok && time.Now().Before(cached.expiresAt) && cached.registry != nil {
			s.mu.Unlock()
			return cached.registry, nil
		}
		s.mu.Unlock()
	}

	registry := NewToolRegistry()
	for _, executor := range s.executors {
		tools, err := executor.ListTools(ctx, session)
		if err != nil {
			s.logger.Warn("list tools from executor failed", slog.Any("error", err))
			continue
		}
		for _, tool := range tools {
			if err := registry.Register(executor, tool); err != nil {
				s.logger.Warn("skip duplicated/invalid tool", slog.String("tool", tool.Name), slog.Any("error", err))
			}
		}
	}

	s.mu.Lock()
	s.cache[cacheKey] = cachedToolRegistry{
		expiresAt: time.Now().Add(s.cacheTTL),
		registry:  registry,
	}
	s.mu.Unlock()
	return registry, nil
}

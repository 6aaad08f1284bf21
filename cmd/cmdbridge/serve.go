package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/seelebot/cmdbridge/internal/bridge"
	"github.com/seelebot/cmdbridge/internal/config"
	"github.com/seelebot/cmdbridge/internal/extension"
	"github.com/seelebot/cmdbridge/internal/extension/local"
	"github.com/seelebot/cmdbridge/internal/handlers"
	"github.com/seelebot/cmdbridge/internal/logger"
	"github.com/seelebot/cmdbridge/internal/mcp"
	mcpbridge "github.com/seelebot/cmdbridge/internal/mcp/providers/bridge"
	"github.com/seelebot/cmdbridge/internal/server"
	"github.com/seelebot/cmdbridge/internal/version"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			extension.NewHandlerRegistry,
			provideHost,
			provideIndex,
			provideGate,
			provideBridgeService,
			bridge.NewEventStore,
			provideToolGateway,
			handlers.NewPingHandler,
			provideMCPToolsHandler,
			handlers.NewBridgeHandler,
			provideServer,
		),
		fx.Invoke(
			registerAdminCommands,
			startRebuildSchedule,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideHost(registry *extension.HandlerRegistry) (extension.Host, error) {
	return local.NewPlaygroundHost(registry)
}

func provideIndex(log *slog.Logger, cfg config.Config, host extension.Host, registry *extension.HandlerRegistry) *bridge.Index {
	return bridge.NewIndex(log, host, registry, cfg.Bridge.SkipExtensions)
}

func provideGate(cfg config.Config, index *bridge.Index) *bridge.Gate {
	return bridge.NewGate(cfg.Bridge, index)
}

func provideBridgeService(log *slog.Logger, cfg config.Config, index *bridge.Index, gate *bridge.Gate) *bridge.Service {
	return bridge.NewService(log, cfg.Bridge, index, gate)
}

func provideToolGateway(log *slog.Logger, svc *bridge.Service, events *bridge.EventStore) *mcp.ToolGatewayService {
	executor := mcpbridge.NewExecutor(log, svc, events)
	return mcp.NewToolGatewayService(log, []mcp.ToolExecutor{executor})
}

// provideMCPToolsHandler binds tool sessions to synthetic playground events:
// a real host runtime would register its live inbound events instead.
func provideMCPToolsHandler(log *slog.Logger, cfg config.Config, gateway *mcp.ToolGatewayService, events *bridge.EventStore) *handlers.MCPToolsHandler {
	binder := local.NewSessionBinder(events, cfg.Bridge.BotUserID)
	return handlers.NewMCPToolsHandler(log, gateway, binder)
}

func provideServer(log *slog.Logger, cfg config.Config, ping *handlers.PingHandler, tools *handlers.MCPToolsHandler, bridgeAPI *handlers.BridgeHandler) *server.Server {
	return server.New(log, cfg.Server.Addr, cfg.Server.JWTSecret, []server.Handler{ping, tools, bridgeAPI})
}

func registerAdminCommands(registry *extension.HandlerRegistry, svc *bridge.Service) error {
	return bridge.RegisterAdminCommands(registry, svc)
}

func startRebuildSchedule(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, index *bridge.Index) error {
	schedule := cfg.Bridge.RebuildSchedule
	if schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := index.Rebuild(context.Background()); err != nil {
			log.Warn("scheduled index rebuild failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("invalid rebuild schedule %q: %w", schedule, err)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-c.Stop().Done()
			return nil
		},
	})
	return nil
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, index *bridge.Index, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting cmdbridge %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := index.Rebuild(ctx); err != nil {
				log.Warn("initial index rebuild failed", slog.Any("error", err))
			}
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

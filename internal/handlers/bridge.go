package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seelebot/cmdbridge/internal/auth"
	"github.com/seelebot/cmdbridge/internal/bridge"
)

// BridgeHandler exposes the administrative HTTP surface: status, manual index
// refresh, and a command listing scoped to the authenticated caller.
type BridgeHandler struct {
	svc    *bridge.Service
	logger *slog.Logger
}

func NewBridgeHandler(log *slog.Logger, svc *bridge.Service) *BridgeHandler {
	return &BridgeHandler{
		svc:    svc,
		logger: log.With(slog.String("handler", "bridge")),
	}
}

func (h *BridgeHandler) Register(e *echo.Echo) {
	e.GET("/bridge/status", h.Status)
	e.POST("/bridge/refresh", h.Refresh)
	e.GET("/bridge/commands", h.Commands)
}

func (h *BridgeHandler) Status(c echo.Context) error {
	cfg := h.svc.Config()
	counts := map[string]int{}
	for _, rec := range h.svc.Index().Records(c.Request().Context()) {
		counts[rec.Extension]++
	}
	return c.JSON(http.StatusOK, map[string]any{
		"enabled":              cfg.Enabled,
		"indexed_commands":     h.svc.Index().Len(),
		"whitelist":            cfg.Whitelist,
		"blacklist":            cfg.Blacklist,
		"allow_admin_commands": cfg.AllowAdminCommands,
		"enable_forward":       cfg.EnableForward,
		"forward_threshold":    cfg.ForwardThreshold,
		"extensions":           counts,
	})
}

func (h *BridgeHandler) Refresh(c echo.Context) error {
	if err := h.svc.Index().Rebuild(c.Request().Context()); err != nil {
		h.logger.Error("manual index rebuild failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "index rebuild failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"indexed_commands": h.svc.Index().Len(),
	})
}

func (h *BridgeHandler) Commands(c echo.Context) error {
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	result := h.svc.ListExecutableCommands(c.Request().Context(), callerID, c.QueryParam("category"))
	return c.JSON(http.StatusOK, result)
}

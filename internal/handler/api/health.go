package api

import (
	"context"
	"time"

	xhttp "PowerPull/pkg/http"
	xlogger "PowerPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports liveness and store readiness.
type HealthHandler struct {
	logger  *xlogger.Logger
	store   Pinger
	timeout time.Duration
}

func NewHealthHandler(logger *xlogger.Logger, store Pinger) *HealthHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HealthHandler{logger: logger, store: store, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Live)
	e.GET("/readyz", h.Ready)
}

func (h *HealthHandler) Live(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("store not ready", xlogger.Error(err))
		return xhttp.ServiceUnavailableResponse(c, map[string]string{"status": "unavailable", "store": err.Error()})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether the store is reachable. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// LivenessHandler answers as long as the process serves HTTP.
func (h *HealthHandler) LivenessHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ReadinessHandler answers 200 only while the store responds.
func (h *HealthHandler) ReadinessHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return ResponseError(c, http.StatusServiceUnavailable, "Database unavailable", err)
	}
	return c.String(http.StatusOK, "ok")
}

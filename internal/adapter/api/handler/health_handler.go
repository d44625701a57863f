package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"meetup/internal/domain/repository"
)

// Pinger reports whether an optional dependency is reachable.
type Pinger interface {
	IsConnected() bool
}

type HealthHandler struct {
	store   repository.Store
	backend string
	nats    Pinger
}

var healthHandler *HealthHandler

func NewHealthHandler(store repository.Store, backend string, nats Pinger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		backend: backend,
		nats:    nats,
	}
}

func SetupHealthHandler(store repository.Store, backend string, nats Pinger) {
	healthHandler = NewHealthHandler(store, backend, nats)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckStoreHealth reads the store root's health node to prove connectivity.
func (h *HealthHandler) CheckStoreHealth(c echo.Context) error {
	status := map[string]string{"backend": h.backend}
	if _, err := h.store.Get(c.Request().Context(), "health/ping"); err != nil {
		status["status"] = "Store connection failed"
		status["error"] = err.Error()
		return c.JSON(http.StatusInternalServerError, status)
	}
	status["status"] = "Store connected successfully"
	if h.nats != nil {
		if h.nats.IsConnected() {
			status["nats"] = "connected"
		} else {
			status["nats"] = "disconnected"
		}
	}
	return c.JSON(http.StatusOK, status)
}

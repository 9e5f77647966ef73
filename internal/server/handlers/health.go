// Handles the health check endpoint.

package handlers

import (
	"context"

	"github.com/notefs/notefs/internal/server/dto"
)

// HealthHandler reports liveness and the running storage mode.
type HealthHandler struct {
	Svc *Services
	Cfg *Config
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:  "ok",
		Version: h.Cfg.Version,
		Mode:    string(h.Svc.Vault.Mode()),
	}, nil
}

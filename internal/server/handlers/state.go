// Handles view state endpoints.

package handlers

import (
	"context"

	"github.com/notefs/notefs/internal/server/dto"
)

// StateHandler handles view state HTTP requests.
type StateHandler struct {
	Svc *Services
}

// GetState returns the current view state.
func (h *StateHandler) GetState(ctx context.Context, req *dto.GetStateRequest) (*dto.StateResponse, error) {
	return stateToDTO(h.Svc.Vault.State()), nil
}

// UpdateState applies a partial view state update. Absent fields keep their
// value; a present zero active_id clears the selection. Selecting an item
// also schedules its sibling images for resolution.
func (h *StateHandler) UpdateState(ctx context.Context, req *dto.UpdateStateRequest) (*dto.StateResponse, error) {
	if req.ActiveID != nil {
		if err := h.Svc.Vault.Select(*req.ActiveID); err != nil {
			return nil, vaultError(err)
		}
		h.Svc.Resolver.SetActive(*req.ActiveID)
		if req.RevealActive && !req.ActiveID.IsZero() {
			if err := h.Svc.Vault.ExpandTo(*req.ActiveID); err != nil {
				return nil, vaultError(err)
			}
		}
	}
	if req.SidebarHidden != nil {
		h.Svc.Vault.SetSidebarHidden(*req.SidebarHidden)
	}
	return stateToDTO(h.Svc.Vault.State()), nil
}

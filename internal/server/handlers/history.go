// Handles note history endpoints.

package handlers

import (
	"context"

	"github.com/notefs/notefs/internal/server/dto"
)

// HistoryHandler serves git-backed note history.
type HistoryHandler struct {
	Svc *Services
}

// History lists the commits touching an item, newest first. Without an id
// in the path it covers the whole vault.
func (h *HistoryHandler) History(ctx context.Context, req *dto.HistoryRequest) (*dto.HistoryResponse, error) {
	commits, err := h.Svc.Vault.History(ctx, req.ID, req.Limit)
	if err != nil {
		return nil, vaultError(err)
	}
	return &dto.HistoryResponse{Commits: commitsToDTO(commits)}, nil
}

// Version returns a note's content as of a given commit.
func (h *HistoryHandler) Version(ctx context.Context, req *dto.VersionRequest) (*dto.VersionResponse, error) {
	content, err := h.Svc.Vault.ContentAt(ctx, req.ID, req.Hash)
	if err != nil {
		return nil, vaultError(err)
	}
	return &dto.VersionResponse{Hash: req.Hash, Content: content}, nil
}

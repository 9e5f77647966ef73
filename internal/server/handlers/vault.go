// Handles vault-level endpoints: storage mode, orphan cleanup, schema.

package handlers

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/notefs/notefs/internal/server/dto"
	"github.com/notefs/notefs/internal/storage"
)

// VaultHandler handles vault-wide HTTP requests.
type VaultHandler struct {
	Svc *Services
}

// GetMode reports which storage backend is active.
func (h *VaultHandler) GetMode(ctx context.Context, req *dto.GetModeRequest) (*dto.ModeResponse, error) {
	return &dto.ModeResponse{Mode: string(h.Svc.Vault.Mode())}, nil
}

// SwitchMode swaps the storage backend. Each mode keeps its own data, so the
// tree shown afterwards is whatever that mode already held.
func (h *VaultHandler) SwitchMode(ctx context.Context, req *dto.SwitchModeRequest) (*dto.ModeResponse, error) {
	mode := storage.Mode(req.Mode)
	if mode != storage.ModeMemory && mode != storage.ModeDisk {
		return nil, dto.InvalidField("mode", `must be "memory" or "disk"`)
	}
	if err := h.Svc.Vault.SwitchMode(ctx, mode); err != nil {
		return nil, vaultError(err)
	}
	// Whatever was resolved belongs to the old backend now.
	h.Svc.Resolver.SetActive(h.Svc.Vault.State().ActiveID)
	return &dto.ModeResponse{Mode: string(h.Svc.Vault.Mode())}, nil
}

// Cleanup scans for image assets no sibling note references and removes
// them, or only reports them on a dry run.
func (h *VaultHandler) Cleanup(ctx context.Context, req *dto.CleanupRequest) (*dto.CleanupResponse, error) {
	report, err := h.Svc.Vault.Cleanup(ctx, req.DryRun)
	if err != nil {
		return nil, vaultError(err)
	}
	return &dto.CleanupResponse{
		Orphans:        report.Orphans,
		SkippedFolders: report.SkippedFolders,
		Removed:        report.Removed,
		DryRun:         report.DryRun,
	}, nil
}

// Schema returns the JSON schema of the persisted vault document.
func (h *VaultHandler) Schema(ctx context.Context, req *dto.SchemaRequest) (*jsonschema.Schema, error) {
	return storage.DocumentSchema(), nil
}

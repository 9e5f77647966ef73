// Handles image upload and retrieval for note assets.

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/server/dto"
)

// AssetHandler handles asset-related HTTP requests.
type AssetHandler struct {
	Svc *Services
	Cfg *Config
}

// ListAssets resolves the sibling images of an item right away, bypassing
// the selection debounce.
func (h *AssetHandler) ListAssets(ctx context.Context, req *dto.ListAssetsRequest) (*dto.ListAssetsResponse, error) {
	if _, err := h.Svc.Vault.Item(req.ID); err != nil {
		return nil, vaultError(err)
	}
	refs := h.Svc.Resolver.Resolve(ctx, req.ID)
	return &dto.ListAssetsResponse{Assets: refsToDTO(refs)}, nil
}

// UploadAssetHandler handles image uploading (multipart/form-data).
// This is a raw http.HandlerFunc because it handles multipart forms.
// The asset lands next to the target item, or inside it when the target is
// a folder.
func (h *AssetHandler) UploadAssetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := ksid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, dto.InvalidField("id", "not a valid item id"))
		return
	}

	it, err := h.Svc.Vault.Item(id)
	if err != nil {
		writeErrorResponse(w, vaultError(err))
		return
	}
	parent := it.ParentID
	if it.IsFolder() {
		parent = it.ID
	}

	if err := r.ParseMultipartForm(h.Cfg.Quotas.MaxUploadBytes); err != nil {
		writeErrorResponse(w, dto.BadRequest("form_parse"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, dto.MissingField("file"))
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close uploaded file", "err", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, dto.Internal("file_read"))
		return
	}

	asset, err := h.Svc.Vault.Upload(r.Context(), parent, header.Filename, data)
	if err != nil {
		writeErrorResponse(w, vaultError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	resp := dto.UploadAssetResponse{Asset: itemToDTO(asset)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write asset response", "err", err)
	}
}

// ServeAssetFile serves the binary data of an asset.
// This is a raw http.HandlerFunc for direct file serving.
func (h *AssetHandler) ServeAssetFile(w http.ResponseWriter, r *http.Request) {
	id, err := ksid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, dto.InvalidField("id", "not a valid item id"))
		return
	}

	data, mimeType, err := h.Svc.Vault.Asset(r.Context(), id)
	if err != nil {
		writeErrorResponse(w, vaultError(err))
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Disk assets can change underneath us; make the browser revalidate.
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write asset data", "err", err, "id", id)
	}
}

// ServeBlobFile serves a resolved image blob by its ephemeral token. Tokens
// die when a later resolution supersedes them, so a 404 here means the
// client should refetch the asset list.
func (h *AssetHandler) ServeBlobFile(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := h.Svc.Resolver.Blob(r.URL.Path)
	if !ok {
		writeErrorResponse(w, dto.NotFound("blob"))
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// The token changes whenever the blob does, so it may cache hard.
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write blob data", "err", err)
	}
}

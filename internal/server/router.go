// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/notefs/notefs/internal/server/handlers"
	"github.com/notefs/notefs/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router.
// All endpoints live under /api; raw image bytes are served from
// /api/assets and /api/blobs.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Limiters) http.Handler {
	mux := &http.ServeMux{}
	ih := &handlers.ItemHandler{Svc: svc}
	sth := &handlers.StateHandler{Svc: svc}
	ah := &handlers.AssetHandler{Svc: svc, Cfg: cfg}
	srh := &handlers.SearchHandler{Svc: svc}
	hih := &handlers.HistoryHandler{Svc: svc}
	vh := &handlers.VaultHandler{Svc: svc}

	// Health check
	hh := &handlers.HealthHandler{Svc: svc, Cfg: cfg}
	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limiters))

	// Tree and item endpoints
	mux.Handle("GET /api/tree", Wrap(ih.ListTree, cfg, limiters))
	mux.Handle("POST /api/items", Wrap(ih.Create, cfg, limiters))
	mux.Handle("GET /api/items/{id}", Wrap(ih.Get, cfg, limiters))
	mux.Handle("DELETE /api/items/{id}", Wrap(ih.Delete, cfg, limiters))
	mux.Handle("PUT /api/items/{id}/name", Wrap(ih.Rename, cfg, limiters))
	mux.Handle("PUT /api/items/{id}/parent", Wrap(ih.Move, cfg, limiters))
	mux.Handle("GET /api/items/{id}/content", Wrap(ih.GetContent, cfg, limiters))
	mux.Handle("PUT /api/items/{id}/content", Wrap(ih.UpdateContent, cfg, limiters))
	mux.Handle("PUT /api/items/{id}/expanded", Wrap(ih.SetExpanded, cfg, limiters))
	mux.Handle("GET /api/items/{id}/preview", Wrap(ih.Preview, cfg, limiters))

	// View state
	mux.Handle("GET /api/state", Wrap(sth.GetState, cfg, limiters))
	mux.Handle("PUT /api/state", Wrap(sth.UpdateState, cfg, limiters))

	// Assets endpoints
	mux.Handle("GET /api/items/{id}/assets", Wrap(ah.ListAssets, cfg, limiters))
	mux.Handle("POST /api/items/{id}/assets", WrapRaw(ah.UploadAssetHandler, cfg, limiters))

	// File serving (raw image bytes)
	mux.Handle("GET /api/assets/{id}", WrapRaw(ah.ServeAssetFile, cfg, limiters))
	mux.Handle("GET /api/blobs/{token}", WrapRaw(ah.ServeBlobFile, cfg, limiters))

	// Search endpoint
	mux.Handle("GET /api/search", Wrap(srh.Search, cfg, limiters))

	// History endpoints
	mux.Handle("GET /api/history", Wrap(hih.History, cfg, limiters))
	mux.Handle("GET /api/items/{id}/history", Wrap(hih.History, cfg, limiters))
	mux.Handle("GET /api/items/{id}/history/{hash}", Wrap(hih.Version, cfg, limiters))

	// Vault-wide endpoints
	mux.Handle("GET /api/mode", Wrap(vh.GetMode, cfg, limiters))
	mux.Handle("POST /api/mode", Wrap(vh.SwitchMode, cfg, limiters))
	mux.Handle("POST /api/cleanup", Wrap(vh.Cleanup, cfg, limiters))
	mux.Handle("GET /api/schema", Wrap(vh.Schema, cfg, limiters))

	return mux
}

// Handles name search endpoints.

package handlers

import (
	"context"

	"github.com/notefs/notefs/internal/search"
	"github.com/notefs/notefs/internal/server/dto"
)

// SearchHandler handles search-related HTTP requests.
type SearchHandler struct {
	Svc *Services
}

// Search filters the tree by name. An empty query matches everything.
func (h *SearchHandler) Search(ctx context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	res := search.Find(h.Svc.Vault.Tree(), req.Query)
	return &dto.SearchResponse{
		Query:     res.Query,
		Matches:   matchesToDTO(res.Matches),
		ExpandIDs: res.ExpandIDs,
	}, nil
}

// Handles tree and item endpoints.

package handlers

import (
	"context"

	"github.com/notefs/notefs/internal/render"
	"github.com/notefs/notefs/internal/server/dto"
	"github.com/notefs/notefs/internal/vfs"
)

// ItemHandler handles item-related HTTP requests.
type ItemHandler struct {
	Svc *Services
}

// ListTree returns every item in display order together with the view state.
func (h *ItemHandler) ListTree(ctx context.Context, req *dto.GetTreeRequest) (*dto.TreeResponse, error) {
	return &dto.TreeResponse{
		Items: itemsToDTO(h.Svc.Vault.Items()),
		State: stateToDTO(h.Svc.Vault.State()),
	}, nil
}

// Get retrieves a single item's metadata.
func (h *ItemHandler) Get(ctx context.Context, req *dto.GetItemRequest) (*dto.ItemResponse, error) {
	it, err := h.Svc.Vault.Item(req.ID)
	if err != nil {
		return nil, vaultError(err)
	}
	return itemToDTO(it), nil
}

// Create creates a note or a folder under the given parent.
func (h *ItemHandler) Create(ctx context.Context, req *dto.CreateItemRequest) (*dto.ItemResponse, error) {
	var (
		it  *vfs.Item
		err error
	)
	if vfs.Kind(req.Kind) == vfs.KindFolder {
		it, err = h.Svc.Vault.CreateFolder(ctx, req.ParentID, req.Name)
	} else {
		it, err = h.Svc.Vault.CreateFile(ctx, req.ParentID, req.Name, req.Content)
	}
	if err != nil {
		return nil, vaultError(err)
	}
	return itemToDTO(it), nil
}

// Rename changes an item's name, keeping it in place.
func (h *ItemHandler) Rename(ctx context.Context, req *dto.RenameItemRequest) (*dto.ItemResponse, error) {
	it, err := h.Svc.Vault.Rename(ctx, req.ID, req.Name)
	if err != nil {
		return nil, vaultError(err)
	}
	return itemToDTO(it), nil
}

// Move reparents an item. A zero new_parent_id moves it to the root.
func (h *ItemHandler) Move(ctx context.Context, req *dto.MoveItemRequest) (*dto.ItemResponse, error) {
	it, err := h.Svc.Vault.Move(ctx, req.ID, req.NewParentID)
	if err != nil {
		return nil, vaultError(err)
	}
	return itemToDTO(it), nil
}

// Delete removes an item and, for folders, everything underneath it.
func (h *ItemHandler) Delete(ctx context.Context, req *dto.DeleteItemRequest) (*dto.DeleteItemResponse, error) {
	removed, err := h.Svc.Vault.Delete(ctx, req.ID)
	if err != nil {
		return nil, vaultError(err)
	}
	return &dto.DeleteItemResponse{Removed: removed}, nil
}

// GetContent returns a note's markdown body.
func (h *ItemHandler) GetContent(ctx context.Context, req *dto.GetContentRequest) (*dto.ContentResponse, error) {
	content, err := h.Svc.Vault.Content(ctx, req.ID)
	if err != nil {
		return nil, vaultError(err)
	}
	return &dto.ContentResponse{ID: req.ID, Content: content}, nil
}

// UpdateContent replaces a note's markdown body.
func (h *ItemHandler) UpdateContent(ctx context.Context, req *dto.UpdateContentRequest) (*dto.ItemResponse, error) {
	it, err := h.Svc.Vault.SetContent(ctx, req.ID, req.Content)
	if err != nil {
		return nil, vaultError(err)
	}
	return itemToDTO(it), nil
}

// SetExpanded toggles a folder open or closed in the sidebar.
func (h *ItemHandler) SetExpanded(ctx context.Context, req *dto.SetExpandedRequest) (*dto.OkResponse, error) {
	if err := h.Svc.Vault.SetExpanded(req.ID, req.Expanded); err != nil {
		return nil, vaultError(err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

// Preview renders a note's markdown to HTML, splitting off any front matter.
func (h *ItemHandler) Preview(ctx context.Context, req *dto.PreviewRequest) (*dto.PreviewResponse, error) {
	it, err := h.Svc.Vault.Item(req.ID)
	if err != nil {
		return nil, vaultError(err)
	}
	content, err := h.Svc.Vault.Content(ctx, req.ID)
	if err != nil {
		return nil, vaultError(err)
	}
	p := render.Render(it.Name, content)
	return &dto.PreviewResponse{Title: p.Title, Tags: p.Tags, HTML: p.HTML}, nil
}

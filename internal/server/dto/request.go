package dto

import (
	"github.com/maruel/ksid"
)

// --- Health ---

// HealthRequest is a request for the health check.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// --- Tree and items ---

// GetTreeRequest is a request for the full item tree.
type GetTreeRequest struct{}

// Validate is a no-op for GetTreeRequest.
func (r *GetTreeRequest) Validate() error {
	return nil
}

// GetItemRequest is a request for a single item.
type GetItemRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the get item request fields.
func (r *GetItemRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// CreateItemRequest is a request to create a file or folder.
// A zero parent_id creates the item at the vault root.
type CreateItemRequest struct {
	ParentID ksid.ID `json:"parent_id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Content  string  `json:"content"`
}

// Validate validates the create item request fields.
func (r *CreateItemRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	switch r.Kind {
	case "file":
	case "folder":
		if r.Content != "" {
			return BadRequest("folders have no content")
		}
	default:
		return InvalidField("kind", "must be \"file\" or \"folder\"")
	}
	return nil
}

// RenameItemRequest is a request to rename an item in place.
type RenameItemRequest struct {
	ID   ksid.ID `path:"id"`
	Name string  `json:"name"`
}

// Validate validates the rename request fields.
func (r *RenameItemRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	if r.Name == "" {
		return MissingField("name")
	}
	return nil
}

// MoveItemRequest is a request to move an item under a new parent folder.
// A zero new_parent_id moves the item to the vault root.
type MoveItemRequest struct {
	ID          ksid.ID `path:"id"`
	NewParentID ksid.ID `json:"new_parent_id"`
}

// Validate validates the move request fields.
func (r *MoveItemRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// DeleteItemRequest is a request to delete an item and its descendants.
type DeleteItemRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the delete request fields.
func (r *DeleteItemRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// GetContentRequest is a request for a file's content.
type GetContentRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the get content request fields.
func (r *GetContentRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// UpdateContentRequest is a request to replace a file's content. An empty
// content clears the file.
type UpdateContentRequest struct {
	ID      ksid.ID `path:"id"`
	Content string  `json:"content"`
}

// Validate validates the update content request fields.
func (r *UpdateContentRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// SetExpandedRequest is a request to expand or collapse a folder.
type SetExpandedRequest struct {
	ID       ksid.ID `path:"id"`
	Expanded bool    `json:"expanded"`
}

// Validate validates the set expanded request fields.
func (r *SetExpandedRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// PreviewRequest is a request for a note rendered to HTML.
type PreviewRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the preview request fields.
func (r *PreviewRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// --- View state ---

// GetStateRequest is a request for the vault view state.
type GetStateRequest struct{}

// Validate is a no-op for GetStateRequest.
func (r *GetStateRequest) Validate() error {
	return nil
}

// UpdateStateRequest is a partial update of the vault view state. Absent
// fields keep their current value. A present active_id of zero clears the
// selection. reveal_active expands every ancestor of the active item.
type UpdateStateRequest struct {
	ActiveID      *ksid.ID `json:"active_id"`
	SidebarHidden *bool    `json:"sidebar_hidden"`
	RevealActive  bool     `json:"reveal_active"`
}

// Validate is a no-op for UpdateStateRequest.
func (r *UpdateStateRequest) Validate() error {
	return nil
}

// --- Assets ---

// ListAssetsRequest is a request for the image assets shown next to an item.
type ListAssetsRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the list assets request fields.
func (r *ListAssetsRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	return nil
}

// CleanupRequest is a request to scan for, and optionally remove, image
// assets that no note references. With dry_run the report lists the orphans
// and nothing is removed.
type CleanupRequest struct {
	DryRun bool `json:"dry_run"`
}

// Validate is a no-op for CleanupRequest.
func (r *CleanupRequest) Validate() error {
	return nil
}

// --- Search ---

// SearchRequest is a request to filter the tree by name. An empty query
// matches everything.
type SearchRequest struct {
	Query string `query:"q"`
}

// Validate is a no-op for SearchRequest.
func (r *SearchRequest) Validate() error {
	return nil
}

// --- History ---

// HistoryRequest is a request for the commit history of an item, or of the
// whole vault when no item id is present.
type HistoryRequest struct {
	ID    ksid.ID `path:"id"`
	Limit int     `query:"limit"`
}

// Validate validates the history request fields.
func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return InvalidField("limit", "must be non-negative")
	}
	return nil
}

// VersionRequest is a request for a file's content at a past commit.
type VersionRequest struct {
	ID   ksid.ID `path:"id"`
	Hash string  `path:"hash"`
}

// Validate validates the version request fields.
func (r *VersionRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid item id")
	}
	if r.Hash == "" {
		return MissingField("hash")
	}
	return nil
}

// --- Mode ---

// GetModeRequest is a request for the active storage mode.
type GetModeRequest struct{}

// Validate is a no-op for GetModeRequest.
func (r *GetModeRequest) Validate() error {
	return nil
}

// SwitchModeRequest is a request to switch the vault to another storage
// mode.
type SwitchModeRequest struct {
	Mode string `json:"mode"`
}

// Validate validates the switch mode request fields.
func (r *SwitchModeRequest) Validate() error {
	if r.Mode == "" {
		return MissingField("mode")
	}
	return nil
}

// --- Schema ---

// SchemaRequest is a request for the persisted document JSON schema.
type SchemaRequest struct{}

// Validate is a no-op for SchemaRequest.
func (r *SchemaRequest) Validate() error {
	return nil
}

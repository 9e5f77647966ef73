package dto

import (
	"time"

	"github.com/maruel/ksid"
)

// --- Common responses ---

// OkResponse is a simple success response.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// --- Items ---

// ItemResponse is the API shape of one tree item. Content is not included;
// it is fetched through the content endpoint.
type ItemResponse struct {
	ID       ksid.ID   `json:"id"`
	ParentID ksid.ID   `json:"parent_id,omitzero"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Expanded bool      `json:"expanded,omitempty"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// TreeResponse is the full item tree in display order plus the view state.
type TreeResponse struct {
	Items []*ItemResponse `json:"items"`
	State *StateResponse  `json:"state"`
}

// ContentResponse is a file's content.
type ContentResponse struct {
	ID      ksid.ID `json:"id"`
	Content string  `json:"content"`
}

// DeleteItemResponse reports how many items a recursive delete removed.
type DeleteItemResponse struct {
	Removed int `json:"removed"`
}

// PreviewResponse is a note rendered to HTML.
type PreviewResponse struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
	HTML  string   `json:"html"`
}

// --- View state ---

// StateResponse is the vault-level view state.
type StateResponse struct {
	Mode          string  `json:"mode"`
	ActiveID      ksid.ID `json:"active_id,omitzero"`
	SidebarHidden bool    `json:"sidebar_hidden"`
	GitEnabled    bool    `json:"git_enabled"`
	SaveError     string  `json:"save_error,omitempty"`
}

// --- Assets ---

// AssetRef is a displayable reference to one image asset.
type AssetRef struct {
	ID   ksid.ID `json:"id"`
	Name string  `json:"name"`
	URI  string  `json:"uri"`
}

// ListAssetsResponse lists the image assets shown next to an item.
type ListAssetsResponse struct {
	Assets []*AssetRef `json:"assets"`
}

// UploadAssetResponse is a response from uploading an asset.
type UploadAssetResponse struct {
	Asset *ItemResponse `json:"asset"`
}

// CleanupResponse is the orphaned-asset report.
type CleanupResponse struct {
	Orphans        []string `json:"orphans"`
	SkippedFolders []string `json:"skipped_folders,omitempty"`
	Removed        int      `json:"removed"`
	DryRun         bool     `json:"dry_run"`
}

// --- Search ---

// Span is a half-open rune range to highlight in a matched name.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SearchMatch is one matched item with its highlight spans.
type SearchMatch struct {
	Item  *ItemResponse `json:"item"`
	Spans []Span        `json:"spans,omitempty"`
}

// SearchResponse is the result of filtering the tree by name.
type SearchResponse struct {
	Query     string         `json:"query"`
	Matches   []*SearchMatch `json:"matches"`
	ExpandIDs []ksid.ID      `json:"expand_ids,omitempty"`
}

// --- History ---

// CommitResponse is one commit in a history listing.
type CommitResponse struct {
	Hash        string    `json:"hash"`
	Message     string    `json:"message"`
	Body        string    `json:"body,omitempty"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
}

// HistoryResponse is a commit history listing, newest first.
type HistoryResponse struct {
	Commits []*CommitResponse `json:"commits"`
}

// VersionResponse is a file's content at a past commit.
type VersionResponse struct {
	Hash    string `json:"hash"`
	Content string `json:"content"`
}

// --- Mode ---

// ModeResponse reports the active storage mode.
type ModeResponse struct {
	Mode string `json:"mode"`
}

// --- Health ---

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

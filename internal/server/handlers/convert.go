// Converts domain types to their API shapes.

package handlers

import (
	"github.com/notefs/notefs/internal/assets"
	"github.com/notefs/notefs/internal/search"
	"github.com/notefs/notefs/internal/server/dto"
	"github.com/notefs/notefs/internal/storage"
	"github.com/notefs/notefs/internal/storage/git"
	"github.com/notefs/notefs/internal/vfs"
)

func itemToDTO(it *vfs.Item) *dto.ItemResponse {
	return &dto.ItemResponse{
		ID:       it.ID,
		ParentID: it.ParentID,
		Name:     it.Name,
		Kind:     string(it.Kind),
		Expanded: it.Expanded,
		Created:  it.Created,
		Modified: it.Modified,
	}
}

func itemsToDTO(items []*vfs.Item) []*dto.ItemResponse {
	out := make([]*dto.ItemResponse, len(items))
	for i, it := range items {
		out[i] = itemToDTO(it)
	}
	return out
}

func stateToDTO(s *storage.State) *dto.StateResponse {
	return &dto.StateResponse{
		Mode:          string(s.Mode),
		ActiveID:      s.ActiveID,
		SidebarHidden: s.SidebarHidden,
		GitEnabled:    s.GitEnabled,
		SaveError:     s.SaveError,
	}
}

func refsToDTO(refs []*assets.Ref) []*dto.AssetRef {
	out := make([]*dto.AssetRef, len(refs))
	for i, r := range refs {
		out[i] = &dto.AssetRef{ID: r.ID, Name: r.Name, URI: r.URI}
	}
	return out
}

func matchesToDTO(matches []*search.Match) []*dto.SearchMatch {
	out := make([]*dto.SearchMatch, len(matches))
	for i, m := range matches {
		sm := &dto.SearchMatch{Item: itemToDTO(m.Item)}
		for _, sp := range m.Spans {
			sm.Spans = append(sm.Spans, dto.Span{Start: sp.Start, End: sp.End})
		}
		out[i] = sm
	}
	return out
}

func commitsToDTO(commits []*git.Commit) []*dto.CommitResponse {
	out := make([]*dto.CommitResponse, len(commits))
	for i, c := range commits {
		out[i] = &dto.CommitResponse{
			Hash:        c.Hash,
			Message:     c.Message,
			Body:        c.Body,
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			Date:        c.Date,
		}
	}
	return out
}

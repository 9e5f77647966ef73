// Package handlers implements the HTTP API over the vault: tree and content
// operations, view state, sibling assets, search, previews, history and
// storage mode control.
package handlers

import (
	"github.com/notefs/notefs/internal/assets"
	"github.com/notefs/notefs/internal/storage"
)

// Services holds the service dependencies shared by all handlers.
type Services struct {
	Vault    *storage.Vault
	Resolver *assets.Resolver
}

// Config holds configuration values needed by handlers and the wrapper.
type Config struct {
	Version string
	Quotas  storage.Quotas
}

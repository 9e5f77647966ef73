// Manages server configuration stored in config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config stores all server-wide configuration. Loaded from config.json,
// created with defaults if missing.
type Config struct {
	// Quotas defines resource limits.
	Quotas Quotas `json:"quotas"`

	// Debounce defines how long bursts are coalesced, in milliseconds.
	Debounce Debounce `json:"debounce"`

	// Git enables version history for disk vaults.
	Git GitConfig `json:"git"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `json:"rate_limits"`
}

// Quotas defines resource limits.
type Quotas struct {
	// MaxDocumentBytes caps the persisted vault document, mirroring the
	// small quota of browser key-value storage. 0 means unlimited.
	MaxDocumentBytes int64 `json:"max_document_bytes"`

	// MaxUploadBytes caps a single asset upload. Must be positive.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`
}

// Validate checks that all quota values are sane.
func (q *Quotas) Validate() error {
	if q.MaxDocumentBytes < 0 {
		return errors.New("max_document_bytes must be non-negative")
	}
	if q.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if q.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	return nil
}

// DefaultQuotas returns the default quotas.
func DefaultQuotas() Quotas {
	return Quotas{
		MaxDocumentBytes:    5 * 1024 * 1024,  // 5 MiB, the classic localStorage budget
		MaxUploadBytes:      10 * 1024 * 1024, // 10 MiB
		MaxRequestBodyBytes: 20 * 1024 * 1024, // 20 MiB
	}
}

// Debounce defines the coalescing windows in milliseconds.
type Debounce struct {
	// SaveMs delays persisted document writes after a change.
	SaveMs int `json:"save_ms"`

	// AssetResolveMs delays sibling asset resolution after a selection
	// change.
	AssetResolveMs int `json:"asset_resolve_ms"`

	// WatchMs delays a rescan after external filesystem events.
	WatchMs int `json:"watch_ms"`
}

// Validate checks that all debounce values are non-negative.
func (d *Debounce) Validate() error {
	if d.SaveMs < 0 {
		return errors.New("save_ms must be non-negative")
	}
	if d.AssetResolveMs < 0 {
		return errors.New("asset_resolve_ms must be non-negative")
	}
	if d.WatchMs < 0 {
		return errors.New("watch_ms must be non-negative")
	}
	return nil
}

// DefaultDebounce returns the default debounce windows.
func DefaultDebounce() Debounce {
	return Debounce{
		SaveMs:         300,
		AssetResolveMs: 50,
		WatchMs:        500,
	}
}

// GitConfig configures version history for disk vaults.
type GitConfig struct {
	// Enabled turns on a git repository at the vault root.
	Enabled bool `json:"enabled"`

	// AuthorName and AuthorEmail are used for commits.
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// Validate checks that the author is set when history is enabled.
func (g *GitConfig) Validate() error {
	if g.Enabled && (g.AuthorName == "" || g.AuthorEmail == "") {
		return errors.New("author_name and author_email are required when git is enabled")
	}
	return nil
}

// DefaultGitConfig returns the default git configuration.
func DefaultGitConfig() GitConfig {
	return GitConfig{
		Enabled:     false,
		AuthorName:  "notefs",
		AuthorEmail: "notefs@localhost",
	}
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// WriteRatePerMin limits write operations (POST/PUT/DELETE).
	// 0 means unlimited.
	WriteRatePerMin int `json:"write_rate_per_min"`

	// ReadRatePerMin limits read operations.
	// 0 means unlimited.
	ReadRatePerMin int `json:"read_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		WriteRatePerMin: 600,  // 600 req/min for writes
		ReadRatePerMin:  6000, // 6k req/min for reads
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.Debounce.Validate(); err != nil {
		return fmt.Errorf("debounce: %w", err)
	}
	if err := c.Git.Validate(); err != nil {
		return fmt.Errorf("git: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from dataDir/config.json. Creates the file
// with defaults if it doesn't exist.
func LoadConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.json")

	cfg := Config{
		Quotas:     DefaultQuotas(),
		Debounce:   DefaultDebounce(),
		Git:        DefaultGitConfig(),
		RateLimits: DefaultRateLimits(),
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.json: %w", err)
		}
		out, err := json.MarshalIndent(&cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode config.json: %w", err)
		}
		if err := os.WriteFile(path, out, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write config.json: %w", err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.json: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

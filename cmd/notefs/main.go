// Package main is the entry point for the notefs server.
//
// notefs is a local-first note vault that keeps a tree of markdown notes,
// folders and image assets, and exposes it over a RESTful HTTP API. Notes
// live either in a persisted single-document store or directly on disk;
// the two modes never share data. Configuration is read from CLI flags and
// config.json (quotas, debounce windows, git history, rate limits).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/notefs/notefs/internal/assets"
	"github.com/notefs/notefs/internal/dirfs"
	"github.com/notefs/notefs/internal/kvstore"
	"github.com/notefs/notefs/internal/server"
	"github.com/notefs/notefs/internal/server/handlers"
	"github.com/notefs/notefs/internal/server/ratelimit"
	"github.com/notefs/notefs/internal/storage"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "notefs: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080). Use 0.0.0.0:port to listen on all interfaces.")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	modeFlag := flag.String("mode", "memory", "Initial storage mode (memory, disk)")
	vaultDir := flag.String("vault", "", "Disk vault directory (default <data-dir>/vault)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop time when running under systemd.
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	mode := storage.Mode(*modeFlag)
	if mode != storage.ModeMemory && mode != storage.ModeDisk {
		return fmt.Errorf("unknown storage mode: %q", *modeFlag)
	}

	// Normalize addr: ":8080" becomes "localhost:8080".
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := storage.LoadConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config.json: %w", err)
	}

	vaultPath := *vaultDir
	if vaultPath == "" {
		vaultPath = filepath.Join(*dataDir, "vault")
	}
	if err := os.MkdirAll(vaultPath, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	factory := func(ctx context.Context, mode storage.Mode) (storage.Backend, error) {
		switch mode {
		case storage.ModeMemory:
			store, err := kvstore.NewFileStore(filepath.Join(*dataDir, "kv"), cfg.Quotas.MaxDocumentBytes)
			if err != nil {
				return nil, err
			}
			return storage.NewMemoryBackend(store), nil
		case storage.ModeDisk:
			root, err := dirfs.OpenRoot(vaultPath)
			if err != nil {
				return nil, err
			}
			return storage.NewDiskBackend(ctx, root, time.Duration(cfg.Debounce.WatchMs)*time.Millisecond)
		}
		return nil, fmt.Errorf("unknown storage mode %q", mode)
	}

	vault, err := storage.New(ctx, cfg, factory, mode)
	if err != nil {
		return err
	}
	resolver := assets.NewResolver(vault, time.Duration(cfg.Debounce.AssetResolveMs)*time.Millisecond)
	defer func() {
		resolver.Stop()
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := vault.Close(closeCtx); err != nil {
			slog.Warn("Failed to close vault", "err", err)
		}
	}()
	// External edits can add or remove sibling images under the active note.
	vault.SetOnInvalidate(func() {
		resolver.SetActive(vault.State().ActiveID)
	})

	limiters := ratelimit.NewLimiters(cfg.RateLimits.ReadRatePerMin, cfg.RateLimits.WriteRatePerMin)
	defer limiters.Close()

	buildVersion, _, _, _ := getBuildInfo()
	svc := &handlers.Services{
		Vault:    vault,
		Resolver: resolver,
	}
	scfg := &handlers.Config{
		Version: buildVersion,
		Quotas:  cfg.Quotas,
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, scfg, limiters),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "mode", mode, "vault", vaultPath, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	// Wait for either context cancellation or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		// Graceful shutdown
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("notefs %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. This enables seamless
// restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/studyhub/internal/contentsync"
	"github.com/p-n-ai/studyhub/internal/gate"
	"github.com/p-n-ai/studyhub/internal/httpapi"
	"github.com/p-n-ai/studyhub/internal/platform/config"
	"github.com/p-n-ai/studyhub/internal/progress"
	"github.com/p-n-ai/studyhub/internal/sheets"
	"github.com/p-n-ai/studyhub/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	kv, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.Storage.Backend,
		Path:        cfg.Storage.Path,
		RedisURL:    cfg.Cache.URL,
		RedisPrefix: cfg.Cache.Prefix,
		DatabaseURL: cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	store := progress.NewStore(ctx, kv, cfg.Storage.Key,
		progress.WithLogger(logger),
		progress.WithNoteDelay(cfg.Notes.Debounce),
	)
	store.StartSession(time.Now())

	settings := httpapi.SyncSettings{
		SpreadsheetID:          cfg.Sheets.SpreadsheetID,
		APIKey:                 cfg.Sheets.APIKey,
		AutoRefresh:            cfg.Sync.AutoRefresh,
		RefreshIntervalSeconds: cfg.Sync.RefreshInterval,
	}
	sourceFor := func(s httpapi.SyncSettings) contentsync.Source {
		return newSource(cfg.Sheets, s, logger)
	}

	ctrl := contentsync.New(sourceFor(settings),
		contentsync.WithLogger(logger),
		contentsync.WithAutoRefresh(cfg.Sync.AutoRefresh),
		contentsync.WithInterval(time.Duration(cfg.Sync.RefreshInterval)*time.Second),
		contentsync.WithFetchTimeout(cfg.Sheets.Timeout),
	)
	if err := ctrl.Start(ctx); err != nil {
		slog.Error("failed to start content sync", "error", err)
		os.Exit(1)
	}

	g, err := gate.New(cfg.Admin.Password)
	if err != nil {
		slog.Error("failed to configure settings gate", "error", err)
		os.Exit(1)
	}

	api := httpapi.New(ctrl, store,
		httpapi.WithLogger(logger),
		httpapi.WithGate(g, sourceFor, settings),
	)
	mux := newMux(api, store)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "sync", ctrl.Status().Status)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	ctrl.Stop()
	if err := store.Close(); err != nil {
		slog.Error("saving pending notes failed", "error", err)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newSource picks the content source for the given credentials. Remote
// credentials win; otherwise a configured workbook is used. With neither the
// returned client is unconfigured and the controller runs offline.
func newSource(cfg config.SheetsConfig, s httpapi.SyncSettings, logger *slog.Logger) contentsync.Source {
	client := sheets.NewClient(s.SpreadsheetID, s.APIKey,
		sheets.WithBaseURL(cfg.BaseURL),
		sheets.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		sheets.WithLogger(logger),
	)
	if client.IsConfigured() || cfg.Workbook == "" {
		return client
	}
	return sheets.NewWorkbookSource(cfg.Workbook, logger)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newMux creates the HTTP router with health check endpoints and the API.
func newMux(api *httpapi.Server, backend pinger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(backend))
	if api != nil {
		api.Register(mux)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(backend pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := backend.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}

// Package httpapi exposes the content snapshot, sync status and learner
// progress over JSON HTTP, plus a websocket stream of sync status changes.
package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/p-n-ai/studyhub/internal/contentsync"
	"github.com/p-n-ai/studyhub/internal/gate"
	"github.com/p-n-ai/studyhub/internal/progress"
)

// DefaultSessionTTL is how long an unlocked settings session stays valid.
const DefaultSessionTTL = 30 * time.Minute

// SettingsHeader carries the settings session token.
const SettingsHeader = "X-Settings-Token"

// SyncSettings is the editable remote source configuration.
type SyncSettings struct {
	SpreadsheetID          string `json:"spreadsheetId"`
	APIKey                 string `json:"apiKey"`
	AutoRefresh            bool   `json:"autoRefresh"`
	RefreshIntervalSeconds int    `json:"refreshInterval"`
}

// SourceFactory builds a content source for new sync settings.
type SourceFactory func(SyncSettings) contentsync.Source

// Server serves the API.
type Server struct {
	sync      *contentsync.Controller
	store     *progress.Store
	gate      *gate.Gate
	newSource SourceFactory
	logger    *slog.Logger
	now       func() time.Time
	ttl       time.Duration

	mu       sync.Mutex
	settings SyncSettings
	sessions map[string]time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGate enables the settings endpoints behind g.
func WithGate(g *gate.Gate, newSource SourceFactory, current SyncSettings) Option {
	return func(s *Server) {
		s.gate = g
		s.newSource = newSource
		s.settings = current
	}
}

// WithSessionTTL sets how long a settings session lasts.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) {
		s.ttl = d
	}
}

// WithClock sets the clock (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server.
func New(ctrl *contentsync.Controller, store *progress.Store, opts ...Option) *Server {
	s := &Server{
		sync:     ctrl,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		ttl:      DefaultSessionTTL,
		sessions: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/content", s.handleContent)
	mux.HandleFunc("GET /api/content/topics/{topicID}", s.handleTopic)

	mux.HandleFunc("GET /api/sync", s.handleSyncStatus)
	mux.HandleFunc("POST /api/sync/refresh", s.handleSyncRefresh)
	mux.HandleFunc("GET /ws/sync", s.handleSyncStream)

	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("POST /api/progress/sections", s.handleCompleteSection)
	mux.HandleFunc("POST /api/progress/quiz", s.handleAnswerQuiz)
	mux.HandleFunc("POST /api/progress/bookmarks", s.handleToggleBookmark)
	mux.HandleFunc("PUT /api/progress/notes/{topicID}", s.handleEditNote)
	mux.HandleFunc("POST /api/progress/notes/{topicID}/save", s.handleSaveNote)
	mux.HandleFunc("POST /api/progress/reset", s.handleReset)
	mux.HandleFunc("PUT /api/progress/settings", s.handleUpdateSettings)
	mux.HandleFunc("POST /api/progress/settings/dark-mode", s.handleToggleDarkMode)

	mux.HandleFunc("POST /api/settings/unlock", s.handleUnlock)
	mux.HandleFunc("GET /api/settings/sync", s.requireSession(s.handleGetSyncSettings))
	mux.HandleFunc("PUT /api/settings/sync", s.requireSession(s.handlePutSyncSettings))
}

// Handler returns a mux with only the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

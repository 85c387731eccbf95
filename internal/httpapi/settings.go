package httpapi

import (
	"errors"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/studyhub/internal/contentsync"
	"github.com/p-n-ai/studyhub/internal/gate"
)

type unlockRequest struct {
	Password string `json:"password"`
}

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type syncSettingsResponse struct {
	Settings SyncSettings           `json:"settings"`
	Status   contentsync.StatusInfo `json:"status"`
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusNotFound, "settings are disabled")
		return
	}
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := s.gate.Unlock(req.Password); {
	case errors.Is(err, gate.ErrLocked):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		s.logger.Warn("settings unlock rejected", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	token := uuid.NewString()
	expires := s.now().Add(s.ttl)

	s.mu.Lock()
	now := s.now()
	maps.DeleteFunc(s.sessions, func(_ string, exp time.Time) bool { return !now.Before(exp) })
	s.sessions[token] = expires
	s.mu.Unlock()

	s.logger.Info("settings unlocked", "remote_addr", r.RemoteAddr)
	writeJSON(w, http.StatusOK, unlockResponse{Token: token, ExpiresAt: expires})
}

func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gate == nil {
			writeError(w, http.StatusNotFound, "settings are disabled")
			return
		}
		token := r.Header.Get(SettingsHeader)

		s.mu.Lock()
		exp, ok := s.sessions[token]
		valid := ok && s.now().Before(exp)
		if ok && !valid {
			delete(s.sessions, token)
		}
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "settings are locked")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleGetSyncSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()
	settings.APIKey = maskSecret(settings.APIKey)
	writeJSON(w, http.StatusOK, syncSettingsResponse{Settings: settings, Status: s.sync.Status()})
}

// handlePutSyncSettings swaps the content source. An empty apiKey keeps the
// current key so clients never need to echo it back.
func (s *Server) handlePutSyncSettings(w http.ResponseWriter, r *http.Request) {
	var req SyncSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshIntervalSeconds < 0 {
		writeError(w, http.StatusBadRequest, "refreshInterval must not be negative")
		return
	}
	if req.RefreshIntervalSeconds == 0 {
		req.RefreshIntervalSeconds = int(contentsync.DefaultInterval / time.Second)
	}
	req.SpreadsheetID = strings.TrimSpace(req.SpreadsheetID)
	req.APIKey = strings.TrimSpace(req.APIKey)

	s.mu.Lock()
	if req.APIKey == "" {
		req.APIKey = s.settings.APIKey
	}
	s.settings = req
	s.mu.Unlock()

	src := s.newSource(req)
	err := s.sync.Reconfigure(src,
		contentsync.WithAutoRefresh(req.AutoRefresh),
		contentsync.WithInterval(time.Duration(req.RefreshIntervalSeconds)*time.Second),
	)
	if err != nil {
		s.logger.Warn("sync after reconfiguration failed", "error", err)
	}
	s.logger.Info("sync settings updated",
		"configured", src != nil && src.IsConfigured(),
		"auto_refresh", req.AutoRefresh,
		"interval_s", req.RefreshIntervalSeconds,
	)

	req.APIKey = maskSecret(req.APIKey)
	writeJSON(w, http.StatusOK, syncSettingsResponse{Settings: req, Status: s.sync.Status()})
}

// maskSecret keeps the last four characters of a secret.
func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

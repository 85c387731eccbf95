package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/p-n-ai/studyhub/internal/progress"
)

type progressResponse struct {
	State   progress.State   `json:"state"`
	Summary progress.Summary `json:"summary"`
}

type sectionRequest struct {
	TopicID   string `json:"topicId"`
	SectionID string `json:"sectionId"`
}

type quizRequest struct {
	TopicID string `json:"topicId"`
	Answer  string `json:"answer"`
}

type noteRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	state := s.store.Get()
	writeJSON(w, http.StatusOK, progressResponse{
		State:   state,
		Summary: progress.Summarize(s.sync.Snapshot(), state.Progress),
	})
}

func (s *Server) handleCompleteSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TopicID == "" || req.SectionID == "" {
		writeError(w, http.StatusBadRequest, "topicId and sectionId are required")
		return
	}

	snap := s.sync.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "content not loaded yet")
		return
	}
	ordinal, total, ok := snap.SectionOrdinal(req.TopicID, req.SectionID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown section: "+req.SectionID)
		return
	}

	res := s.store.CompleteSection(req.TopicID, ordinal, total)
	s.logger.Info("section completed",
		"topic_id", req.TopicID,
		"section_id", req.SectionID,
		"accepted", res.Accepted,
		"progress", res.Progress,
	)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TopicID == "" || strings.TrimSpace(req.Answer) == "" {
		writeError(w, http.StatusBadRequest, "topicId and answer are required")
		return
	}

	snap := s.sync.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "content not loaded yet")
		return
	}
	res, err := s.store.AnswerQuiz(req.TopicID, snap.QuizQuestions[req.TopicID], req.Answer)
	if errors.Is(err, progress.ErrNoQuiz) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TopicID == "" || req.SectionID == "" {
		writeError(w, http.StatusBadRequest, "topicId and sectionId are required")
		return
	}
	bookmarked := s.store.ToggleBookmark(req.TopicID, req.SectionID)
	writeJSON(w, http.StatusOK, map[string]any{
		"key":        progress.BookmarkKey(req.TopicID, req.SectionID),
		"bookmarked": bookmarked,
	})
}

func (s *Server) handleEditNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	topicID := r.PathValue("topicID")
	s.store.EditNote(topicID, req.Text)
	writeJSON(w, http.StatusAccepted, map[string]string{"topicId": topicID, "text": req.Text})
}

// handleSaveNote flushes a pending note edit. Storage failures are logged by
// the store and not reported to the client.
func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	topicID := r.PathValue("topicID")
	if err := s.store.SaveNote(topicID); err != nil {
		s.logger.Warn("saving note failed", "topic_id", topicID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"topicId": topicID, "text": s.store.Note(topicID)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset()
	s.handleProgress(w, r)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings progress.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.UpdateSettings(settings)
	writeJSON(w, http.StatusOK, s.store.Get().Settings)
}

func (s *Server) handleToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	s.store.ToggleDarkMode()
	writeJSON(w, http.StatusOK, s.store.Get().Settings)
}

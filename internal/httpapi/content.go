package httpapi

import (
	"errors"
	"net/http"

	"github.com/p-n-ai/studyhub/internal/content"
	"github.com/p-n-ai/studyhub/internal/contentsync"
)

// TopicDetail is everything a topic view needs in one response.
type TopicDetail struct {
	SubjectKey   string                            `json:"subjectKey"`
	Topic        content.Topic                     `json:"topic"`
	Sections     []content.Section                 `json:"sections"`
	Objectives   []content.LearningObjective       `json:"objectives"`
	KeyTerms     []content.KeyTerm                 `json:"keyTerms"`
	StudyContent map[string][]content.StudyContent `json:"studyContent"`
	Formulas     []content.Formula                 `json:"formulas"`
	Quiz         []content.QuizQuestion            `json:"quiz"`
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	snap := s.sync.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "content not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	snap := s.sync.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "content not loaded yet")
		return
	}
	topicID := r.PathValue("topicID")
	topic, subjectKey, ok := snap.Topic(topicID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown topic: "+topicID)
		return
	}

	sections := snap.Sections[topicID]
	detail := TopicDetail{
		SubjectKey:   subjectKey,
		Topic:        topic,
		Sections:     nonNil(sections),
		Objectives:   nonNil(snap.Objectives[topicID]),
		KeyTerms:     nonNil(snap.KeyTerms[topicID]),
		StudyContent: make(map[string][]content.StudyContent, len(sections)),
		Formulas:     nonNil(snap.Formulas[topicID]),
		Quiz:         nonNil(snap.QuizQuestions[topicID]),
	}
	for _, sec := range sections {
		detail.StudyContent[sec.ID] = nonNil(snap.StudyContent[sec.ID])
	}
	writeJSON(w, http.StatusOK, detail)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Status())
}

// handleSyncRefresh runs a manual sync. Sync failures are reported through
// the returned status, not the HTTP code.
func (s *Server) handleSyncRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.sync.Refresh(r.Context())
	if errors.Is(err, contentsync.ErrSyncInProgress) {
		writeJSON(w, http.StatusConflict, s.sync.Status())
		return
	}
	if err != nil {
		s.logger.Debug("manual refresh failed", "error", err)
	}
	writeJSON(w, http.StatusOK, s.sync.Status())
}

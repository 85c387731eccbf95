// Package progress owns the learner's mutable state: XP, streak, per-topic
// completion, bookmarks, notes and unlocked achievements.
package progress

import (
	"maps"
	"slices"
)

// Achievement IDs unlocked by the store itself.
const (
	AchievementFirstLogin    = "first-login"
	AchievementFirstQuiz     = "first-quiz"
	AchievementStreak5       = "streak-5"
	AchievementStreak10      = "streak-10"
	AchievementTopicComplete = "topic-complete"
)

// TopicProgress is the completion record of one topic.
type TopicProgress struct {
	Progress     int    `json:"progress"`
	XP           int    `json:"xp"`
	LastAccessed string `json:"lastAccessed,omitempty"`
}

// QuizScore records the last answer submitted for a topic's quiz.
type QuizScore struct {
	Answer     string `json:"answer"`
	Correct    bool   `json:"correct"`
	XP         int    `json:"xp"`
	AnsweredAt string `json:"answeredAt"`
}

// Progress is the persisted learner record. LastStudyDate is a calendar date
// (YYYY-MM-DD) or nil before the first session.
type Progress struct {
	Topics           map[string]TopicProgress `json:"topics"`
	XP               int                      `json:"xp"`
	Streak           int                      `json:"streak"`
	LastStudyDate    *string                  `json:"lastStudyDate"`
	StudyTimeMinutes int                      `json:"studyTimeMinutes"`
	QuizScores       map[string]QuizScore     `json:"quizScores"`
	Bookmarks        []string                 `json:"bookmarks"`
	Notes            map[string]string        `json:"notes"`
	Achievements     []string                 `json:"achievements"`
}

// Settings are the learner's display preferences.
type Settings struct {
	DarkMode      bool `json:"darkMode"`
	Notifications bool `json:"notifications"`
	SoundEffects  bool `json:"soundEffects"`
}

// State is the whole persisted blob.
type State struct {
	Progress Progress `json:"progress"`
	Settings Settings `json:"settings"`
}

// DefaultProgress returns the progress of a brand-new learner.
func DefaultProgress() Progress {
	return Progress{
		Topics:       map[string]TopicProgress{},
		XP:           0,
		Streak:       1,
		QuizScores:   map[string]QuizScore{},
		Bookmarks:    []string{},
		Notes:        map[string]string{},
		Achievements: []string{AchievementFirstLogin},
	}
}

// DefaultSettings returns the initial preferences.
func DefaultSettings() Settings {
	return Settings{DarkMode: false, Notifications: true, SoundEffects: true}
}

// DefaultState returns the blob used when nothing usable is stored.
func DefaultState() State {
	return State{Progress: DefaultProgress(), Settings: DefaultSettings()}
}

// Patch is a partial update of Progress. Nil fields are left untouched.
// Topics and Notes are merged key by key; every other field replaces the
// stored value.
type Patch struct {
	Topics           map[string]TopicProgress
	XP               *int
	Streak           *int
	LastStudyDate    *string
	StudyTimeMinutes *int
	QuizScores       map[string]QuizScore
	Bookmarks        []string
	Notes            map[string]string
	Achievements     []string
}

// Apply merges the patch into p.
func (p *Progress) Apply(patch Patch) {
	if patch.XP != nil {
		p.XP = *patch.XP
	}
	if patch.Streak != nil {
		p.Streak = *patch.Streak
	}
	if patch.LastStudyDate != nil {
		d := *patch.LastStudyDate
		p.LastStudyDate = &d
	}
	if patch.StudyTimeMinutes != nil {
		p.StudyTimeMinutes = *patch.StudyTimeMinutes
	}
	if patch.QuizScores != nil {
		p.QuizScores = maps.Clone(patch.QuizScores)
	}
	if patch.Bookmarks != nil {
		p.Bookmarks = slices.Clone(patch.Bookmarks)
	}
	if patch.Achievements != nil {
		p.Achievements = slices.Clone(patch.Achievements)
	}
	if patch.Topics != nil {
		if p.Topics == nil {
			p.Topics = make(map[string]TopicProgress, len(patch.Topics))
		}
		maps.Copy(p.Topics, patch.Topics)
	}
	if patch.Notes != nil {
		if p.Notes == nil {
			p.Notes = make(map[string]string, len(patch.Notes))
		}
		maps.Copy(p.Notes, patch.Notes)
	}
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	out := p
	out.Topics = maps.Clone(p.Topics)
	out.QuizScores = maps.Clone(p.QuizScores)
	out.Notes = maps.Clone(p.Notes)
	out.Bookmarks = slices.Clone(p.Bookmarks)
	out.Achievements = slices.Clone(p.Achievements)
	if p.LastStudyDate != nil {
		d := *p.LastStudyDate
		out.LastStudyDate = &d
	}
	return out
}

// HasAchievement reports whether an achievement is unlocked.
func (p Progress) HasAchievement(id string) bool {
	return slices.Contains(p.Achievements, id)
}

// normalize replaces nil collections left by a partial blob.
func (s *State) normalize() {
	p := &s.Progress
	if p.Topics == nil {
		p.Topics = map[string]TopicProgress{}
	}
	if p.QuizScores == nil {
		p.QuizScores = map[string]QuizScore{}
	}
	if p.Notes == nil {
		p.Notes = map[string]string{}
	}
	if p.Bookmarks == nil {
		p.Bookmarks = []string{}
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	if p.Streak < 1 {
		p.Streak = 1
	}
}

// unlock appends ids that are not yet present.
func unlock(achievements []string, ids ...string) []string {
	out := slices.Clone(achievements)
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

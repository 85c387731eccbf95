package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/studyhub/internal/content"
	"github.com/p-n-ai/studyhub/internal/storage"
)

const (
	// DefaultKey is the storage key of the progress blob.
	DefaultKey = "studyhub_v6_data"
	// DefaultNoteDelay is the quiet period before an edited note is saved.
	DefaultNoteDelay = time.Second

	// SectionXP is awarded for each accepted section completion.
	SectionXP = 10
	// SectionStudyMinutes is added to study time for each accepted completion.
	SectionStudyMinutes = 2

	dateLayout   = "2006-01-02"
	writeTimeout = 5 * time.Second
)

// ErrNoQuiz is returned by AnswerQuiz for a topic without questions.
var ErrNoQuiz = errors.New("topic has no quiz questions")

// PersistenceError reports a failed read or write of the stored blob.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s progress %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store holds the learner state in memory and writes the whole blob back to
// the KV backend after every change. Write failures are logged and dropped;
// the in-memory state stays authoritative until the next successful write.
type Store struct {
	kv     storage.KV
	key    string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	pending map[string]string
	notes   *Debouncer
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	logger    *slog.Logger
	now       func() time.Time
	noteDelay time.Duration
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		c.logger = logger
	}
}

// WithClock sets the clock used for timestamps (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) {
		c.now = now
	}
}

// WithNoteDelay sets the quiet period before an edited note is persisted.
func WithNoteDelay(d time.Duration) Option {
	return func(c *storeConfig) {
		c.noteDelay = d
	}
}

// NewStore loads the blob stored under key. A missing, unreadable or invalid
// blob yields the default state; NewStore never fails.
func NewStore(ctx context.Context, kv storage.KV, key string, opts ...Option) *Store {
	cfg := storeConfig{
		logger:    slog.Default(),
		now:       time.Now,
		noteDelay: DefaultNoteDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if key == "" {
		key = DefaultKey
	}

	s := &Store{
		kv:      kv,
		key:     key,
		logger:  cfg.logger,
		now:     cfg.now,
		pending: make(map[string]string),
		notes:   NewDebouncer(cfg.noteDelay),
	}
	s.state = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) State {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Info("no stored progress, starting fresh", "key", s.key)
		return DefaultState()
	}
	if err != nil {
		s.logger.Warn("progress unavailable, using defaults", "error", &PersistenceError{Op: "read", Key: s.key, Err: err})
		return DefaultState()
	}
	if err := validateBlob(data); err != nil {
		s.logger.Warn("stored progress rejected, using defaults", "key", s.key, "error", err)
		return DefaultState()
	}

	state := DefaultState()
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("stored progress unreadable, using defaults", "key", s.key, "error", err)
		return DefaultState()
	}
	state.normalize()
	s.logger.Info("progress loaded", "key", s.key, "xp", state.Progress.XP, "streak", state.Progress.Streak)
	return state
}

// persistLocked writes the blob. Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return &PersistenceError{Op: "encode", Key: s.key, Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		perr := &PersistenceError{Op: "write", Key: s.key, Err: err}
		s.logger.Warn("progress write failed", "error", perr)
		return perr
	}
	return nil
}

// Get returns a copy of the state. Unsaved note edits are included.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := State{Progress: s.state.Progress.Clone(), Settings: s.state.Settings}
	for topicID, text := range s.pending {
		out.Progress.Notes[topicID] = text
	}
	return out
}

// Update merges a patch and persists the result.
func (s *Store) Update(p Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Progress.Apply(p)
	_ = s.persistLocked()
}

// Flush writes the current state and returns any failure.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// StartSession advances the streak for the calendar day of now. It does
// nothing when a session was already started that day. It reports whether the
// streak changed.
func (s *Store) StartSession(now time.Time) bool {
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.state.Progress
	if p.LastStudyDate != nil && *p.LastStudyDate == today {
		return false
	}

	streak := 1
	if p.LastStudyDate != nil && *p.LastStudyDate == yesterday {
		streak = p.Streak + 1
	}

	var earned []string
	if streak >= 5 {
		earned = append(earned, AchievementStreak5)
	}
	if streak >= 10 {
		earned = append(earned, AchievementStreak10)
	}

	s.state.Progress.Apply(Patch{
		Streak:        &streak,
		LastStudyDate: &today,
		Achievements:  unlock(p.Achievements, earned...),
	})
	_ = s.persistLocked()

	s.logger.Info("study session started", "date", today, "streak", streak)
	return true
}

// SectionResult describes the effect of CompleteSection.
type SectionResult struct {
	Accepted       bool `json:"accepted"`
	Progress       int  `json:"progress"`
	XPAwarded      int  `json:"xpAwarded"`
	TopicCompleted bool `json:"topicCompleted"`
}

// SectionProgress is the topic percentage reached by completing the section
// at ordinal (zero-based) out of total.
func SectionProgress(ordinal, total int) int {
	if total <= 0 || ordinal < 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(ordinal+1) / float64(total)))
	return min(pct, 100)
}

// CompleteSection records that the section at ordinal of a topic with total
// sections was finished. Progress only ever increases; a completion that
// would not raise it is ignored.
func (s *Store) CompleteSection(topicID string, ordinal, total int) SectionResult {
	next := SectionProgress(ordinal, total)

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.state.Progress
	current := p.Topics[topicID]
	if next <= current.Progress {
		return SectionResult{Progress: current.Progress}
	}

	xp := p.XP + SectionXP
	minutes := p.StudyTimeMinutes + SectionStudyMinutes
	completed := next == 100 && !p.HasAchievement(AchievementTopicComplete)
	achievements := p.Achievements
	if next == 100 {
		achievements = unlock(achievements, AchievementTopicComplete)
	}

	topic := TopicProgress{
		Progress:     next,
		XP:           current.XP + SectionXP,
		LastAccessed: s.now().UTC().Format(time.RFC3339Nano),
	}
	s.state.Progress.Apply(Patch{
		XP:               &xp,
		Topics:           map[string]TopicProgress{topicID: topic},
		StudyTimeMinutes: &minutes,
		Achievements:     achievements,
	})
	_ = s.persistLocked()

	return SectionResult{
		Accepted:       true,
		Progress:       next,
		XPAwarded:      SectionXP,
		TopicCompleted: completed,
	}
}

// QuizResult describes the outcome of AnswerQuiz.
type QuizResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	XPAwarded     int    `json:"xpAwarded"`
}

// AnswerQuiz scores an answer against the first question of a topic's quiz.
// Further questions are not evaluated. A correct answer earns the question's
// XP reward.
func (s *Store) AnswerQuiz(topicID string, questions []content.QuizQuestion, answer string) (QuizResult, error) {
	if len(questions) == 0 {
		return QuizResult{}, ErrNoQuiz
	}
	q := questions[0]
	answer = strings.ToUpper(strings.TrimSpace(answer))
	result := QuizResult{
		Correct:       answer == q.CorrectAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	if result.Correct {
		result.XPAwarded = q.XPReward
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.state.Progress
	xp := p.XP + result.XPAwarded
	scores := make(map[string]QuizScore, len(p.QuizScores)+1)
	for k, v := range p.QuizScores {
		scores[k] = v
	}
	scores[topicID] = QuizScore{
		Answer:     answer,
		Correct:    result.Correct,
		XP:         result.XPAwarded,
		AnsweredAt: s.now().UTC().Format(time.RFC3339Nano),
	}

	s.state.Progress.Apply(Patch{
		XP:           &xp,
		QuizScores:   scores,
		Achievements: unlock(p.Achievements, AchievementFirstQuiz),
	})
	_ = s.persistLocked()
	return result, nil
}

// BookmarkKey is the stored form of a section bookmark.
func BookmarkKey(topicID, sectionID string) string {
	return topicID + "-" + sectionID
}

// ToggleBookmark adds the bookmark if absent and removes it if present. It
// reports whether the section is bookmarked afterwards.
func (s *Store) ToggleBookmark(topicID, sectionID string) bool {
	key := BookmarkKey(topicID, sectionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state.Progress.Bookmarks
	next := make([]string, 0, len(current)+1)
	found := false
	for _, b := range current {
		if b == key {
			found = true
			continue
		}
		next = append(next, b)
	}
	if !found {
		next = append(next, key)
	}

	s.state.Progress.Apply(Patch{Bookmarks: next})
	_ = s.persistLocked()
	return !found
}

// IsBookmarked reports whether a section is bookmarked.
func (s *Store) IsBookmarked(topicID, sectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Progress.HasBookmark(BookmarkKey(topicID, sectionID))
}

// HasBookmark reports whether a bookmark key is stored.
func (p Progress) HasBookmark(key string) bool {
	for _, b := range p.Bookmarks {
		if b == key {
			return true
		}
	}
	return false
}

// EditNote records a keystroke-level edit. The note is persisted once no
// further edit arrives for the quiet period, or on SaveNote.
func (s *Store) EditNote(topicID, text string) {
	s.mu.Lock()
	s.pending[topicID] = text
	s.mu.Unlock()

	s.notes.Trigger(topicID, func() {
		if err := s.SaveNote(topicID); err != nil {
			s.logger.Debug("debounced note save failed", "topic_id", topicID, "error", err)
		}
	})
}

// SaveNote persists any pending edit of a topic's note immediately.
func (s *Store) SaveNote(topicID string) error {
	s.notes.Cancel(topicID)

	s.mu.Lock()
	defer s.mu.Unlock()

	text, ok := s.pending[topicID]
	if !ok {
		return nil
	}
	delete(s.pending, topicID)
	s.state.Progress.Apply(Patch{Notes: map[string]string{topicID: text}})
	return s.persistLocked()
}

// Note returns a topic's note including unsaved edits.
func (s *Store) Note(topicID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text, ok := s.pending[topicID]; ok {
		return text
	}
	return s.state.Progress.Notes[topicID]
}

// ToggleDarkMode flips the dark mode setting and returns the new value.
func (s *Store) ToggleDarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings.DarkMode = !s.state.Settings.DarkMode
	_ = s.persistLocked()
	return s.state.Settings.DarkMode
}

// UpdateSettings replaces the display preferences.
func (s *Store) UpdateSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings = settings
	_ = s.persistLocked()
}

// Reset restores default progress. Settings are kept; unsaved note edits are
// discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	for topicID := range s.pending {
		s.notes.Cancel(topicID)
	}
	clear(s.pending)
	s.state.Progress = DefaultProgress()
	_ = s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("progress reset", "key", s.key)
}

// Close stops the note timers and saves pending edits.
func (s *Store) Close() error {
	s.notes.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	for topicID, text := range s.pending {
		s.state.Progress.Notes[topicID] = text
	}
	clear(s.pending)
	return s.persistLocked()
}

// Ping checks the storage backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

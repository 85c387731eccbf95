package progress

import (
	"fmt"
	"math"

	"github.com/p-n-ai/studyhub/internal/content"
)

// XPPerLevel is the XP span of one level.
const XPPerLevel = 200

// Level is the learner level for an XP total, starting at 1.
func Level(xp int) int {
	return xp/XPPerLevel + 1
}

// XPToNextLevel is the XP still missing to reach the next level.
func XPToNextLevel(xp int) int {
	return XPPerLevel - xp%XPPerLevel
}

// SubjectProgress is the mean topic progress of a subject rounded to the
// nearest integer. A subject without topics has progress 0.
func SubjectProgress(subject content.Subject, p Progress) int {
	if len(subject.Topics) == 0 {
		return 0
	}
	total := 0
	for _, t := range subject.Topics {
		total += p.Topics[t.ID].Progress
	}
	return int(math.Round(float64(total) / float64(len(subject.Topics))))
}

// CompletedTopics counts the topics at 100% across all subjects of snap.
func CompletedTopics(snap *content.Snapshot, p Progress) int {
	if snap == nil {
		return 0
	}
	n := 0
	for _, s := range snap.Subjects {
		for _, t := range s.Topics {
			if p.Topics[t.ID].Progress >= 100 {
				n++
			}
		}
	}
	return n
}

// FormatStudyTime renders minutes as "45m", "1h 5m" or "2h".
func FormatStudyTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// Summary is the dashboard view of a learner's progress.
type Summary struct {
	XP              int            `json:"xp"`
	Level           int            `json:"level"`
	XPToNextLevel   int            `json:"xpToNextLevel"`
	Streak          int            `json:"streak"`
	StudyTime       string         `json:"studyTime"`
	CompletedTopics int            `json:"completedTopics"`
	Subjects        map[string]int `json:"subjects"`
	Achievements    int            `json:"achievements"`
}

// Summarize computes the derived values of p against a content snapshot.
func Summarize(snap *content.Snapshot, p Progress) Summary {
	sum := Summary{
		XP:              p.XP,
		Level:           Level(p.XP),
		XPToNextLevel:   XPToNextLevel(p.XP),
		Streak:          p.Streak,
		StudyTime:       FormatStudyTime(p.StudyTimeMinutes),
		CompletedTopics: CompletedTopics(snap, p),
		Subjects:        map[string]int{},
		Achievements:    len(p.Achievements),
	}
	if snap != nil {
		for _, s := range snap.Subjects {
			sum.Subjects[s.Key] = SubjectProgress(s, p)
		}
	}
	return sum
}

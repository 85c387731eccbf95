package content

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/p-n-ai/studyhub/internal/sheets"
)

// Field defaults applied when a cell is blank or unparseable.
const (
	DefaultTopicDuration   = 20
	DefaultQuizXP          = 10
	DefaultSubjectIcon     = "BookOpen"
	DefaultSubjectColor    = "#6366F1"
	DefaultSubjectLightBg  = "bg-slate-50"
	DefaultGradientFrom    = "slate-500"
	DefaultGradientTo      = "slate-600"
	DefaultSubjectGlow     = "shadow-slate-500/20"
	DefaultSectionIcon     = "FileText"
	DefaultContentType     = "text"
	DefaultAchievementIcon = "Star"
)

// TransformSubjects builds subjects in row order. A repeated key replaces the
// earlier subject in place.
func TransformSubjects(t sheets.Table) []Subject {
	subjects := []Subject{}
	index := make(map[string]int)
	for _, row := range t.Rows {
		rec, ok := decodeSubject(row)
		if !ok {
			continue
		}
		sub := Subject{
			Key:      rec.Key,
			ID:       orDefault(rec.ID, rec.Key),
			Name:     orDefault(rec.Name, rec.Key),
			Icon:     orDefault(rec.Icon, DefaultSubjectIcon),
			Color:    orDefault(rec.ColorHex, DefaultSubjectColor),
			LightBg:  orDefault(rec.LightBg, DefaultSubjectLightBg),
			Gradient: fmt.Sprintf("from-%s to-%s", orDefault(rec.GradientFrom, DefaultGradientFrom), orDefault(rec.GradientTo, DefaultGradientTo)),
			DarkGlow: orDefault(rec.DarkGlow, DefaultSubjectGlow),
			Topics:   []Topic{},
		}
		if i, seen := index[rec.Key]; seen {
			subjects[i] = sub
			continue
		}
		index[rec.Key] = len(subjects)
		subjects = append(subjects, sub)
	}
	return subjects
}

// AttachTopics appends topic rows to the subject they reference and sorts each
// subject's topics by order index. Rows naming an unknown subject are dropped.
func AttachTopics(t sheets.Table, subjects []Subject) []Subject {
	index := make(map[string]int, len(subjects))
	for i, sub := range subjects {
		index[sub.Key] = i
	}
	for _, row := range t.Rows {
		rec, ok := decodeTopic(row)
		if !ok {
			continue
		}
		i, found := index[rec.SubjectKey]
		if !found {
			continue
		}
		subjects[i].Topics = append(subjects[i].Topics, Topic{
			ID:         rec.ID,
			Name:       rec.Name,
			Duration:   rec.Duration,
			OrderIndex: rec.OrderIndex,
		})
	}
	for i := range subjects {
		slices.SortStableFunc(subjects[i].Topics, func(a, b Topic) int {
			return cmp.Compare(a.OrderIndex, b.OrderIndex)
		})
	}
	return subjects
}

// TransformSections groups sections by topic ID.
func TransformSections(t sheets.Table) map[string][]Section {
	out := make(map[string][]Section)
	for _, row := range t.Rows {
		rec, ok := decodeSection(row)
		if !ok {
			continue
		}
		out[rec.TopicID] = append(out[rec.TopicID], Section{
			ID:         rec.ID,
			Title:      rec.Title,
			Icon:       orDefault(rec.Icon, DefaultSectionIcon),
			Type:       ParseSectionType(rec.Type),
			OrderIndex: rec.OrderIndex,
		})
	}
	sortBuckets(out, func(s Section) int { return s.OrderIndex })
	return out
}

// TransformObjectives groups learning objectives by topic ID.
func TransformObjectives(t sheets.Table) map[string][]LearningObjective {
	out := make(map[string][]LearningObjective)
	for _, row := range t.Rows {
		rec, ok := decodeObjective(row)
		if !ok {
			continue
		}
		out[rec.TopicID] = append(out[rec.TopicID], LearningObjective{
			ID:         rec.ID,
			Text:       rec.Text,
			OrderIndex: rec.OrderIndex,
		})
	}
	sortBuckets(out, func(o LearningObjective) int { return o.OrderIndex })
	return out
}

// TransformKeyTerms groups key terms by topic ID, keeping row order.
func TransformKeyTerms(t sheets.Table) map[string][]KeyTerm {
	out := make(map[string][]KeyTerm)
	for _, row := range t.Rows {
		rec, ok := decodeKeyTerm(row)
		if !ok {
			continue
		}
		out[rec.TopicID] = append(out[rec.TopicID], KeyTerm{
			ID:         rec.ID,
			Term:       rec.Term,
			Definition: rec.Definition,
		})
	}
	return out
}

// TransformStudyContent groups content blocks by section ID.
func TransformStudyContent(t sheets.Table) map[string][]StudyContent {
	out := make(map[string][]StudyContent)
	for _, row := range t.Rows {
		rec, ok := decodeContent(row)
		if !ok {
			continue
		}
		out[rec.SectionID] = append(out[rec.SectionID], StudyContent{
			ID:         rec.ID,
			Type:       orDefault(rec.Type, DefaultContentType),
			Title:      rec.Title,
			Text:       rec.Text,
			OrderIndex: rec.OrderIndex,
		})
	}
	sortBuckets(out, func(c StudyContent) int { return c.OrderIndex })
	return out
}

// TransformFormulas groups formulas by topic ID, keeping row order.
func TransformFormulas(t sheets.Table) map[string][]Formula {
	out := make(map[string][]Formula)
	for _, row := range t.Rows {
		rec, ok := decodeFormula(row)
		if !ok {
			continue
		}
		vars := rec.Variables
		if vars == nil {
			vars = []Variable{}
		}
		out[rec.TopicID] = append(out[rec.TopicID], Formula{
			ID:        rec.ID,
			Formula:   rec.Text,
			Label:     rec.Label,
			Variables: vars,
		})
	}
	return out
}

// TransformQuizzes groups quiz questions by topic ID, keeping row order.
func TransformQuizzes(t sheets.Table) map[string][]QuizQuestion {
	out := make(map[string][]QuizQuestion)
	for _, row := range t.Rows {
		rec, ok := decodeQuiz(row)
		if !ok {
			continue
		}
		opts := rec.Options
		if opts == nil {
			opts = []QuizOption{}
		}
		out[rec.TopicID] = append(out[rec.TopicID], QuizQuestion{
			ID:            rec.ID,
			Question:      rec.Question,
			Options:       opts,
			CorrectAnswer: rec.CorrectAnswer,
			Explanation:   rec.Explanation,
			XPReward:      rec.XPReward,
		})
	}
	return out
}

// TransformAchievements reads the achievement catalog in row order.
func TransformAchievements(t sheets.Table) []Achievement {
	out := []Achievement{}
	for _, row := range t.Rows {
		rec, ok := decodeAchievement(row)
		if !ok {
			continue
		}
		out = append(out, Achievement{
			ID:          rec.ID,
			Icon:        orDefault(rec.Icon, DefaultAchievementIcon),
			Name:        rec.Name,
			Description: rec.Description,
			Condition:   rec.Condition,
		})
	}
	return out
}

// TransformAll builds a snapshot from a full table set. Missing tables are
// treated as empty. The result may have no subjects; callers decide whether
// that is acceptable.
func TransformAll(tables sheets.TableSet) *Snapshot {
	subjects := TransformSubjects(tables[sheets.TableSubjects])
	subjects = AttachTopics(tables[sheets.TableTopics], subjects)

	return &Snapshot{
		Subjects:      subjects,
		Sections:      TransformSections(tables[sheets.TableTopicSections]),
		Objectives:    TransformObjectives(tables[sheets.TableLearningObjectives]),
		KeyTerms:      TransformKeyTerms(tables[sheets.TableKeyTerms]),
		StudyContent:  TransformStudyContent(tables[sheets.TableStudyContent]),
		Formulas:      TransformFormulas(tables[sheets.TableFormulas]),
		QuizQuestions: TransformQuizzes(tables[sheets.TableQuizQuestions]),
		Achievements:  TransformAchievements(tables[sheets.TableAchievements]),
	}
}

// sortBuckets stable-sorts every bucket by order index once all rows have been
// appended, so equal indexes keep their row order.
func sortBuckets[T any](buckets map[string][]T, order func(T) int) {
	for _, items := range buckets {
		slices.SortStableFunc(items, func(a, b T) int {
			return cmp.Compare(order(a), order(b))
		})
	}
}

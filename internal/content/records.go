package content

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/studyhub/internal/sheets"
)

// Row records decouple the normalizer from the raw column map. Each decode
// function reports false when the row lacks a key column and must be dropped.

type subjectRecord struct {
	Key          string
	ID           string
	Name         string
	Icon         string
	ColorHex     string
	LightBg      string
	GradientFrom string
	GradientTo   string
	DarkGlow     string
}

func decodeSubject(r sheets.Row) (subjectRecord, bool) {
	rec := subjectRecord{
		Key:          r.Get("subject_key"),
		ID:           r.Get("subject_id"),
		Name:         r.Get("name"),
		Icon:         r.Get("icon"),
		ColorHex:     r.Get("color_hex"),
		LightBg:      r.Get("light_bg"),
		GradientFrom: r.Get("gradient_from"),
		GradientTo:   r.Get("gradient_to"),
		DarkGlow:     r.Get("dark_glow"),
	}
	return rec, rec.Key != ""
}

type topicRecord struct {
	ID         string
	SubjectKey string
	Name       string
	Duration   int
	OrderIndex int
}

func decodeTopic(r sheets.Row) (topicRecord, bool) {
	rec := topicRecord{
		ID:         r.Get("topic_id"),
		SubjectKey: r.Get("subject_key"),
		Name:       r.Get("topic_name"),
		Duration:   positiveInt(r.Get("duration_minutes"), DefaultTopicDuration),
		OrderIndex: intOr(r.Get("order_index"), 0),
	}
	return rec, rec.ID != "" && rec.SubjectKey != ""
}

type sectionRecord struct {
	ID         string
	TopicID    string
	Title      string
	Icon       string
	Type       string
	OrderIndex int
}

func decodeSection(r sheets.Row) (sectionRecord, bool) {
	rec := sectionRecord{
		ID:         r.Get("section_id"),
		TopicID:    r.Get("topic_id"),
		Title:      r.Get("section_title"),
		Icon:       r.Get("section_icon"),
		Type:       r.Get("section_type"),
		OrderIndex: intOr(r.Get("order_index"), 0),
	}
	return rec, rec.ID != "" && rec.TopicID != ""
}

type objectiveRecord struct {
	ID         string
	TopicID    string
	Text       string
	OrderIndex int
}

func decodeObjective(r sheets.Row) (objectiveRecord, bool) {
	rec := objectiveRecord{
		ID:         r.Get("objective_id"),
		TopicID:    r.Get("topic_id"),
		Text:       r.Get("objective_text"),
		OrderIndex: intOr(r.Get("order_index"), 0),
	}
	return rec, rec.ID != "" && rec.TopicID != ""
}

type keyTermRecord struct {
	ID         string
	TopicID    string
	Term       string
	Definition string
}

func decodeKeyTerm(r sheets.Row) (keyTermRecord, bool) {
	rec := keyTermRecord{
		ID:         r.Get("term_id"),
		TopicID:    r.Get("topic_id"),
		Term:       r.Get("term"),
		Definition: r.Get("definition"),
	}
	return rec, rec.ID != "" && rec.TopicID != ""
}

type contentRecord struct {
	ID         string
	SectionID  string
	Type       string
	Title      string
	Text       string
	OrderIndex int
}

func decodeContent(r sheets.Row) (contentRecord, bool) {
	rec := contentRecord{
		ID:         r.Get("content_id"),
		SectionID:  r.Get("section_id"),
		Type:       r.Get("content_type"),
		Title:      r.Get("content_title"),
		Text:       r.Get("content_text"),
		OrderIndex: intOr(r.Get("order_index"), 0),
	}
	return rec, rec.ID != "" && rec.SectionID != ""
}

// MaxFormulaVariables is the number of variable column groups a formula row
// may carry.
const MaxFormulaVariables = 5

type formulaRecord struct {
	ID        string
	TopicID   string
	Text      string
	Label     string
	Variables []Variable
}

func decodeFormula(r sheets.Row) (formulaRecord, bool) {
	rec := formulaRecord{
		ID:      r.Get("formula_id"),
		TopicID: r.Get("topic_id"),
		Text:    r.Get("formula_text"),
		Label:   r.Get("formula_label"),
	}
	for i := 1; i <= MaxFormulaVariables; i++ {
		symbol := r.Get(variableColumn(i, "symbol"))
		if symbol == "" {
			continue
		}
		rec.Variables = append(rec.Variables, Variable{
			Symbol: symbol,
			Name:   r.Get(variableColumn(i, "name")),
			Unit:   r.Get(variableColumn(i, "unit")),
		})
	}
	return rec, rec.ID != "" && rec.TopicID != ""
}

func variableColumn(i int, field string) string {
	return fmt.Sprintf("variable_%d_%s", i, field)
}

// QuizOptionLabels are the answer slots of a quiz row.
var QuizOptionLabels = []string{"A", "B", "C", "D"}

type quizRecord struct {
	ID            string
	TopicID       string
	Question      string
	Options       []QuizOption
	CorrectAnswer string
	Explanation   string
	XPReward      int
}

func decodeQuiz(r sheets.Row) (quizRecord, bool) {
	rec := quizRecord{
		ID:            r.Get("question_id"),
		TopicID:       r.Get("topic_id"),
		Question:      r.Get("question_text"),
		CorrectAnswer: strings.ToUpper(r.Get("correct_answer")),
		Explanation:   r.Get("explanation"),
		XPReward:      positiveInt(r.Get("xp_reward"), DefaultQuizXP),
	}
	if rec.CorrectAnswer == "" {
		rec.CorrectAnswer = "A"
	}
	for _, label := range QuizOptionLabels {
		text := r.Get("option_" + strings.ToLower(label))
		if text == "" {
			continue
		}
		rec.Options = append(rec.Options, QuizOption{Label: label, Text: text})
	}
	return rec, rec.ID != "" && rec.TopicID != ""
}

type achievementRecord struct {
	ID          string
	Icon        string
	Name        string
	Description string
	Condition   string
}

func decodeAchievement(r sheets.Row) (achievementRecord, bool) {
	rec := achievementRecord{
		ID:          r.Get("achievement_id"),
		Icon:        r.Get("icon"),
		Name:        r.Get("name"),
		Description: r.Get("description"),
		Condition:   r.Get("unlock_condition"),
	}
	return rec, rec.ID != ""
}

// maxIntDigits keeps parseLeadingInt clear of int64 overflow.
const maxIntDigits = 18

// parseLeadingInt reads an optionally signed run of leading digits, ignoring
// anything after it ("25 min" and "25.5" both yield 25). Runs longer than
// maxIntDigits are rejected.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i == start || i-start > maxIntDigits {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func intOr(s string, def int) int {
	if n, ok := parseLeadingInt(s); ok {
		return n
	}
	return def
}

func positiveInt(s string, def int) int {
	if n, ok := parseLeadingInt(s); ok && n > 0 {
		return n
	}
	return def
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

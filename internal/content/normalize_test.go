package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/studyhub/internal/sheets"
)

func table(rows ...[]string) sheets.Table {
	return sheets.ParseRows(rows)
}

func TestTransformSubjects_Defaults(t *testing.T) {
	subjects := TransformSubjects(table(
		[]string{"subject_key", "subject_id", "name", "icon", "color_hex", "light_bg", "gradient_from", "gradient_to", "dark_glow"},
		[]string{"physics", "phys-001", "Physics", "Zap", "#3B82F6", "bg-blue-50", "blue-500", "blue-600", "shadow-blue-500/20"},
		[]string{"art"},
		[]string{"", "orphan-001", "No Key"},
	))

	require.Len(t, subjects, 2)
	assert.Equal(t, "from-blue-500 to-blue-600", subjects[0].Gradient)

	art := subjects[1]
	assert.Equal(t, "art", art.ID)
	assert.Equal(t, "art", art.Name)
	assert.Equal(t, DefaultSubjectIcon, art.Icon)
	assert.Equal(t, DefaultSubjectColor, art.Color)
	assert.Equal(t, DefaultSubjectLightBg, art.LightBg)
	assert.Equal(t, "from-slate-500 to-slate-600", art.Gradient)
	assert.Equal(t, DefaultSubjectGlow, art.DarkGlow)
	assert.NotNil(t, art.Topics)
}

func TestTransformSubjects_DuplicateKeyReplacesInPlace(t *testing.T) {
	subjects := TransformSubjects(table(
		[]string{"subject_key", "name"},
		[]string{"math", "Maths"},
		[]string{"physics", "Physics"},
		[]string{"math", "Mathematics"},
	))

	require.Len(t, subjects, 2)
	assert.Equal(t, "math", subjects[0].Key)
	assert.Equal(t, "Mathematics", subjects[0].Name)
}

func TestAttachTopics(t *testing.T) {
	subjects := TransformSubjects(table(
		[]string{"subject_key"},
		[]string{"physics"},
		[]string{"math"},
	))
	subjects = AttachTopics(table(
		[]string{"topic_id", "subject_key", "topic_name", "duration_minutes", "order_index"},
		[]string{"p3", "physics", "Optics", "", "3"},
		[]string{"p1", "physics", "Forces", "25", "1"},
		[]string{"p2a", "physics", "Energy A", "abc", "2"},
		[]string{"p2b", "physics", "Energy B", "0", "2"},
		[]string{"", "physics", "No ID", "10", "0"},
		[]string{"x1", "history", "Unknown subject", "10", "1"},
		[]string{"m1", "math", "Exponents", "20 min", ""},
	), subjects)

	physics := subjects[0].Topics
	require.Len(t, physics, 4)
	assert.Equal(t, []string{"p1", "p2a", "p2b", "p3"}, []string{physics[0].ID, physics[1].ID, physics[2].ID, physics[3].ID})
	assert.Equal(t, 25, physics[0].Duration)
	assert.Equal(t, DefaultTopicDuration, physics[1].Duration, "unparseable duration")
	assert.Equal(t, DefaultTopicDuration, physics[2].Duration, "zero duration")
	assert.Equal(t, DefaultTopicDuration, physics[3].Duration, "blank duration")

	math := subjects[1].Topics
	require.Len(t, math, 1)
	assert.Equal(t, 20, math[0].Duration)
	assert.Equal(t, 0, math[0].OrderIndex)
}

func TestTransformSections_StableOrder(t *testing.T) {
	sections := TransformSections(table(
		[]string{"section_id", "topic_id", "section_title", "section_icon", "order_index", "section_type"},
		[]string{"s-late", "t1", "Late", "", "5", "quiz"},
		[]string{"s-first", "t1", "First tie", "Zap", "2", "intro"},
		[]string{"s-second", "t1", "Second tie", "", "2", "bogus"},
		[]string{"s-third", "t1", "Third tie", "", "2", ""},
		[]string{"s-other", "t2", "Other", "", "1", "objectives"},
		[]string{"s-none", "", "No topic", "", "1", ""},
		[]string{"", "t1", "No id", "", "1", ""},
	))

	require.Len(t, sections, 2)
	got := sections["t1"]
	require.Len(t, got, 4)
	assert.Equal(t, "s-first", got[0].ID)
	assert.Equal(t, "s-second", got[1].ID)
	assert.Equal(t, "s-third", got[2].ID)
	assert.Equal(t, "s-late", got[3].ID)

	assert.Equal(t, SectionIntro, got[0].Type)
	assert.Equal(t, SectionContent, got[1].Type, "unknown type")
	assert.Equal(t, SectionContent, got[2].Type, "blank type")
	assert.Equal(t, SectionQuiz, got[3].Type)
	assert.Equal(t, "Zap", got[0].Icon)
	assert.Equal(t, DefaultSectionIcon, got[1].Icon)
}

func TestTransformObjectivesAndContent(t *testing.T) {
	objectives := TransformObjectives(table(
		[]string{"objective_id", "topic_id", "objective_text", "order_index"},
		[]string{"o2", "t1", "Second", "2"},
		[]string{"o1", "t1", "First", "1"},
		[]string{"o0", "", "Dropped", "0"},
	))
	require.Len(t, objectives["t1"], 2)
	assert.Equal(t, "o1", objectives["t1"][0].ID)

	blocks := TransformStudyContent(table(
		[]string{"content_id", "section_id", "content_type", "content_title", "content_text", "order_index"},
		[]string{"c2", "s1", "", "", "body", "2"},
		[]string{"c1", "s1", "formula", "F", "F = m × a", "1"},
	))
	require.Len(t, blocks["s1"], 2)
	assert.Equal(t, "c1", blocks["s1"][0].ID)
	assert.Equal(t, DefaultContentType, blocks["s1"][1].Type)
}

func TestTransformKeyTerms_KeepsRowOrder(t *testing.T) {
	terms := TransformKeyTerms(table(
		[]string{"term_id", "topic_id", "term", "definition"},
		[]string{"k2", "t1", "Mass", "Matter"},
		[]string{"k1", "t1", "Force", "Push"},
		[]string{"", "t1", "Dropped", ""},
	))
	require.Len(t, terms["t1"], 2)
	assert.Equal(t, "k2", terms["t1"][0].ID)
}

func TestTransformFormulas_Variables(t *testing.T) {
	formulas := TransformFormulas(table(
		[]string{"formula_id", "topic_id", "formula_text", "formula_label",
			"variable_1_symbol", "variable_1_name", "variable_1_unit",
			"variable_2_symbol", "variable_2_name", "variable_2_unit",
			"variable_3_symbol", "variable_3_name", "variable_3_unit",
			"variable_5_symbol", "variable_5_name"},
		[]string{"f1", "t1", "F = m × a", "Second law", "F", "Force", "N", "", "Ignored", "kg", "a", "Acceleration", "", "v", "Velocity"},
		[]string{"f2", "t1", "E = mc²"},
	))

	require.Len(t, formulas["t1"], 2)
	vars := formulas["t1"][0].Variables
	assert.Equal(t, []Variable{
		{Symbol: "F", Name: "Force", Unit: "N"},
		{Symbol: "a", Name: "Acceleration", Unit: ""},
		{Symbol: "v", Name: "Velocity", Unit: ""},
	}, vars)
	assert.Empty(t, formulas["t1"][1].Variables)
	assert.NotNil(t, formulas["t1"][1].Variables)
}

func TestTransformQuizzes(t *testing.T) {
	quizzes := TransformQuizzes(table(
		[]string{"question_id", "topic_id", "question_text", "option_a", "option_b", "option_c", "option_d", "correct_answer", "explanation", "xp_reward"},
		[]string{"q1", "t1", "Pick one", "Yes", "", "  ", "Maybe", "d", "why", "15"},
		[]string{"q2", "t1", "No options", "", "", "", "", "", "", "-4"},
		[]string{"q3", "", "Orphan", "A"},
	))

	require.Len(t, quizzes["t1"], 2)
	q1 := quizzes["t1"][0]
	assert.Equal(t, []QuizOption{{Label: "A", Text: "Yes"}, {Label: "D", Text: "Maybe"}}, q1.Options)
	assert.Equal(t, "D", q1.CorrectAnswer)
	assert.Equal(t, 15, q1.XPReward)

	q2 := quizzes["t1"][1]
	assert.Empty(t, q2.Options)
	assert.Equal(t, "A", q2.CorrectAnswer)
	assert.Equal(t, DefaultQuizXP, q2.XPReward)
}

func TestTransformAchievements(t *testing.T) {
	got := TransformAchievements(table(
		[]string{"achievement_id", "icon", "name", "description", "unlock_condition"},
		[]string{"a1", "", "First", "Do it", "login"},
		[]string{"", "Zap", "Dropped", "", ""},
	))
	require.Len(t, got, 1)
	assert.Equal(t, DefaultAchievementIcon, got[0].Icon)
	assert.Equal(t, "login", got[0].Condition)
}

func TestTransformAll_MissingTables(t *testing.T) {
	snap := TransformAll(sheets.TableSet{})
	assert.Empty(t, snap.Subjects)
	assert.NotNil(t, snap.Sections)
	assert.NotNil(t, snap.QuizQuestions)
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"25", 25, true},
		{" 7 ", 7, true},
		{"25.9", 25, true},
		{"12abc", 12, true},
		{"-3", -3, true},
		{"+4", 4, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{"999999999999999999", 999999999999999999, true},
		{"99999999999999999999", 0, false},
		{"-99999999999999999999 min", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLeadingInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseLeadingInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPositiveIntOverflowFallsBack(t *testing.T) {
	assert.Equal(t, 15, positiveInt("99999999999999999999", 15))
	assert.Equal(t, 7, intOr("12345678901234567890123", 7))
}

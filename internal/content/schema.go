package content

import (
	"fmt"
	"slices"

	"github.com/p-n-ai/studyhub/internal/sheets"
)

// Schema describes the expected layout of one spreadsheet tab.
type Schema struct {
	Table       string   `json:"table"`
	Columns     []string `json:"columns"`
	Required    []string `json:"required"`
	Description string   `json:"description"`
}

// Schemas lists every tab in spreadsheet order.
var Schemas = []Schema{
	{
		Table:       sheets.TableSubjects,
		Columns:     []string{"subject_id", "subject_key", "name", "icon", "color_hex", "light_bg", "gradient_from", "gradient_to", "dark_glow"},
		Required:    []string{"subject_id", "subject_key", "name"},
		Description: "Define subjects with their visual styling",
	},
	{
		Table:       sheets.TableTopics,
		Columns:     []string{"topic_id", "subject_key", "topic_name", "duration_minutes", "order_index"},
		Required:    []string{"topic_id", "subject_key", "topic_name"},
		Description: "List all topics per subject",
	},
	{
		Table:       sheets.TableTopicSections,
		Columns:     []string{"section_id", "topic_id", "section_title", "section_icon", "order_index", "section_type"},
		Required:    []string{"section_id", "topic_id", "section_title"},
		Description: "Define sections within each topic",
	},
	{
		Table:       sheets.TableLearningObjectives,
		Columns:     []string{"objective_id", "topic_id", "objective_text", "order_index"},
		Required:    []string{"objective_id", "topic_id", "objective_text"},
		Description: "Learning objectives for each topic",
	},
	{
		Table:       sheets.TableKeyTerms,
		Columns:     []string{"term_id", "topic_id", "term", "definition"},
		Required:    []string{"term_id", "topic_id", "term", "definition"},
		Description: "Vocabulary terms and definitions",
	},
	{
		Table:       sheets.TableStudyContent,
		Columns:     []string{"content_id", "section_id", "content_type", "content_title", "content_text", "order_index"},
		Required:    []string{"content_id", "section_id", "content_type", "content_text"},
		Description: "Main educational content blocks",
	},
	{
		Table:       sheets.TableFormulas,
		Columns:     formulaColumns(),
		Required:    []string{"formula_id", "topic_id", "formula_text"},
		Description: "Mathematical and scientific formulas",
	},
	{
		Table:       sheets.TableQuizQuestions,
		Columns:     []string{"question_id", "topic_id", "question_text", "option_a", "option_b", "option_c", "option_d", "correct_answer", "explanation", "xp_reward"},
		Required:    []string{"question_id", "topic_id", "question_text", "option_a", "option_b", "correct_answer"},
		Description: "Multiple choice quiz questions",
	},
	{
		Table:       sheets.TableAchievements,
		Columns:     []string{"achievement_id", "icon", "name", "description", "unlock_condition"},
		Required:    []string{"achievement_id", "name", "description"},
		Description: "Gamification badges and achievements",
	},
}

func formulaColumns() []string {
	cols := []string{"formula_id", "topic_id", "formula_text", "formula_label"}
	for i := 1; i <= MaxFormulaVariables; i++ {
		cols = append(cols, variableColumn(i, "symbol"), variableColumn(i, "name"), variableColumn(i, "unit"))
	}
	return cols
}

// SchemaFor returns the schema of a tab.
func SchemaFor(table string) (Schema, bool) {
	for _, s := range Schemas {
		if s.Table == table {
			return s, true
		}
	}
	return Schema{}, false
}

// ContentTypes are the recognised study content block types.
var ContentTypes = []string{"introduction", "formula", "concept_helper", "warning", "real_world", "text"}

// Icons are the icon tags the front end can render.
var Icons = []string{
	"Zap", "Calculator", "FlaskConical", "Leaf", "Trophy", "Star", "Award", "Flame",
	"HelpCircle", "CheckCircle2", "Target", "BookOpen", "FileText", "Clock", "Globe",
	"Lightbulb", "AlertTriangle",
}

// iconColumns maps tabs to the column holding an icon tag.
var iconColumns = map[string]string{
	sheets.TableSubjects:      "icon",
	sheets.TableTopicSections: "section_icon",
	sheets.TableAchievements:  "icon",
}

// Report collects validation findings. Errors make a data set unusable;
// warnings flag content the front end will render with fallbacks.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether no errors were found.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateTables checks a table set against Schemas.
func ValidateTables(set sheets.TableSet) Report {
	var r Report
	for _, schema := range Schemas {
		table, ok := set[schema.Table]
		if !ok {
			r.errorf("missing required sheet: %s", schema.Table)
			continue
		}
		for _, col := range schema.Required {
			if !table.HasColumn(col) {
				r.errorf("%s: missing required column '%s'", schema.Table, col)
			}
		}
		if table.Len() == 0 {
			r.warnf("%s: no data rows found", schema.Table)
		}

		if schema.Table == sheets.TableStudyContent && table.HasColumn("content_type") {
			for _, row := range table.Rows {
				v := row.Get("content_type")
				if v != "" && !slices.Contains(ContentTypes, v) {
					r.warnf("%s row %d: invalid content_type '%s'", schema.Table, row.SourceRow, v)
				}
			}
		}
		if schema.Table == sheets.TableTopicSections && table.HasColumn("section_type") {
			for _, row := range table.Rows {
				v := row.Get("section_type")
				if v != "" && !slices.Contains(SectionTypes, SectionType(v)) {
					r.warnf("%s row %d: invalid section_type '%s'", schema.Table, row.SourceRow, v)
				}
			}
		}
		if col, ok := iconColumns[schema.Table]; ok && table.HasColumn(col) {
			for _, row := range table.Rows {
				v := row.Get(col)
				if v != "" && !slices.Contains(Icons, v) {
					r.warnf("%s row %d: unknown icon '%s'", schema.Table, row.SourceRow, v)
				}
			}
		}
	}
	return r
}

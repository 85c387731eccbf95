package content

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/p-n-ai/studyhub/internal/sheets"
)

// ToSheets renders a snapshot as spreadsheet tabs laid out per Schemas.
// Feeding the tabs back through TransformAll yields an equivalent snapshot.
func ToSheets(s *Snapshot) []sheets.Sheet {
	rows := map[string][][]string{}
	add := func(table string, values map[string]string) {
		schema, _ := SchemaFor(table)
		row := make([]string, len(schema.Columns))
		for i, col := range schema.Columns {
			row[i] = values[col]
		}
		rows[table] = append(rows[table], row)
	}

	for _, sub := range s.Subjects {
		from, to := splitGradient(sub.Gradient)
		add(sheets.TableSubjects, map[string]string{
			"subject_id":    sub.ID,
			"subject_key":   sub.Key,
			"name":          sub.Name,
			"icon":          sub.Icon,
			"color_hex":     sub.Color,
			"light_bg":      sub.LightBg,
			"gradient_from": from,
			"gradient_to":   to,
			"dark_glow":     sub.DarkGlow,
		})
		for _, t := range sub.Topics {
			add(sheets.TableTopics, map[string]string{
				"topic_id":         t.ID,
				"subject_key":      sub.Key,
				"topic_name":       t.Name,
				"duration_minutes": strconv.Itoa(t.Duration),
				"order_index":      strconv.Itoa(t.OrderIndex),
			})
		}
	}

	for _, topicID := range sortedKeys(s.Sections) {
		for _, sec := range s.Sections[topicID] {
			add(sheets.TableTopicSections, map[string]string{
				"section_id":    sec.ID,
				"topic_id":      topicID,
				"section_title": sec.Title,
				"section_icon":  sec.Icon,
				"order_index":   strconv.Itoa(sec.OrderIndex),
				"section_type":  string(sec.Type),
			})
		}
	}
	for _, topicID := range sortedKeys(s.Objectives) {
		for _, o := range s.Objectives[topicID] {
			add(sheets.TableLearningObjectives, map[string]string{
				"objective_id":   o.ID,
				"topic_id":       topicID,
				"objective_text": o.Text,
				"order_index":    strconv.Itoa(o.OrderIndex),
			})
		}
	}
	for _, topicID := range sortedKeys(s.KeyTerms) {
		for _, k := range s.KeyTerms[topicID] {
			add(sheets.TableKeyTerms, map[string]string{
				"term_id":    k.ID,
				"topic_id":   topicID,
				"term":       k.Term,
				"definition": k.Definition,
			})
		}
	}
	for _, sectionID := range sortedKeys(s.StudyContent) {
		for _, c := range s.StudyContent[sectionID] {
			add(sheets.TableStudyContent, map[string]string{
				"content_id":    c.ID,
				"section_id":    sectionID,
				"content_type":  c.Type,
				"content_title": c.Title,
				"content_text":  c.Text,
				"order_index":   strconv.Itoa(c.OrderIndex),
			})
		}
	}
	for _, topicID := range sortedKeys(s.Formulas) {
		for _, f := range s.Formulas[topicID] {
			values := map[string]string{
				"formula_id":    f.ID,
				"topic_id":      topicID,
				"formula_text":  f.Formula,
				"formula_label": f.Label,
			}
			for i, v := range f.Variables {
				if i >= MaxFormulaVariables {
					break
				}
				values[variableColumn(i+1, "symbol")] = v.Symbol
				values[variableColumn(i+1, "name")] = v.Name
				values[variableColumn(i+1, "unit")] = v.Unit
			}
			add(sheets.TableFormulas, values)
		}
	}
	for _, topicID := range sortedKeys(s.QuizQuestions) {
		for _, q := range s.QuizQuestions[topicID] {
			values := map[string]string{
				"question_id":    q.ID,
				"topic_id":       topicID,
				"question_text":  q.Question,
				"correct_answer": q.CorrectAnswer,
				"explanation":    q.Explanation,
				"xp_reward":      strconv.Itoa(q.XPReward),
			}
			for _, opt := range q.Options {
				values["option_"+strings.ToLower(opt.Label)] = opt.Text
			}
			add(sheets.TableQuizQuestions, values)
		}
	}
	for _, a := range s.Achievements {
		add(sheets.TableAchievements, map[string]string{
			"achievement_id":   a.ID,
			"icon":             a.Icon,
			"name":             a.Name,
			"description":      a.Description,
			"unlock_condition": a.Condition,
		})
	}

	out := make([]sheets.Sheet, 0, len(Schemas))
	for _, schema := range Schemas {
		out = append(out, sheets.Sheet{
			Name:    schema.Table,
			Columns: schema.Columns,
			Rows:    rows[schema.Table],
		})
	}
	return out
}

// splitGradient reverses the "from-X to-Y" class pair built by TransformSubjects.
func splitGradient(g string) (from, to string) {
	for _, part := range strings.Fields(g) {
		switch {
		case strings.HasPrefix(part, "from-"):
			from = strings.TrimPrefix(part, "from-")
		case strings.HasPrefix(part, "to-"):
			to = strings.TrimPrefix(part, "to-")
		}
	}
	return from, to
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

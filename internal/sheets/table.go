// Package sheets reads curriculum tables from a Google Sheets spreadsheet or a
// local Excel workbook. The first row of every tab supplies column names; each
// following row becomes a Row keyed by the normalized column name.
package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Tab names of the curriculum spreadsheet.
const (
	TableSubjects           = "Subjects"
	TableTopics             = "Topics"
	TableTopicSections      = "Topic_Sections"
	TableLearningObjectives = "Learning_Objectives"
	TableKeyTerms           = "Key_Terms"
	TableStudyContent       = "Study_Content"
	TableFormulas           = "Formulas"
	TableQuizQuestions      = "Quiz_Questions"
	TableAchievements       = "Achievements"
)

// DefaultTables lists every tab the study hub reads, in spreadsheet order.
var DefaultTables = []string{
	TableSubjects,
	TableTopics,
	TableTopicSections,
	TableLearningObjectives,
	TableKeyTerms,
	TableStudyContent,
	TableFormulas,
	TableQuizQuestions,
	TableAchievements,
}

// Row is a single data row. SourceRow is the 1-based row number in the sheet
// (the header is row 1) and is only meant for diagnostics.
type Row struct {
	Cells     map[string]string
	SourceRow int
}

// Get returns the trimmed cell for a column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r.Cells[column]
}

// Table is one parsed tab.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header row contained the given column.
func (t Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// TableSet maps a tab name to its parsed table.
type TableSet map[string]Table

// Result is the outcome of fetching every configured tab. Tables holds an
// entry for each requested tab; failed tabs map to an empty Table and their
// errors are collected in Failures.
type Result struct {
	Tables    TableSet
	Failures  []error
	FetchedAt time.Time
}

var lowerCaser = cases.Lower(language.Und)

// NormalizeHeader converts a header cell to lower_snake_case, collapsing runs
// of whitespace into a single underscore.
func NormalizeHeader(h string) string {
	h = lowerCaser.String(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// ParseRows converts raw sheet values into a Table. Fewer than two rows
// (empty or header-only) yields a table without data rows.
func ParseRows(values [][]string) Table {
	if len(values) == 0 {
		return Table{}
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = NormalizeHeader(h)
	}

	table := Table{Columns: headers}
	if len(values) < 2 {
		return table
	}

	table.Rows = make([]Row, 0, len(values)-1)
	for i, raw := range values[1:] {
		row := Row{
			Cells:     make(map[string]string, len(headers)),
			SourceRow: i + 2,
		}
		for col, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if col < len(raw) {
				value = normalizeCell(raw[col])
			}
			row.Cells[header] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func normalizeCell(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// cellString renders a decoded JSON cell as text.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

package sheets

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestWorkbook_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyhub.xlsx")

	err := WriteWorkbook(path, []Sheet{
		{
			Name:    TableSubjects,
			Columns: []string{"subject_key", "name"},
			Rows:    [][]string{{"physics", "Physics"}, {"math", "Mathematics"}},
		},
		{
			Name:    TableTopics,
			Columns: []string{"id", "subject_key", "duration_minutes"},
			Rows:    [][]string{{"t1", "physics", "25"}},
		},
	})
	if err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	set, err := ReadWorkbook(path)
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}
	if set[TableSubjects].Len() != 2 {
		t.Errorf("subjects rows = %d, want 2", set[TableSubjects].Len())
	}
	if got := set[TableSubjects].Rows[1].Get("name"); got != "Mathematics" {
		t.Errorf("name = %q, want Mathematics", got)
	}
	if got := set[TableTopics].Rows[0].Get("duration_minutes"); got != "25" {
		t.Errorf("duration_minutes = %q, want 25", got)
	}
}

func TestWriteWorkbook_NoSheets(t *testing.T) {
	if err := WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil); err == nil {
		t.Error("expected error for empty sheet list")
	}
}

func TestWorkbookSource_FetchAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyhub.xlsx")
	if err := WriteWorkbook(path, []Sheet{{
		Name:    TableSubjects,
		Columns: []string{"subject_key"},
		Rows:    [][]string{{"physics"}},
	}}); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	src := NewWorkbookSource(path, nil, TableSubjects, TableTopics)
	if !src.IsConfigured() {
		t.Fatal("expected configured source")
	}
	result := src.FetchAll(context.Background())

	if result.Tables[TableSubjects].Len() != 1 {
		t.Errorf("subjects rows = %d, want 1", result.Tables[TableSubjects].Len())
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(result.Failures))
	}
	if !errors.Is(result.Failures[0], ErrSheetMissing) {
		t.Errorf("failure = %v, want ErrSheetMissing", result.Failures[0])
	}
	if src.LastFetch().IsZero() {
		t.Error("LastFetch() not recorded")
	}
}

func TestWorkbookSource_MissingFile(t *testing.T) {
	src := NewWorkbookSource(filepath.Join(t.TempDir(), "absent.xlsx"), nil)
	result := src.FetchAll(context.Background())
	if len(result.Failures) != len(DefaultTables) {
		t.Errorf("failures = %d, want %d", len(result.Failures), len(DefaultTables))
	}
	if NewWorkbookSource("", nil).IsConfigured() {
		t.Error("empty path should be unconfigured")
	}
}

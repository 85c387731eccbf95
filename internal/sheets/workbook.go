package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrSheetMissing is returned when a workbook does not contain a requested tab.
var ErrSheetMissing = errors.New("sheet missing from workbook")

// ReadWorkbook parses every sheet of an .xlsx file.
func ReadWorkbook(path string) (TableSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	set := make(TableSet)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		set[name] = ParseRows(rows)
	}
	return set, nil
}

// WorkbookSource serves tables from a local .xlsx file. It mirrors Client so
// the sync controller can run against an offline export of the spreadsheet.
type WorkbookSource struct {
	path   string
	tables []string
	logger *slog.Logger

	mu        sync.RWMutex
	lastFetch time.Time
}

// NewWorkbookSource creates a source for the workbook at path. With no tables
// given it reads DefaultTables.
func NewWorkbookSource(path string, logger *slog.Logger, tables ...string) *WorkbookSource {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookSource{path: path, tables: tables, logger: logger}
}

// IsConfigured reports whether a workbook path is set.
func (w *WorkbookSource) IsConfigured() bool {
	return w.path != ""
}

// LastFetch returns when FetchAll last completed.
func (w *WorkbookSource) LastFetch() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastFetch
}

// FetchAll reads the workbook. Missing tabs are reported as failures and map to
// empty tables; an unreadable file fails every tab.
func (w *WorkbookSource) FetchAll(ctx context.Context) Result {
	result := Result{Tables: make(TableSet, len(w.tables))}

	set, err := ReadWorkbook(w.path)
	if err == nil {
		err = ctx.Err()
	}
	for _, name := range w.tables {
		if err != nil {
			result.Failures = append(result.Failures, &RemoteFetchError{Table: name, Err: err})
			result.Tables[name] = Table{}
			continue
		}
		table, ok := set[name]
		if !ok {
			result.Failures = append(result.Failures, &RemoteFetchError{Table: name, Err: ErrSheetMissing})
			result.Tables[name] = Table{}
			continue
		}
		result.Tables[name] = table
	}
	if len(result.Failures) > 0 {
		w.logger.Warn("workbook read incomplete", "path", w.path, "failures", len(result.Failures))
	}

	now := time.Now()
	w.mu.Lock()
	w.lastFetch = now
	w.mu.Unlock()
	result.FetchedAt = now
	return result
}

// Sheet is one tab to be written by WriteWorkbook.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

const headerFill = "4472C4"

// WriteWorkbook writes sheets to a new .xlsx file with a styled header row.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return errors.New("write workbook: no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}

		if err := writeRow(f, sheet.Name, 1, sheet.Columns); err != nil {
			return err
		}
		if len(sheet.Columns) > 0 {
			last, err := excelize.CoordinatesToCellName(len(sheet.Columns), 1)
			if err != nil {
				return fmt.Errorf("header range %s: %w", sheet.Name, err)
			}
			if err := f.SetCellStyle(sheet.Name, "A1", last, headerStyle); err != nil {
				return fmt.Errorf("style header %s: %w", sheet.Name, err)
			}
		}
		for r, row := range sheet.Rows {
			if err := writeRow(f, sheet.Name, r+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name %s row %d: %w", sheet, row, err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// Command studyhub-data creates, checks and converts the Excel workbooks that
// hold study hub content.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/p-n-ai/studyhub/internal/content"
	"github.com/p-n-ai/studyhub/internal/sheets"
)

const usage = `usage: studyhub-data <command> [arguments]

commands:
  create-sample <out.xlsx>                 write the bundled catalog as a workbook
  validate <file.xlsx>                     check sheets and columns, exit 1 on errors
  export-json <file.xlsx> [-o out.json] [-normalized]
                                           dump sheet rows (or normalized content) as JSON
  schema                                   print the expected sheets and columns
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "create-sample":
		err = createSample(args[1:], stdout)
	case "validate":
		var ok bool
		ok, err = validate(args[1:], stdout)
		if err == nil && !ok {
			return 1
		}
	case "export-json":
		err = exportJSON(args[1:], stdout)
	case "schema":
		printSchema(stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func createSample(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("create-sample needs an output path")
	}
	path := args[0]
	if err := sheets.WriteWorkbook(path, content.ToSheets(content.Default())); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote sample workbook %s\n", path)
	return nil
}

// validate prints the report for a workbook and reports whether it is free of
// errors.
func validate(args []string, stdout io.Writer) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("validate needs a workbook path")
	}
	set, err := sheets.ReadWorkbook(args[0])
	if err != nil {
		return false, err
	}

	report := content.ValidateTables(set)
	for _, msg := range report.Errors {
		fmt.Fprintf(stdout, "ERROR   %s\n", msg)
	}
	for _, msg := range report.Warnings {
		fmt.Fprintf(stdout, "WARNING %s\n", msg)
	}

	snap := content.TransformAll(set)
	topics := 0
	for _, s := range snap.Subjects {
		topics += len(s.Topics)
	}
	fmt.Fprintf(stdout, "%d subjects, %d topics, %d errors, %d warnings\n",
		len(snap.Subjects), topics, len(report.Errors), len(report.Warnings))
	return report.OK(), nil
}

func exportJSON(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export-json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", "", "output file (default stdout)")
	normalized := fs.Bool("normalized", false, "export normalized content instead of raw rows")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("export-json: %w", err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("export-json needs a workbook path")
	}
	path := fs.Arg(0)
	// Flags may also follow the path.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return fmt.Errorf("export-json: %w", err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("export-json: unexpected arguments %v", fs.Args())
	}

	set, err := sheets.ReadWorkbook(path)
	if err != nil {
		return err
	}

	var doc any = rowObjects(set)
	if *normalized {
		doc = content.TransformAll(set)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "exported %s to %s\n", path, *out)
	return nil
}

func rowObjects(set sheets.TableSet) map[string][]map[string]string {
	out := make(map[string][]map[string]string, len(set))
	for name, table := range set {
		rows := make([]map[string]string, 0, table.Len())
		for _, row := range table.Rows {
			rows = append(rows, row.Cells)
		}
		out[name] = rows
	}
	return out
}

func printSchema(w io.Writer) {
	for _, s := range content.Schemas {
		fmt.Fprintf(w, "%s: %s\n", s.Table, s.Description)
		for _, col := range s.Columns {
			mark := " "
			if slices.Contains(s.Required, col) {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %s\n", mark, col)
		}
	}
	fmt.Fprintf(w, "\n* required column\ncontent types: %s\n", strings.Join(content.ContentTypes, ", "))
}

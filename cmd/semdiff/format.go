package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jward/semdiff"
)

// formatDiffsText formats a Result as aligned columns followed by the
// design-diagram flag.
func formatDiffsText(w io.Writer, res *semdiff.Result) {
	if len(res.SemanticDiffs) == 0 {
		fmt.Fprintln(w, "No semantic changes")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CHANGE\tKIND\tLOCATION\tURI")
		for _, d := range res.SemanticDiffs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ChangeType, d.Kind, formatLocation(d.LineRange), orDash(d.URI))
		}
		tw.Flush()
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Load design diagrams: %s\n", yesNo(res.LoadDesignDiagrams))
	if res.RunID != "" {
		suffix := ""
		if res.Cached {
			suffix = " (cached)"
		}
		fmt.Fprintf(w, "Run: %s%s\n", res.RunID, suffix)
	}
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tDIFFS\tDIAGRAMS\tORIGINAL\tMODIFIED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.CreatedAt, r.DiffCount, yesNo(r.LoadDesignDiagrams), r.OriginalRoot, r.ModifiedRoot)
	}
	tw.Flush()
}

// formatRunDetailText formats a stored run header and its records.
func formatRunDetailText(w io.Writer, d CLIRunDetail) {
	fmt.Fprintf(w, "Run: %s\n", d.Run.ID)
	fmt.Fprintf(w, "Created: %s\n", d.Run.CreatedAt)
	fmt.Fprintf(w, "Original: %s\n", d.Run.OriginalRoot)
	fmt.Fprintf(w, "Modified: %s\n", d.Run.ModifiedRoot)
	fmt.Fprintf(w, "Scheme: %s\n", d.Run.Scheme)
	fmt.Fprintln(w)
	res := *d.Result
	res.RunID = ""
	formatDiffsText(w, &res)
}

// formatLocation renders "file:start-end" with one-based lines, or "-" for
// deletions.
func formatLocation(r *semdiff.LineRange) string {
	if r == nil {
		return "-"
	}
	if r.StartLine.Line == r.EndLine.Line {
		return fmt.Sprintf("%s:%d", r.FileName, r.StartLine.Line+1)
	}
	return fmt.Sprintf("%s:%d-%d", r.FileName, r.StartLine.Line+1, r.EndLine.Line+1)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to w as a
// CLIResult envelope. In text mode it goes to errW.
func outputError(w, errW io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(errW, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case *semdiff.Result:
		formatDiffsText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case CLIRunDetail:
		formatRunDetailText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

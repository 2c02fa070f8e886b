package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

// runReportCmd implements `audittrail report`.
//
// Exit codes:
//
//	0 = report rendered, trail compliant
//	1 = report rendered, violations found
//	2 = runtime error
func runReportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("report", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "output the report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	verifier, entries, code := loadTrail(stderr)
	if code != 0 {
		return code
	}

	report := verifier.GenerateIntegrityReport(entries)

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if err := report.Render(stdout); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if !report.Result.Valid {
		return 1
	}
	return 0
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/carebridge/audittrail/pkg/audit"
	"github.com/carebridge/audittrail/pkg/config"
)

// runVerifyCmd implements `audittrail verify`.
//
// Re-validates every signature and the chain linkage of the configured
// trail. With --recent N only the window of the N highest sequence numbers
// is checked, a weaker guarantee that says nothing about history before
// the window.
//
// Exit codes:
//
//	0 = chain verified
//	1 = integrity violation detected
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		jsonOutput  bool
		jsonOutFile string
		recent      int
	)
	cmd.BoolVar(&jsonOutput, "json", false, "output the verification result as JSON")
	cmd.StringVar(&jsonOutFile, "json-out", "", "write the verification result to a file (auditor mode)")
	cmd.IntVar(&recent, "recent", 0, "verify only the N most recent entries (weaker guarantee)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	verifier, entries, code := loadTrail(stderr)
	if code != 0 {
		return code
	}

	var result audit.VerificationResult
	if recent > 0 {
		result = verifier.VerifyRecentLogs(entries, recent)
	} else {
		result = verifier.VerifyChain(entries)
	}

	if jsonOutFile != "" {
		data, _ := json.MarshalIndent(result, "", "  ")
		if err := os.WriteFile(jsonOutFile, data, 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write result: %v\n", err)
			return 2
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if result.Valid {
		_, _ = fmt.Fprintf(stdout, "chain verified: %d entries, %d verified\n",
			result.TotalLogs, result.VerifiedLogs)
	} else {
		_, _ = fmt.Fprintf(stdout, "integrity violation: %d of %d entries tampered\n",
			result.TamperedLogs, result.TotalLogs)
		if result.BrokenChainAt != nil {
			_, _ = fmt.Fprintf(stdout, "chain broken at sequence %d\n", *result.BrokenChainAt)
		}
		for _, diag := range result.Errors {
			_, _ = fmt.Fprintf(stdout, "  - %s\n", diag)
		}
	}

	if !result.Valid {
		return 1
	}
	return 0
}

// loadTrail builds the verifier from the environment and reads the whole
// trail back. Returns a non-zero exit code on runtime failure.
func loadTrail(stderr io.Writer) (*audit.Verifier, []audit.SignedEntry, int) {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, 2
	}
	key, err := cfg.Key()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, 2
	}
	verifier, err := audit.NewVerifier(key)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, 2
	}

	st, err := openStore(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, 2
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	entries, err := st.List(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, 2
	}
	return verifier, entries, 0
}

package audit

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Report verdicts.
const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
)

// IntegrityReport is the compliance-oriented rendering of a verification
// run. It is plain data: safe to marshal for machine consumption and to
// render as text for auditors. It never carries key material.
type IntegrityReport struct {
	GeneratedAt   time.Time          `json:"generated_at"`
	Verdict       string             `json:"verdict"`
	Result        VerificationResult `json:"result"`
	Violations    []string           `json:"violations,omitempty"`
	Statement     string             `json:"statement"`
	ReportVersion string             `json:"report_version"`
}

// ReportVersion tags the report format for downstream consumers.
const ReportVersion = "1.0.0"

// GenerateIntegrityReport runs a full-chain verification and wraps the
// result in a report. Like verification itself, it never fails.
func (v *Verifier) GenerateIntegrityReport(logs []SignedEntry) *IntegrityReport {
	result := v.VerifyChain(logs)

	report := &IntegrityReport{
		GeneratedAt:   time.Now().UTC(),
		Result:        result,
		Violations:    result.Errors,
		ReportVersion: ReportVersion,
	}
	if result.Valid {
		report.Verdict = VerdictPass
		report.Statement = fmt.Sprintf(
			"All %d audit log entries verified. Hash chain intact. Trail is compliance-ready.",
			result.TotalLogs)
	} else {
		report.Verdict = VerdictFail
		report.Statement = fmt.Sprintf(
			"Integrity violation: %d of %d entries failed signature verification, %d chain diagnostics. Trail is NOT compliance-ready; investigate before relying on this log.",
			result.TamperedLogs, result.TotalLogs, len(result.Errors))
	}
	return report
}

// Render writes the human-readable form of the report.
func (r *IntegrityReport) Render(w io.Writer) error {
	var b strings.Builder
	b.WriteString("AUDIT TRAIL INTEGRITY REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Verdict:   %s\n", r.Verdict)
	fmt.Fprintf(&b, "Entries:   %d total, %d verified, %d tampered\n",
		r.Result.TotalLogs, r.Result.VerifiedLogs, r.Result.TamperedLogs)
	if r.Result.BrokenChainAt != nil {
		fmt.Fprintf(&b, "Chain:     broken at sequence %d\n", *r.Result.BrokenChainAt)
	}
	if len(r.Violations) > 0 {
		b.WriteString("Violations:\n")
		for _, violation := range r.Violations {
			fmt.Fprintf(&b, "  - %s\n", violation)
		}
	}
	fmt.Fprintf(&b, "%s\n", r.Statement)

	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the rendered report.
func (r *IntegrityReport) String() string {
	var b strings.Builder
	_ = r.Render(&b)
	return b.String()
}

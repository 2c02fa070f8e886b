package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIntegrityReport_Pass(t *testing.T) {
	signer, verifier := newTestVerifier(t)
	chain := buildChain(t, signer, 3)

	report := verifier.GenerateIntegrityReport(chain)

	assert.Equal(t, VerdictPass, report.Verdict)
	assert.True(t, report.Result.Valid)
	assert.Empty(t, report.Violations)
	assert.Contains(t, report.Statement, "compliance-ready")

	text := report.String()
	assert.Contains(t, text, "AUDIT TRAIL INTEGRITY REPORT")
	assert.Contains(t, text, "PASS")
	assert.Contains(t, text, "3 total, 3 verified, 0 tampered")
}

func TestGenerateIntegrityReport_Fail(t *testing.T) {
	signer, verifier := newTestVerifier(t)
	chain := buildChain(t, signer, 2)
	chain[1].Action = "delete"

	report := verifier.GenerateIntegrityReport(chain)

	assert.Equal(t, VerdictFail, report.Verdict)
	assert.False(t, report.Result.Valid)
	require.NotEmpty(t, report.Violations)
	assert.Contains(t, report.Violations[0], "log-1")
	assert.Contains(t, report.Statement, "NOT compliance-ready")

	text := report.String()
	assert.Contains(t, text, "FAIL")
	assert.Contains(t, text, "log-1")
}

func TestGenerateIntegrityReport_Empty(t *testing.T) {
	_, verifier := newTestVerifier(t)

	report := verifier.GenerateIntegrityReport(nil)
	assert.Equal(t, VerdictPass, report.Verdict)
	assert.Equal(t, 0, report.Result.TotalLogs)
}

func TestIntegrityReport_NeverContainsKey(t *testing.T) {
	signer, verifier := newTestVerifier(t)
	chain := buildChain(t, signer, 2)
	chain[0].Resource = "tampered"

	report := verifier.GenerateIntegrityReport(chain)

	assert.NotContains(t, report.String(), string(testKey))

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(data), string(testKey))
}

func TestIntegrityReport_MachineReadable(t *testing.T) {
	signer, verifier := newTestVerifier(t)
	chain := buildChain(t, signer, 2)
	chain[1].PreviousHash = "forged"

	report := verifier.GenerateIntegrityReport(chain)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded IntegrityReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, VerdictFail, decoded.Verdict)
	require.NotNil(t, decoded.Result.BrokenChainAt)
	assert.Equal(t, uint64(1), *decoded.Result.BrokenChainAt)
}

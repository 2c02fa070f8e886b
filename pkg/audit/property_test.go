//go:build property
// +build property

// Property-based tests for signing determinism and tamper sensitivity.
package audit_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/carebridge/audittrail/pkg/audit"
)

func propertySigner(t *testing.T) (*audit.Signer, *audit.Verifier) {
	t.Helper()
	signer, err := audit.NewSigner([]byte("property-test-key"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer, audit.NewVerifierFromSigner(signer)
}

func genEntry() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	).Map(func(vals []any) audit.Entry {
		keys := vals[4].([]string)
		details := make(map[string]any, len(keys))
		for i, k := range keys {
			if k != "" {
				details[k] = i
			}
		}
		var payload any
		if len(details) > 0 {
			payload = details
		}
		return audit.Entry{
			ID:        vals[0].(string),
			Timestamp: "2026-08-30T10:00:00Z",
			UserID:    vals[1].(string),
			Action:    vals[2].(string),
			Resource:  vals[3].(string),
			Details:   payload,
		}
	})
}

// Property: signing is deterministic and always round-trips through
// verification.
func TestSignRoundTripProperty(t *testing.T) {
	signer, verifier := propertySigner(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sign then verify always succeeds", prop.ForAll(
		func(e audit.Entry, prevHash string, seq uint64) bool {
			first, err := signer.SignEntry(e, prevHash, seq)
			if err != nil {
				return false
			}
			second, err := signer.SignEntry(e, prevHash, seq)
			if err != nil {
				return false
			}
			return first.Signature == second.Signature && verifier.VerifySignature(first)
		},
		genEntry(),
		gen.AlphaString(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// Property: appending any non-empty suffix to the action flips verification.
func TestTamperSensitivityProperty(t *testing.T) {
	signer, verifier := propertySigner(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("any action mutation is detected", prop.ForAll(
		func(e audit.Entry, suffix string) bool {
			signed, err := signer.SignEntry(e, "", 0)
			if err != nil {
				return false
			}
			signed.Action += suffix
			return !verifier.VerifySignature(signed)
		},
		genEntry(),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}

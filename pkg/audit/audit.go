// Package audit implements the tamper-evident audit trail core: canonical
// serialization, HMAC-SHA256 signing, hash chaining, and offline chain
// verification for compliance-grade access logs.
//
// Every signed entry binds its content AND the signature of its predecessor
// into one keyed MAC, so both content tampering and chain splicing are
// detected by the same signature check. The package owns no storage and no
// transport; it only defines the signing/verification contract.
package audit

import (
	"errors"
)

var (
	// ErrEmptyKey is returned when a Signer or Verifier is constructed
	// without key material.
	ErrEmptyKey = errors.New("audit: signing key is empty")

	// ErrCanonicalize is returned when an entry cannot be reduced to its
	// canonical byte form on the signing path. On the verification path the
	// same condition classifies the entry as tampered instead.
	ErrCanonicalize = errors.New("audit: canonicalization failed")
)

// Entry is the unsigned fact recorded by the application. Immutable once
// created; ownership of id/timestamp assignment belongs to the append-path
// writer (see pkg/store).
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // RFC 3339
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	Details   any    `json:"details,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// SignedEntry is an Entry plus its chain link. Created once at signing time
// and never mutated; any later mutation is tampering by definition and is
// detectable by Verifier.
type SignedEntry struct {
	Entry

	// Signature is the lowercase hex HMAC-SHA256 over the canonical form
	// of the entry and its previous hash. 64 hex characters.
	Signature string `json:"signature"`

	// PreviousHash is the Signature of the chain predecessor. Empty only
	// for the first entry of a stream.
	PreviousHash string `json:"previous_hash,omitempty"`

	// SequenceNumber is caller-assigned and strictly increasing within a
	// stream.
	SequenceNumber uint64 `json:"sequence_number"`
}

// VerificationResult is the aggregate outcome of a chain verification run.
// Rebuilt fresh on every call; verification constructs no other state.
type VerificationResult struct {
	Valid         bool     `json:"valid"`
	TotalLogs     int      `json:"total_logs"`
	VerifiedLogs  int      `json:"verified_logs"`
	TamperedLogs  int      `json:"tampered_logs"`
	BrokenChainAt *uint64  `json:"broken_chain_at,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

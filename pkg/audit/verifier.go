package audit

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"sort"
)

// Verifier re-validates signatures and chain linkage over collections of
// signed entries. It is constructed with the same symmetric key the Signer
// used; multiple independent Verifiers with different keys may coexist.
//
// Verification never fails with an error: its job is to classify any input,
// including adversarial or malformed entries, and still terminate with a
// complete result. A panic on tampered input would itself deny the audit
// function. Concurrent verification calls on independent batches are safe.
type Verifier struct {
	signer *Signer
}

// NewVerifier binds the verification key. An empty key is refused.
func NewVerifier(key []byte) (*Verifier, error) {
	s, err := NewSigner(key)
	if err != nil {
		return nil, err
	}
	return &Verifier{signer: s}, nil
}

// NewVerifierFromSigner shares an existing Signer's key, guaranteeing the
// sign and verify paths agree on key material.
func NewVerifierFromSigner(s *Signer) *Verifier {
	return &Verifier{signer: s}
}

// VerifySignature recomputes the canonical form of a signed entry (with its
// recorded previous hash) and compares the expected HMAC against the stored
// signature in constant time. Any anomaly (canonicalization failure,
// malformed hex, mismatch) is reported as false, never as an error.
//
// Because the previous hash is part of the signed payload, rewriting an
// entry's previous hash to splice in a different predecessor also falsifies
// that entry's own signature.
func (v *Verifier) VerifySignature(log SignedEntry) bool {
	canonical, err := Canonicalize(log.Entry, log.PreviousHash)
	if err != nil {
		return false
	}
	actual, err := hex.DecodeString(log.Signature)
	if err != nil {
		return false
	}
	return hmac.Equal(v.signer.mac(canonical), actual)
}

// VerifyChain runs both the per-entry signature check and the chain-linkage
// check over a batch. The input may be unordered; entries are sorted by
// sequence number first. Neither check short-circuits the other, and a
// detected break never aborts the walk: every supplied entry is classified
// so the caller gets the complete picture of tampering.
//
// An empty batch is trivially valid.
func (v *Verifier) VerifyChain(logs []SignedEntry) VerificationResult {
	result := VerificationResult{Valid: true, TotalLogs: len(logs)}
	if len(logs) == 0 {
		return result
	}

	sorted := make([]SignedEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SequenceNumber < sorted[j].SequenceNumber
	})

	var prevSignature string
	var prevSequence uint64
	for i, log := range sorted {
		if v.VerifySignature(log) {
			result.VerifiedLogs++
		} else {
			result.TamperedLogs++
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"entry %s (sequence %d): signature mismatch", log.ID, log.SequenceNumber))
		}

		if i > 0 {
			if log.SequenceNumber == prevSequence {
				result.Valid = false
				result.recordBreak(log.SequenceNumber, fmt.Sprintf(
					"entry %s: duplicate sequence number %d", log.ID, log.SequenceNumber))
			}
			if log.PreviousHash != prevSignature {
				result.Valid = false
				result.recordBreak(log.SequenceNumber, fmt.Sprintf(
					"entry %s (sequence %d): previous_hash does not match signature of sequence %d",
					log.ID, log.SequenceNumber, prevSequence))
			}
		}

		prevSignature = log.Signature
		prevSequence = log.SequenceNumber
	}

	return result
}

// VerifyRecentLogs checks chain integrity only within the window of the
// `limit` highest sequence numbers.
//
// This is explicitly a weaker guarantee than VerifyChain: it detects
// corruption introduced inside the window but proves nothing about history
// predating it unless the window's earliest previous_hash is anchored
// elsewhere. Callers relying on it for compliance must state that limit.
func (v *Verifier) VerifyRecentLogs(logs []SignedEntry, limit int) VerificationResult {
	if limit <= 0 || len(logs) <= limit {
		return v.VerifyChain(logs)
	}

	sorted := make([]SignedEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SequenceNumber > sorted[j].SequenceNumber
	})
	return v.VerifyChain(sorted[:limit])
}

func (r *VerificationResult) recordBreak(seq uint64, diagnostic string) {
	if r.BrokenChainAt == nil {
		s := seq
		r.BrokenChainAt = &s
	}
	r.Errors = append(r.Errors, diagnostic)
}

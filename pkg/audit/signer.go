package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer mints signed, chained audit entries with a process-held symmetric
// key. The key is bound at construction, lives only in memory, and is never
// serialized, logged, or included in any report.
//
// A Signer is safe for concurrent use: the key is read-only after
// construction and signing is a pure computation.
type Signer struct {
	key []byte
}

// NewSigner binds an HMAC-SHA256 key. An empty key is refused: no entry may
// ever be minted without a valid signature.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign computes the lowercase hex HMAC-SHA256 of canonical bytes.
// Deterministic: identical input under the same key always yields the
// identical signature, which is what lets verification recompute and compare.
func (s *Signer) Sign(canonical []byte) string {
	return hex.EncodeToString(s.mac(canonical))
}

func (s *Signer) mac(canonical []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonical)
	return mac.Sum(nil)
}

// SignEntry assembles a fully populated SignedEntry from an entry, the
// signature of its chain predecessor (empty for the first entry of a
// stream), and a caller-assigned sequence number.
//
// SignEntry does not track the latest sequence number or head signature;
// that bookkeeping belongs to the append-path writer, which must serialize
// concurrent appends to a stream (see pkg/store and pkg/sequence).
func (s *Signer) SignEntry(e Entry, previousHash string, sequence uint64) (SignedEntry, error) {
	canonical, err := Canonicalize(e, previousHash)
	if err != nil {
		return SignedEntry{}, fmt.Errorf("sign entry %q: %w", e.ID, err)
	}
	return SignedEntry{
		Entry:          e,
		Signature:      s.Sign(canonical),
		PreviousHash:   previousHash,
		SequenceNumber: sequence,
	}, nil
}

// String redacts the key so a Signer can never leak it through logging.
func (s *Signer) String() string {
	return "audit.Signer(redacted)"
}

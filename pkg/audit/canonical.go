package audit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// nullLiteral is the explicit placeholder for absent optional fields. Absent
// and present-but-null must collapse to the same canonical form, otherwise
// two logically equal entries would sign differently.
var nullLiteral = json.RawMessage("null")

// canonicalEnvelope fixes the field order of the signed payload. Struct field
// order is the serialization order, so the envelope is the single source of
// truth for the byte layout: id, timestamp, user_id, action, resource,
// details, ip_address, previous_hash.
type canonicalEnvelope struct {
	ID           string          `json:"id"`
	Timestamp    string          `json:"timestamp"`
	UserID       string          `json:"user_id"`
	Action       string          `json:"action"`
	Resource     string          `json:"resource"`
	Details      json.RawMessage `json:"details"`
	IPAddress    json.RawMessage `json:"ip_address"`
	PreviousHash json.RawMessage `json:"previous_hash"`
}

// Canonicalize reduces an entry and its chain link to one deterministic byte
// sequence. It is the only serialization routine on both the signing and the
// verification path; a second "almost equivalent" serializer would let the
// two paths silently diverge.
//
// The details payload is arbitrary structured data, so it is normalized to
// RFC 8785 (JCS) form before being embedded: key order in the caller's map
// or struct never influences the signature.
func Canonicalize(e Entry, previousHash string) ([]byte, error) {
	env := canonicalEnvelope{
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		UserID:       e.UserID,
		Action:       e.Action,
		Resource:     e.Resource,
		Details:      nullLiteral,
		IPAddress:    nullLiteral,
		PreviousHash: nullLiteral,
	}

	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("%w: details: %v", ErrCanonicalize, err)
		}
		canon, err := jcs.Transform(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: details jcs: %v", ErrCanonicalize, err)
		}
		env.Details = canon
	}
	if e.IPAddress != "" {
		env.IPAddress = mustQuote(e.IPAddress)
	}
	if previousHash != "" {
		env.PreviousHash = mustQuote(previousHash)
	}

	return canonicalMarshal(env)
}

// canonicalMarshal is json.Marshal without HTML escaping and without the
// encoder's trailing newline.
func canonicalMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanonicalize, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func mustQuote(s string) json.RawMessage {
	b, err := canonicalMarshal(s)
	if err != nil {
		// Marshaling a string cannot fail.
		panic(err)
	}
	return b
}

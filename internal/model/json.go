// Package model defines the persisted shapes of the indexer's data model:
// addresses, blocks, history rows, subscriptions and events (spec §3).
package model

import (
	"bytes"
	"encoding/json"
)

// JSON is a deep-mutation-tracked JSON blob. It stands in for the source's
// SQLAlchemy MutableDict: callers Clone the stored value, mutate the clone
// freely, then compare against the original with Equal before writing back.
type JSON struct {
	raw json.RawMessage
}

// NewJSON wraps an already-encoded payload. A nil/empty payload is treated
// as a JSON null object.
func NewJSON(raw []byte) JSON {
	if len(raw) == 0 {
		raw = []byte("null")
	}
	return JSON{raw: append(json.RawMessage(nil), raw...)}
}

// MarshalValue encodes v and wraps the result.
func MarshalValue(v any) (JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return JSON{}, err
	}
	return NewJSON(b), nil
}

// Raw returns the underlying bytes. The caller must not mutate the slice.
func (j JSON) Raw() json.RawMessage { return j.raw }

// IsNull reports whether the blob is the JSON literal null (or empty).
func (j JSON) IsNull() bool { return len(j.raw) == 0 || string(j.raw) == "null" }

// Clone returns a deep copy decoded into dst, a pointer to a map or struct.
// Mutate dst freely; compare the result against j with Equal before saving.
func (j JSON) Clone(dst any) error {
	if j.IsNull() {
		return nil
	}
	return json.Unmarshal(j.raw, dst)
}

// Equal reports whether encoding v produces the same JSON value as j. Used
// to decide whether a refreshed info blob actually changed before writing.
func (j JSON) Equal(v any) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	var a, c any
	if err := json.Unmarshal(j.raw, &a); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return false, err
	}
	ab, _ := json.Marshal(a)
	cb, _ := json.Marshal(c)
	return bytes.Equal(normalizeJSON(ab), normalizeJSON(cb)), nil
}

// normalizeJSON re-marshals through a generic interface so that key order
// and numeric formatting differences don't cause spurious diffs.
func normalizeJSON(b []byte) []byte {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return b
	}
	out, err := json.Marshal(v)
	if err != nil {
		return b
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j.raw) == 0 {
		return []byte("null"), nil
	}
	return j.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *JSON) UnmarshalJSON(b []byte) error {
	j.raw = append(json.RawMessage(nil), b...)
	return nil
}

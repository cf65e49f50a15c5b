// Package types provides domain models shared across extgen components.
//
// The compiler core (internal/codegen) depends only on this package, so the
// types stay free of storage and transport concerns. ID utilities in ids.go
// import uuid but are isolated from the extension model.
package types

import "encoding/json"

// RunID represents a UUIDv7 build run identifier.
// String alias enables type safety while maintaining JSON string serialization.
type RunID string

// Payload represents event data supplied to a generated snippet.
// json.RawMessage wrapper preserves original bytes until the sandbox decodes them.
type Payload json.RawMessage

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(p).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(p).UnmarshalJSON(data)
}

// Decode parses the payload into an event data map.
// A nil or JSON null payload decodes to an empty map.
func (p Payload) Decode() (map[string]any, error) {
	out := make(map[string]any)
	if len(p) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(p, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}

// Snippet status values recorded in the catalog.
const (
	StatusGenerated = "generated"
	StatusSkipped   = "skipped"
)

package types

import (
	"github.com/andreyvit/tinyjson"
)

// DecodeEnvelope parses a JSON-encoded bus payload the way the teacher's
// config service parses its embedded config blob: tinyjson.Raw gives back a
// generic Go value (map[string]any, []any, or a scalar) without requiring a
// target struct up front, which suits envelopes whose shape depends on a
// sibling "type" field the caller inspects before committing to one of the
// PartConfig variants.
func DecodeEnvelope(raw []byte) (any, error) {
	r := tinyjson.Raw(raw)
	val := r.Value()
	if err := r.EnsureEOF(); err != nil {
		return nil, err
	}
	return val, nil
}

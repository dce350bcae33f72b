// internal/ledger/codec/record.go
package codec

import (
	"errors"
	"strings"
)

// FieldDelimiter separates fields inside a stored record. It must never
// appear inside a field value; no escaping is performed.
const FieldDelimiter = "|"

// PlanArity is the number of fields in a stored plan record.
const PlanArity = 7

var ErrMalformedRecord = errors.New("MALFORMED_RECORD")

// EncodeFields joins fields into a single stored string.
func EncodeFields(fields ...string) string {
	return strings.Join(fields, FieldDelimiter)
}

// DecodeFields splits a stored string and verifies it carries at least
// arity fields. Extra fields are preserved at the tail.
func DecodeFields(s string, arity int) ([]string, error) {
	parts := strings.Split(s, FieldDelimiter)
	if len(parts) < arity {
		return nil, ErrMalformedRecord
	}
	return parts, nil
}

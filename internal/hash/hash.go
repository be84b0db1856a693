// Package hash provides content addressing for identity entities and tasks.
//
// All content hashes are 64-character lowercase hex SHA-256 digests of a
// canonical serialization of the entity's immutable fields. The canonical
// form is a type tag followed by the fields joined with an ASCII unit
// separator, so the id depends only on the field values in declaration
// order, not on how the entity is laid out on disk.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ShortHashLen is the number of leading hex characters used for display
// and prefix lookup.
const ShortHashLen = 8

var (
	// ErrNotFound indicates no candidate id matched the prefix.
	ErrNotFound = errors.New("no match for prefix")

	// ErrAmbiguous indicates more than one candidate id matched the prefix.
	ErrAmbiguous = errors.New("ambiguous prefix")
)

// sep joins canonical fields. A unit separator cannot appear in meaningful
// field content, so concatenated fields cannot collide across boundaries.
const sep = "\x1f"

// Content computes the content hash for an entity type and its immutable
// field tuple, in declaration order.
func Content(entityType string, fields ...string) string {
	h := sha256.New()
	h.Write([]byte(entityType))
	for _, f := range fields {
		h.Write([]byte(sep))
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short returns the display prefix of a content hash. Ids shorter than
// ShortHashLen are returned unchanged.
func Short(id string) string {
	if len(id) <= ShortHashLen {
		return id
	}
	return id[:ShortHashLen]
}

// MatchPrefix selects the single candidate whose id starts with prefix.
// Any prefix of length >= ShortHashLen is accepted; a full id matches itself.
func MatchPrefix(candidates []string, prefix string) (string, error) {
	if len(prefix) < ShortHashLen {
		return "", fmt.Errorf("prefix %q too short: need at least %d characters", prefix, ShortHashLen)
	}

	var found []string
	for _, id := range candidates {
		if strings.HasPrefix(id, prefix) {
			found = append(found, id)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		shorts := make([]string, len(found))
		for i, id := range found {
			shorts[i] = Short(id)
		}
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguous, prefix, strings.Join(shorts, ", "))
	}
}

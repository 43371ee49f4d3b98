package id

import (
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// GUIDLen is the length of a GnuCash GUID.
const GUIDLen = 32

// Generator produces GnuCash-style GUIDs.
type Generator func() string

// New returns a random GUID: a version 4 UUID as 32 lowercase hex characters,
// the format GnuCash uses for every guid column.
func New() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Sequence returns a Generator yielding deterministic GUIDs derived from seed.
// "seed-1", "seed-2", ... are hashed into the OID namespace.
func Sequence(seed string) Generator {
	n := 0
	return func() string {
		n++
		u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed+"-"+strconv.Itoa(n)))
		return hex.EncodeToString(u[:])
	}
}

// IsGUID reports whether s is 32 lowercase hex characters.
func IsGUID(s string) bool {
	if len(s) != GUIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

package certificate

import (
	"crypto/sha256"
	"encoding/hex"
)

// Canonicalize concatenates the fields verbatim in the fixed order subject id,
// subject name, course name, organization name. There is no separator or
// length prefix, so ("AB", "C") and ("A", "BC") encode identically. Changing
// that would change every identifier already on the ledger.
func Canonicalize(f Fields) []byte {
	b := make([]byte, 0, len(f.SubjectID)+len(f.SubjectName)+len(f.CourseName)+len(f.OrganizationName))
	b = append(b, f.SubjectID...)
	b = append(b, f.SubjectName...)
	b = append(b, f.CourseName...)
	b = append(b, f.OrganizationName...)
	return b
}

// Hash returns the SHA-256 digest of b as an Identifier.
func Hash(b []byte) Identifier {
	sum := sha256.Sum256(b)
	return Identifier(hex.EncodeToString(sum[:]))
}

// ComputeID is Hash(Canonicalize(f)).
func ComputeID(f Fields) Identifier {
	return Hash(Canonicalize(f))
}

// Package certificate holds the identity model shared by issuance and
// verification: the four identity-bearing fields, the identifier derived from
// them and the ledger record that binds both to a stored document.
package certificate

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Fields are the identity-bearing values of a certificate.
type Fields struct {
	SubjectID        string `json:"subject_id" validate:"required,max=50,winansi"`
	SubjectName      string `json:"subject_name" validate:"required,max=100,winansi"`
	CourseName       string `json:"course_name" validate:"required,max=200,winansi"`
	OrganizationName string `json:"organization_name" validate:"required,winansi"`
}

// Trimmed returns a copy of f with surrounding whitespace removed from every member.
func (f Fields) Trimmed() Fields {
	return Fields{
		SubjectID:        strings.TrimSpace(f.SubjectID),
		SubjectName:      strings.TrimSpace(f.SubjectName),
		CourseName:       strings.TrimSpace(f.CourseName),
		OrganizationName: strings.TrimSpace(f.OrganizationName),
	}
}

// Identifier is the lowercase hex SHA-256 digest of the canonical fields.
type Identifier string

const IdentifierLen = 64

// ParseIdentifier accepts a 64 character hex string in either case and
// returns it in canonical lowercase form.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if len(s) != IdentifierLen {
		return "", fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidIdentifier, IdentifierLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return Identifier(strings.ToLower(s)), nil
}

func (id Identifier) String() string { return string(id) }

// Short returns the first six characters, for logs.
func (id Identifier) Short() string {
	s := string(id)
	if len(s) > 6 {
		return s[:6]
	}
	return s
}

// Stored is the ledger record written once at issuance.
type Stored struct {
	ID             Identifier `json:"id"`
	Fields         Fields     `json:"fields"`
	StoragePointer string     `json:"storage_pointer"`
}

// Extracted is what could be recovered from a presented document. Members of
// Fields that were not found hold the Unknown* sentinels; Missing names them.
type Extracted struct {
	Fields     Fields
	EmbeddedID Identifier
	Missing    []string
}

// HasEmbeddedID reports whether an identifier was read directly from the document.
func (e Extracted) HasEmbeddedID() bool { return e.EmbeddedID != "" }

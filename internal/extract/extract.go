// Package extract recovers certificate fields from a rendered document.
//
// Extraction is best effort. Once a document yields at least four lines of
// text every field gets a value, possibly a sentinel, so verification can
// still query the ledger and report a mismatch instead of failing early.
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

// ErrNotExtractable means the document produced no text, or too little to
// hold a certificate.
var ErrNotExtractable = errors.New("certificate not extractable")

const minLines = 4

var (
	quoted         = regexp.MustCompile(`"([^"]+)"`)
	quotedAnywhere = regexp.MustCompile(`"([^"]{2,200})"`)
	hexToken       = regexp.MustCompile(`[a-fA-F0-9]{64}`)
	bareHexToken   = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
)

// Parse applies the line rules to already decoded document text.
func Parse(text string) (certificate.Extracted, error) {
	lines := splitLines(text)
	if len(lines) < minLines {
		return certificate.Extracted{}, ErrNotExtractable
	}

	var f certificate.Fields
	f.OrganizationName = lines[0]

	for idx, line := range lines {
		if i := strings.LastIndex(line, certificate.SubjectIDLabel); i >= 0 {
			f.SubjectID = strings.TrimSpace(line[i+len(certificate.SubjectIDLabel):])
		}

		if strings.Contains(line, certificate.AttestationPhrase) && idx+1 < len(lines) {
			f.SubjectName = lines[idx+1]
		}

		if strings.Contains(line, certificate.CompletionPhrase) || strings.Contains(line, certificate.CompletionAlt) {
			if m := quoted.FindStringSubmatch(line); m != nil {
				f.CourseName = strings.TrimSpace(m[1])
			} else if idx+1 < len(lines) {
				f.CourseName = strings.Trim(lines[idx+1], `"`)
			}
		}
	}

	var missing []string
	if f.SubjectName == "" {
		f.SubjectName = certificate.UnknownSubjectName
		missing = append(missing, "subject_name")
	}
	if f.SubjectID == "" {
		f.SubjectID = certificate.UnknownSubjectID
		missing = append(missing, "subject_id")
	}
	if f.CourseName == "" {
		if m := quotedAnywhere.FindStringSubmatch(text); m != nil {
			f.CourseName = strings.TrimSpace(m[1])
		} else {
			f.CourseName = certificate.UnknownCourseName
			missing = append(missing, "course_name")
		}
	}

	return certificate.Extracted{
		Fields:     f,
		EmbeddedID: embeddedID(lines),
		Missing:    missing,
	}, nil
}

// embeddedID prefers a hex token on a labelled line and falls back to any
// standalone 64 character hex token in the document.
func embeddedID(lines []string) certificate.Identifier {
	for _, line := range lines {
		for _, label := range []string{certificate.IdentifierLabel, certificate.DisplayIDLabel} {
			i := strings.Index(line, label)
			if i < 0 {
				continue
			}
			if tok := hexToken.FindString(line[i+len(label):]); tok != "" {
				if id, err := certificate.ParseIdentifier(tok); err == nil {
					return id
				}
			}
		}
	}

	tok := bareHexToken.FindString(strings.Join(lines, " "))
	if tok == "" {
		return ""
	}
	id, err := certificate.ParseIdentifier(tok)
	if err != nil {
		return ""
	}
	return id
}

func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

package certificate

import (
	"strings"
	"time"
)

// Document literals. The renderer writes them and the extractor keys on them,
// so the two must change together.
const (
	Title             = "CERTIFICATE OF COMPLETION"
	AttestationPhrase = "This is to certify that"
	SubjectIDLabel    = "Student ID:"
	CompletionPhrase  = "has successfully completed"
	CompletionAlt     = "completed the course"
	CompletionLine    = "has successfully completed the course"
	AwardLine         = "and is hereby awarded this certificate of completion."
	IssueDateLabel    = "Date of Issue:"
	DisplayIDLabel    = "Certificate ID:"
	IdentifierLabel   = "Certificate Hash ID:"
)

// Sentinels filled in for fields the extractor could not find.
const (
	UnknownSubjectName = "Unknown Student"
	UnknownSubjectID   = "Unknown UID"
	UnknownCourseName  = ""
)

const issueDateLayout = "January 02, 2006"

// IssueDate formats t the way it is printed on the document.
func IssueDate(t time.Time) string {
	return t.Format(issueDateLayout)
}

// DisplayID is the human-facing trailer string. It is not the Identifier and
// is never hashed or looked up.
func DisplayID(f Fields, issuedAt time.Time) string {
	return f.SubjectID + "_" +
		strings.ReplaceAll(f.SubjectName, " ", "_") + "_" +
		strings.ReplaceAll(IssueDate(issuedAt), " ", "_")
}

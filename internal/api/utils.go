package api

import (
	"strings"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

// documentName is the download filename offered for a stored certificate.
func documentName(rec certificate.Stored) string {
	name := strings.Join(strings.Fields(rec.Fields.SubjectName), "_")
	if name == "" {
		return rec.ID.String() + ".pdf"
	}
	return rec.Fields.SubjectID + "_" + name + "_" + rec.ID.Short() + ".pdf"
}

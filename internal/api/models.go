package api

import (
	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/issue"
	"github.com/swissborg/cert-ledger/internal/verify"
)

type ErrorResp struct {
	Error string `json:"error"`
}

type IssueCertRequest struct {
	SubjectID        string `json:"subject_id" validate:"required"`
	SubjectName      string `json:"subject_name" validate:"required"`
	CourseName       string `json:"course_name" validate:"required"`
	OrganizationName string `json:"organization_name" validate:"required"`
}

func (r IssueCertRequest) fields() certificate.Fields {
	return certificate.Fields{
		SubjectID:        r.SubjectID,
		SubjectName:      r.SubjectName,
		CourseName:       r.CourseName,
		OrganizationName: r.OrganizationName,
	}
}

type IssueCertResponse struct {
	ID             certificate.Identifier `json:"id"`
	Fields         certificate.Fields     `json:"fields"`
	StoragePointer string                 `json:"storage_pointer"`
	// Document is the rendered PDF, base64 encoded in JSON.
	Document []byte `json:"document"`
}

type BulkIssueRequest struct {
	OrganizationName string         `json:"organization_name" validate:"required"`
	Records          []issue.Record `json:"records" validate:"required,min=1,dive"`
}

type BulkIssueResult struct {
	Fields         certificate.Fields     `json:"fields"`
	ID             certificate.Identifier `json:"id,omitempty"`
	StoragePointer string                 `json:"storage_pointer,omitempty"`
	Status         string                 `json:"status"`
	Error          string                 `json:"error,omitempty"`
}

type BulkIssueResponse struct {
	BatchID string            `json:"batch_id"`
	Issued  int               `json:"issued"`
	Failed  int               `json:"failed"`
	Results []BulkIssueResult `json:"results"`
}

type VerifyCertResponse struct {
	Outcome     verify.Outcome         `json:"outcome"`
	CandidateID certificate.Identifier `json:"candidate_id,omitempty"`
	Embedded    bool                   `json:"embedded"`
	Extracted   *certificate.Fields    `json:"extracted,omitempty"`
	Missing     []string               `json:"missing,omitempty"`
	Stored      *certificate.Stored    `json:"stored,omitempty"`
	Mismatches  []string               `json:"mismatches,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

func newVerifyCertResponse(res verify.Result) VerifyCertResponse {
	resp := VerifyCertResponse{
		Outcome:     res.Outcome,
		CandidateID: res.CandidateID,
		Embedded:    res.Embedded,
		Stored:      res.Stored,
		Mismatches:  res.Mismatches,
	}
	if res.Extracted != nil {
		resp.Extracted = &res.Extracted.Fields
		resp.Missing = res.Extracted.Missing
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

type GetCertResponse struct {
	Verified    bool               `json:"verified"`
	Certificate certificate.Stored `json:"certificate"`
}

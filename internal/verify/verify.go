// Package verify decides whether a presented certificate is on the ledger.
package verify

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/cas"
	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/extract"
	"github.com/swissborg/cert-ledger/internal/registry"
)

// Outcome is the terminal state of one verification attempt.
type Outcome string

const (
	// Verified: the candidate identifier is on the ledger.
	Verified Outcome = "VERIFIED"
	// Unverified: the ledger answered and does not know the identifier.
	Unverified Outcome = "UNVERIFIED"
	// Tampered: no certificate could be read from the document.
	Tampered Outcome = "TAMPERED"
	// Indeterminate: the ledger could not be asked.
	Indeterminate Outcome = "INDETERMINATE"
)

// Result describes how the outcome was reached. Stored is set only when
// Verified. Mismatches lists fields where the document disagrees with the
// ledger; it is informational and never changes the outcome.
type Result struct {
	Outcome     Outcome
	CandidateID certificate.Identifier
	Embedded    bool
	Extracted   *certificate.Extracted
	Stored      *certificate.Stored
	Mismatches  []string
	Err         error
}

// ExtractFunc turns document bytes into an extracted certificate.
type ExtractFunc func(doc []byte) (certificate.Extracted, error)

type Service struct {
	registry registry.Client
	store    cas.Store
	extract  ExtractFunc
}

// NewService wires the orchestrator. store may be nil when documents are
// never fetched back.
func NewService(reg registry.Client, store cas.Store) *Service {
	return &Service{registry: reg, store: store, extract: extract.Extract}
}

// WithExtractor replaces the PDF extractor.
func (s *Service) WithExtractor(fn ExtractFunc) *Service {
	s.extract = fn
	return s
}

// VerifyDocument extracts the certificate from doc, settles on a candidate
// identifier and checks it against the ledger. An identifier embedded in
// the document is used as is; otherwise one is recomputed from the
// extracted fields.
func (s *Service) VerifyDocument(ctx context.Context, doc []byte) Result {
	ex, err := s.extract(doc)
	if err != nil {
		log.WithError(err).Info("document not extractable")
		return Result{Outcome: Tampered, Err: err}
	}

	res := Result{Extracted: &ex}
	if ex.HasEmbeddedID() {
		res.CandidateID = ex.EmbeddedID
		res.Embedded = true
	} else {
		res.CandidateID = certificate.ComputeID(ex.Fields)
	}

	log.WithField("id", res.CandidateID.Short()).
		WithField("embedded", res.Embedded).
		WithField("missing", ex.Missing).
		Info("candidate identifier")

	s.lookup(ctx, &res)
	if res.Stored != nil {
		res.Mismatches = mismatches(ex.Fields, res.Stored.Fields)
	}
	return res
}

// VerifyID checks an identifier the caller already has.
func (s *Service) VerifyID(ctx context.Context, id certificate.Identifier) Result {
	res := Result{CandidateID: id}
	s.lookup(ctx, &res)
	return res
}

func (s *Service) lookup(ctx context.Context, res *Result) {
	stored, err := s.registry.Lookup(ctx, res.CandidateID)
	switch {
	case err == nil:
		res.Outcome = Verified
		res.Stored = &stored
	case errors.Is(err, registry.ErrNotFound):
		res.Outcome = Unverified
	default:
		log.WithError(err).WithField("id", res.CandidateID.Short()).Error("ledger lookup")
		res.Outcome = Indeterminate
		res.Err = err
	}
}

// FetchDocument resolves id on the ledger and returns the stored document.
// The store verifies the bytes against the recorded pointer.
func (s *Service) FetchDocument(ctx context.Context, id certificate.Identifier) ([]byte, certificate.Stored, error) {
	if s.store == nil {
		return nil, certificate.Stored{}, errors.New("no document store configured")
	}

	stored, err := s.registry.Lookup(ctx, id)
	if err != nil {
		return nil, certificate.Stored{}, err
	}

	ptr, err := cas.ParsePointer(stored.StoragePointer)
	if err != nil {
		return nil, stored, err
	}

	doc, err := s.store.Get(ctx, ptr)
	if err != nil {
		return nil, stored, fmt.Errorf("fetch %s: %w", stored.StoragePointer, err)
	}
	return doc, stored, nil
}

func mismatches(extracted, stored certificate.Fields) []string {
	var out []string
	if extracted.SubjectID != stored.SubjectID {
		out = append(out, "subject_id")
	}
	if extracted.SubjectName != stored.SubjectName {
		out = append(out, "subject_name")
	}
	if extracted.CourseName != stored.CourseName {
		out = append(out, "course_name")
	}
	if extracted.OrganizationName != stored.OrganizationName {
		out = append(out, "organization_name")
	}
	return out
}

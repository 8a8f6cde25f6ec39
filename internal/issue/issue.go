// Package issue runs the issuance pipeline: validate, hash, render, store,
// register.
package issue

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/cas"
	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/registry"
)

// Renderer produces the document for a certificate.
type Renderer interface {
	Bytes(f certificate.Fields, id certificate.Identifier) ([]byte, error)
}

type Service struct {
	renderer Renderer
	store    cas.Store
	registry registry.Client
	workers  int
}

func NewService(renderer Renderer, store cas.Store, reg registry.Client, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{renderer: renderer, store: store, registry: reg, workers: workers}
}

// Issued is the outcome of a successful issuance.
type Issued struct {
	Record   certificate.Stored
	Document []byte
}

// Issue validates f and, when the identifier is not yet on the ledger,
// renders, stores and registers the certificate. An identifier that is
// already registered is rejected with registry.ErrAlreadyExists before
// anything is uploaded.
func (s *Service) Issue(ctx context.Context, f certificate.Fields) (Issued, error) {
	f, err := certificate.Validate(f)
	if err != nil {
		return Issued{}, err
	}

	id := certificate.ComputeID(f)
	logger := log.WithField("id", id.Short()).WithField("subjectID", f.SubjectID)

	exists, err := s.registry.Exists(ctx, id)
	if err != nil {
		return Issued{}, fmt.Errorf("check ledger: %w", err)
	}
	if exists {
		return Issued{}, registry.ErrAlreadyExists
	}

	doc, err := s.renderer.Bytes(f, id)
	if err != nil {
		return Issued{}, fmt.Errorf("render certificate: %w", err)
	}
	logger.Info("certificate rendered")

	ptr, err := s.store.Put(ctx, doc)
	if err != nil {
		return Issued{}, fmt.Errorf("store certificate: %w", err)
	}
	logger = logger.WithField("pointer", ptr.String())
	logger.Info("certificate stored")

	rec := certificate.Stored{ID: id, Fields: f, StoragePointer: ptr.String()}
	if err := s.registry.Register(ctx, rec); err != nil {
		return Issued{}, fmt.Errorf("register certificate: %w", err)
	}
	logger.Info("certificate issued")

	return Issued{Record: rec, Document: doc}, nil
}

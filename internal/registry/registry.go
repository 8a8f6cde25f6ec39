// Package registry reads and writes certificate records on the ledger.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

var (
	ErrNotFound      = errors.New("certificate not found on ledger")
	ErrAlreadyExists = errors.New("certificate already registered")
	ErrReadOnly      = errors.New("ledger client has no signing key")
)

// TransportError means the ledger could not be asked, or failed to answer.
// It never means the record is absent.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// Client is the ledger as the issuance and verification flows see it.
//
// Register writes a record at most once per identifier: a second attempt
// returns ErrAlreadyExists and leaves the first record untouched. Lookup and
// Exists never mutate. No method retries.
type Client interface {
	Register(ctx context.Context, rec certificate.Stored) error
	Lookup(ctx context.Context, id certificate.Identifier) (certificate.Stored, error)
	Exists(ctx context.Context, id certificate.Identifier) (bool, error)
}

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/swissborg/cert-ledger/internal/cas"
	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/registry"
)

var (
	ErrParsReq         = fmt.Errorf("parsing request failed")
	ErrMissingFile     = fmt.Errorf("multipart field \"file\" is required")
	ErrReadUpload      = fmt.Errorf("reading uploaded document failed")
	ErrCertIssuing     = fmt.Errorf("issuing cert failed")
	ErrCertNotFound    = fmt.Errorf("certificate not found")
	ErrLedgerUnreached = fmt.Errorf("ledger could not be reached")
	ErrFetchDocument   = fmt.Errorf("fetching certificate document failed")
)

// statusFor maps a service error to the HTTP status returned to the caller.
func statusFor(err error) int {
	var casTransport *cas.TransportError
	switch {
	case errors.Is(err, certificate.ErrValidation),
		errors.Is(err, certificate.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, cas.ErrNotFound):
		return http.StatusNotFound
	case registry.IsTransport(err),
		errors.As(err, &casTransport),
		errors.Is(err, cas.ErrCIDMismatch),
		errors.Is(err, cas.ErrInvalidCID):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

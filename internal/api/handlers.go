package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/issue"
	"github.com/swissborg/cert-ledger/internal/verify"
)

// Issuer is the issuance side of the service.
type Issuer interface {
	Issue(ctx context.Context, f certificate.Fields) (issue.Issued, error)
	IssueBatch(ctx context.Context, org string, records []issue.Record) (string, []issue.BatchResult)
}

// Verifier is the verification side of the service.
type Verifier interface {
	VerifyDocument(ctx context.Context, doc []byte) verify.Result
	VerifyID(ctx context.Context, id certificate.Identifier) verify.Result
	FetchDocument(ctx context.Context, id certificate.Identifier) ([]byte, certificate.Stored, error)
}

type Handlers struct {
	issuer   Issuer
	verifier Verifier
}

func NewHandlers(issuer Issuer, verifier Verifier) *Handlers {
	return &Handlers{
		issuer:   issuer,
		verifier: verifier,
	}
}

func (h *Handlers) IssueCert(c echo.Context) error {
	var req IssueCertRequest

	if err := c.Bind(&req); err != nil {
		log.WithError(err).Error("bind issue cert request")
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: fmt.Sprintf("%v: %v", err, ErrParsReq),
		})
	}

	log.
		WithField("subjectID", req.SubjectID).
		WithField("organization", req.OrganizationName).
		Info("request")

	if err := c.Validate(req); err != nil {
		log.WithError(err).Error("validate issue cert request")
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: err.Error(),
		})
	}

	issued, err := h.issuer.Issue(c.Request().Context(), req.fields())
	if err != nil {
		log.WithError(err).Error(ErrCertIssuing)
		return c.JSON(statusFor(err), ErrorResp{
			Error: fmt.Sprintf("%v: %v", ErrCertIssuing, err),
		})
	}

	return c.JSON(http.StatusOK, IssueCertResponse{
		ID:             issued.Record.ID,
		Fields:         issued.Record.Fields,
		StoragePointer: issued.Record.StoragePointer,
		Document:       issued.Document,
	})
}

func (h *Handlers) BulkIssueCert(c echo.Context) error {
	var req BulkIssueRequest

	if err := c.Bind(&req); err != nil {
		log.WithError(err).Error("bind bulk issue request")
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: fmt.Sprintf("%v: %v", err, ErrParsReq),
		})
	}

	if err := c.Validate(req); err != nil {
		log.WithError(err).Error("validate bulk issue request")
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: err.Error(),
		})
	}

	batchID, results := h.issuer.IssueBatch(c.Request().Context(), req.OrganizationName, req.Records)

	resp := BulkIssueResponse{
		BatchID: batchID,
		Results: make([]BulkIssueResult, len(results)),
	}
	for i, r := range results {
		out := BulkIssueResult{
			Fields:         r.Fields,
			ID:             r.ID,
			StoragePointer: r.StoragePointer,
			Status:         r.Status,
		}
		if r.Err != nil {
			out.Error = r.Err.Error()
		}
		if r.Status == issue.StatusSuccess {
			resp.Issued++
		} else {
			resp.Failed++
		}
		resp.Results[i] = out
	}

	log.
		WithField("batch", batchID).
		WithField("issued", resp.Issued).
		WithField("failed", resp.Failed).
		Info("bulk issuance finished")

	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) VerifyCert(c echo.Context) error {
	doc, err := readUpload(c, "file")
	if err != nil {
		log.WithError(err).Error(ErrReadUpload)
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: err.Error(),
		})
	}

	log.WithField("size", len(doc)).Info("request")

	res := h.verifier.VerifyDocument(c.Request().Context(), doc)

	status := http.StatusOK
	if res.Outcome == verify.Indeterminate {
		status = http.StatusBadGateway
	}
	return c.JSON(status, newVerifyCertResponse(res))
}

func (h *Handlers) GetCert(c echo.Context) error {
	id, err := certificate.ParseIdentifier(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: err.Error(),
		})
	}

	log.WithField("id", id.Short()).Info("request")

	res := h.verifier.VerifyID(c.Request().Context(), id)
	switch res.Outcome {
	case verify.Verified:
		return c.JSON(http.StatusOK, GetCertResponse{
			Verified:    true,
			Certificate: *res.Stored,
		})
	case verify.Unverified:
		return c.JSON(http.StatusNotFound, ErrorResp{
			Error: ErrCertNotFound.Error(),
		})
	default:
		return c.JSON(http.StatusBadGateway, ErrorResp{
			Error: fmt.Sprintf("%v: %v", ErrLedgerUnreached, res.Err),
		})
	}
}

func (h *Handlers) GetCertDocument(c echo.Context) error {
	id, err := certificate.ParseIdentifier(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResp{
			Error: err.Error(),
		})
	}

	logger := log.WithField("id", id.Short())
	logger.Info("request")

	doc, stored, err := h.verifier.FetchDocument(c.Request().Context(), id)
	if err != nil {
		logger.WithError(err).Error(ErrFetchDocument)
		return c.JSON(statusFor(err), ErrorResp{
			Error: fmt.Sprintf("%v: %v", ErrFetchDocument, err),
		})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", documentName(stored)))
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

func readUpload(c echo.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFile, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadUpload, err)
	}
	defer f.Close()

	doc, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadUpload, err)
	}
	return doc, nil
}

package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gregjones/httpcache"
	"github.com/ipfs/go-cid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPinURL     = "https://api.pinata.cloud/pinning/pinFileToIPFS"
	DefaultGatewayURL = "https://gateway.pinata.cloud/ipfs"
)

type PinningOptions struct {
	PinURL     string
	GatewayURL string
	APIKey     string
	APISecret  string
	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration
	// MaxTries bounds upload attempts. Zero means 3.
	MaxTries uint
	// RetryInterval is the first backoff interval. Zero means 500ms.
	RetryInterval time.Duration
}

// PinningStore uploads documents to an IPFS pinning service and fetches them
// back through an HTTP gateway. Gateway responses are cached in memory since
// content under a CID never changes.
type PinningStore struct {
	opts    PinningOptions
	upload  *http.Client
	gateway *http.Client
}

var _ Store = (*PinningStore)(nil)

func NewPinningStore(opts PinningOptions) *PinningStore {
	if opts.PinURL == "" {
		opts.PinURL = DefaultPinURL
	}
	if opts.GatewayURL == "" {
		opts.GatewayURL = DefaultGatewayURL
	}
	opts.GatewayURL = strings.TrimRight(opts.GatewayURL, "/")
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}

	return &PinningStore{
		opts:   opts,
		upload: &http.Client{Timeout: opts.Timeout},
		gateway: &http.Client{
			Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
			Timeout:   opts.Timeout,
		},
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
	Error    any    `json:"error,omitempty"`
}

// Put pins data and returns the CID reported by the service. Uploads are
// retried with exponential backoff on network failures, 429 and 5xx.
func (s *PinningStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInterval

	id, err := backoff.Retry(ctx, func() (cid.Cid, error) {
		return s.pin(ctx, data)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.opts.MaxTries))
	if err != nil {
		var te *TransportError
		if errors.Is(err, ErrCIDMismatch) || errors.Is(err, ErrInvalidCID) || errors.As(err, &te) {
			return cid.Undef, err
		}
		return cid.Undef, &TransportError{Op: "put", Err: err}
	}
	return id, nil
}

func (s *PinningStore) pin(ctx context.Context, data []byte) (cid.Cid, error) {
	body, contentType, err := pinForm(data)
	if err != nil {
		return cid.Undef, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.PinURL, body)
	if err != nil {
		return cid.Undef, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("pinata_api_key", s.opts.APIKey)
	req.Header.Set("pinata_secret_api_key", s.opts.APISecret)

	resp, err := s.upload.Do(req)
	if err != nil {
		log.WithError(err).Warn("pin upload failed")
		return cid.Undef, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return cid.Undef, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.WithField("status", resp.StatusCode).Warn("pin upload rejected, retrying")
		return cid.Undef, fmt.Errorf("pinning service: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return cid.Undef, backoff.Permanent(&TransportError{
			Op:  "put",
			Err: fmt.Errorf("pinning service: %s: %s", resp.Status, strings.TrimSpace(string(raw))),
		})
	}

	var pr pinResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return cid.Undef, backoff.Permanent(&TransportError{Op: "put", Err: fmt.Errorf("decode pin response: %w", err)})
	}
	if pr.IpfsHash == "" {
		return cid.Undef, backoff.Permanent(&TransportError{Op: "put", Err: fmt.Errorf("pin response has no IpfsHash: %v", pr.Error)})
	}

	id, err := ParsePointer(pr.IpfsHash)
	if err != nil {
		return cid.Undef, backoff.Permanent(err)
	}
	if _, err := verify(id, data); err != nil {
		return cid.Undef, backoff.Permanent(err)
	}
	return id, nil
}

func pinForm(data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "certificate.pdf")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataOptions", `{"cidVersion":1}`); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Get fetches id from the gateway. Raw-codec CIDs are re-verified so a stale
// or corrupt gateway answer surfaces as ErrCIDMismatch.
func (s *PinningStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "get", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, &TransportError{Op: "get", Err: fmt.Errorf("gateway: %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "get", Err: err}
	}

	checked, err := verify(id, data)
	if err != nil {
		return nil, err
	}
	if !checked {
		log.WithField("cid", id.String()).Debug("gateway content not verifiable for this codec")
	}
	return data, nil
}

// URL is the gateway address of id.
func (s *PinningStore) URL(id cid.Cid) string {
	return s.opts.GatewayURL + "/" + id.String()
}

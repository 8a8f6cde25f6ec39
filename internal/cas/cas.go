// Package cas stores rendered certificates by content identifier.
package cas

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Store is a content-addressed document store.
//
// Put is idempotent and returns the CID of the stored bytes. Get returns
// ErrNotFound when the CID is absent and never returns bytes that fail CID
// verification.
type Store interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
}

var (
	ErrNotFound    = errors.New("cas: not found")
	ErrInvalidCID  = errors.New("cas: invalid cid")
	ErrCIDMismatch = errors.New("cas: cid mismatch")
	ErrImmutable   = errors.New("cas: immutable object mismatch")
)

// TransportError wraps failures talking to a remote store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("cas %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// RawCID returns the CIDv1 (raw codec, sha2-256) of data.
func RawCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ParsePointer decodes a storage pointer as recorded on the ledger.
func ParsePointer(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil || !id.Defined() {
		return cid.Undef, fmt.Errorf("%w: %q", ErrInvalidCID, s)
	}
	return id, nil
}

// verify checks data against id. Only raw-codec CIDs address the bytes
// directly; for other codecs (UnixFS dag-pb) the check is skipped and false
// is returned.
func verify(id cid.Cid, data []byte) (bool, error) {
	if id.Prefix().Codec != cid.Raw {
		return false, nil
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return false, err
	}
	if !got.Equals(id) {
		return false, ErrCIDMismatch
	}
	return true, nil
}

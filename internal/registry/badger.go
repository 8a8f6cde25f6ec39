package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

const keyPrefix = "cert/"

// BadgerLedger is an append-only ledger kept in a local badger database. It
// backs single-node deployments and tests; entries never expire and are
// never overwritten.
type BadgerLedger struct {
	db *badger.DB
}

var _ Client = (*BadgerLedger)(nil)

// OpenBadger opens the database in dir, or an in-memory one when dir is empty.
func OpenBadger(dir string) (*badger.DB, error) {
	opt := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opt = opt.WithInMemory(true)
	}
	db, err := badger.Open(opt)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func NewBadgerLedger(db *badger.DB) *BadgerLedger {
	return &BadgerLedger{db: db}
}

func (l *BadgerLedger) Register(_ context.Context, rec certificate.Stored) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key(rec.ID))
		switch {
		case err == nil:
			return ErrAlreadyExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return transportErr("register", err)
		}

		if err := txn.Set(key(rec.ID), val); err != nil {
			return transportErr("register", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadyExists) && !IsTransport(err) {
		return transportErr("register", err)
	}
	return err
}

func (l *BadgerLedger) Lookup(_ context.Context, id certificate.Identifier) (certificate.Stored, error) {
	var rec certificate.Stored
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return transportErr("lookup", err)
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &rec); err != nil {
				return transportErr("lookup", fmt.Errorf("decode record: %w", err))
			}
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !IsTransport(err) {
			err = transportErr("lookup", err)
		}
		return certificate.Stored{}, err
	}
	return rec, nil
}

func (l *BadgerLedger) Exists(_ context.Context, id certificate.Identifier) (bool, error) {
	var found bool
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(id))
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return false, transportErr("exists", err)
	}
	return found, nil
}

func key(id certificate.Identifier) []byte {
	return []byte(keyPrefix + id.String())
}

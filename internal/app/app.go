// Package app builds the ledger, store and services named by a config.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/config"
	"github.com/swissborg/cert-ledger/internal/cas"
	"github.com/swissborg/cert-ledger/internal/issue"
	"github.com/swissborg/cert-ledger/internal/registry"
	"github.com/swissborg/cert-ledger/internal/render"
	"github.com/swissborg/cert-ledger/internal/verify"
)

// Secrets are read from the environment, never from the config file.
type Secrets struct {
	PrivateKey   string
	PinataKey    string
	PinataSecret string
}

func SecretsFromEnv() Secrets {
	return Secrets{
		PrivateKey:   os.Getenv("PRIVATE_KEY"),
		PinataKey:    os.Getenv("PINATA_API_KEY"),
		PinataSecret: os.Getenv("PINATA_API_SECRET"),
	}
}

type App struct {
	Ledger   registry.Client
	Store    cas.Store
	Renderer *render.Renderer
	Issuer   *issue.Service
	Verifier *verify.Service

	closers []func()
}

func New(ctx context.Context, cfg config.Config, secrets Secrets) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}

	ledger, err := a.openLedger(ctx, cfg.Ledger, secrets.PrivateKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Ledger = ledger

	store, err := openStore(cfg.Store, secrets)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	a.Renderer = render.New(cfg.Renderer.LogoPath)
	a.Issuer = issue.NewService(a.Renderer, a.Store, a.Ledger, cfg.Bulk.Workers)
	a.Verifier = verify.NewService(a.Ledger, a.Store)

	log.
		WithField("ledger", cfg.Ledger.Backend).
		WithField("store", cfg.Store.Backend).
		Info("services ready")

	return a, nil
}

func (a *App) openLedger(ctx context.Context, cfg config.Ledger, privateKey string) (registry.Client, error) {
	switch cfg.Backend {
	case config.LedgerEth:
		l, err := registry.DialEthLedger(ctx, cfg.Node, cfg.ContractAddress, privateKey, cfg.ChainTimeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l.Close)
		return l, nil
	case config.LedgerBadger:
		db, err := registry.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger ledger: %w", err)
		}
		a.closers = append(a.closers, closeBadger(db))
		return registry.NewBadgerLedger(db), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func openStore(cfg config.Store, secrets Secrets) (cas.Store, error) {
	switch cfg.Backend {
	case config.StoreLocal:
		return cas.NewLocalStore(cfg.Dir)
	case config.StorePinning:
		if secrets.PinataKey == "" || secrets.PinataSecret == "" {
			log.Warn("pinning credentials are not set, uploads will be rejected")
		}
		return cas.NewPinningStore(cas.PinningOptions{
			PinURL:     cfg.PinURL,
			GatewayURL: cfg.GatewayURL,
			APIKey:     secrets.PinataKey,
			APISecret:  secrets.PinataSecret,
			Timeout:    cfg.Timeout,
			MaxTries:   cfg.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func closeBadger(db *badger.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("closing badger")
		}
	}
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

package commands

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/registry"
)

type LookupCmd struct {
	ID string `arg:"" help:"Certificate hash ID (64 hex characters)"`
}

// Run prints the ledger record for the identifier. A missing record is a
// normal answer; only configuration and ledger failures return an error.
func (l *LookupCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := certificate.ParseIdentifier(l.ID)
	if err != nil {
		// Queried as given; a malformed id is simply not on the ledger.
		log.WithError(err).Debug("identifier not normalised")
		id = certificate.Identifier(strings.TrimSpace(l.ID))
	}

	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	verified, err := a.Ledger.Exists(ctx, id)
	if err != nil {
		return err
	}
	globals.printf("isVerified: %t\n", verified)
	if !verified {
		globals.printf("Certificate ID not found on-chain.\n")
		return nil
	}

	rec, err := a.Ledger.Lookup(ctx, id)
	if errors.Is(err, registry.ErrNotFound) {
		globals.printf("Certificate ID not found on-chain.\n")
		return nil
	}
	if err != nil {
		return err
	}

	globals.printRecord(a, rec)
	return nil
}

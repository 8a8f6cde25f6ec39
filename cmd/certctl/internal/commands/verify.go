package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/swissborg/cert-ledger/internal/verify"
)

var ErrNotVerified = errors.New("certificate is not verified")

type VerifyCmd struct {
	File string `arg:"" help:"Certificate PDF to verify" type:"existingfile"`
}

func (v *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	doc, err := os.ReadFile(v.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", v.File, err)
	}

	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Verifier.VerifyDocument(ctx, doc)

	globals.printf("Outcome: %s\n", res.Outcome)
	if res.CandidateID != "" {
		source := "recomputed"
		if res.Embedded {
			source = "embedded"
		}
		globals.printf("Candidate ID: %s (%s)\n", res.CandidateID, source)
	}
	if res.Extracted != nil && len(res.Extracted.Missing) > 0 {
		globals.printf("Not found in document: %s\n", strings.Join(res.Extracted.Missing, ", "))
	}
	if len(res.Mismatches) > 0 {
		globals.printf("Differs from ledger: %s\n", strings.Join(res.Mismatches, ", "))
	}
	if res.Stored != nil {
		globals.printRecord(a, *res.Stored)
	}

	switch res.Outcome {
	case verify.Verified:
		return nil
	case verify.Indeterminate:
		return fmt.Errorf("ledger could not be reached: %w", res.Err)
	default:
		return fmt.Errorf("%w: %s", ErrNotVerified, strings.ToLower(string(res.Outcome)))
	}
}

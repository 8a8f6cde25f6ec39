package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/issue"
)

type BulkCmd struct {
	File         string `arg:"" help:"CSV with columns uid, candidate_name, course_name" type:"existingfile"`
	Organization string `help:"Issuing organization" required:"" short:"o"`
	OutDir       string `help:"Directory the PDFs are written to" default:"certificates" type:"path"`
}

func (b *BulkCmd) Run(ctx context.Context, globals *Globals) error {
	f, err := os.Open(b.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", b.File, err)
	}
	records, err := issue.ParseCSV(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s has no records", b.File)
	}

	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	issuedAt := fixClock(a)

	batchID, results := a.Issuer.IssueBatch(ctx, b.Organization, records)
	globals.printf("Batch %s\n", batchID)

	var failed, unsaved int
	for _, r := range results {
		if r.Status != issue.StatusSuccess {
			failed++
			globals.printf("%-7s %s: %v\n", r.Status, r.Fields.SubjectID, r.Err)
			continue
		}

		path, err := writeDocument(b.OutDir, certificate.DisplayID(r.Fields, issuedAt), r.Document)
		if err != nil {
			unsaved++
			globals.printf("%-7s %s %s not saved: %v\n", r.Status, r.Fields.SubjectID, r.ID, err)
			continue
		}
		globals.printf("%-7s %s %s %s\n", r.Status, r.Fields.SubjectID, r.ID, path)
	}

	if failed > 0 || unsaved > 0 {
		return fmt.Errorf("%d of %d records failed, %d issued but not saved", failed, len(results), unsaved)
	}
	return nil
}

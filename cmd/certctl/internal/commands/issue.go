package commands

import (
	"context"
	"fmt"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

type IssueCmd struct {
	UID          string `help:"Student ID" required:""`
	Name         string `help:"Candidate name" required:""`
	Course       string `help:"Course name" required:""`
	Organization string `help:"Issuing organization" required:"" short:"o"`
	OutDir       string `help:"Directory the PDF is written to" default:"." type:"path"`
}

func (i *IssueCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	issuedAt := fixClock(a)

	issued, err := a.Issuer.Issue(ctx, certificate.Fields{
		SubjectID:        i.UID,
		SubjectName:      i.Name,
		CourseName:       i.Course,
		OrganizationName: i.Organization,
	})
	if err != nil {
		return fmt.Errorf("failed to issue certificate: %w", err)
	}

	path, err := writeDocument(i.OutDir, certificate.DisplayID(issued.Record.Fields, issuedAt), issued.Document)
	if err != nil {
		globals.printRecord(a, issued.Record)
		return fmt.Errorf("certificate %s is registered but its PDF was not saved, fetch it from storage: %w", issued.Record.ID, err)
	}

	globals.printRecord(a, issued.Record)
	globals.printf("Written to:     %s\n", path)
	return nil
}

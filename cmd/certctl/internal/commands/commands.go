package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/swissborg/cert-ledger/config"
	"github.com/swissborg/cert-ledger/internal/app"
	"github.com/swissborg/cert-ledger/internal/cas"
	"github.com/swissborg/cert-ledger/internal/certificate"
)

type Globals struct {
	Debug   bool
	Version string
	Config  string
	Out     io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.out(), format, args...)
}

// open builds the services from the config file. The caller closes them.
func (g *Globals) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a, err := app.New(ctx, cfg, app.SecretsFromEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}
	return a, nil
}

func (g *Globals) printRecord(a *app.App, rec certificate.Stored) {
	g.printf("Certificate ID: %s\n", rec.ID)
	g.printf("Student ID:     %s\n", rec.Fields.SubjectID)
	g.printf("Candidate Name: %s\n", rec.Fields.SubjectName)
	g.printf("Course Name:    %s\n", rec.Fields.CourseName)
	g.printf("Organization:   %s\n", rec.Fields.OrganizationName)
	g.printf("Storage:        %s\n", rec.StoragePointer)

	if pinning, ok := a.Store.(*cas.PinningStore); ok {
		if ptr, err := cas.ParsePointer(rec.StoragePointer); err == nil {
			g.printf("Document URL:   %s\n", pinning.URL(ptr))
		}
	}
}

// fixClock pins the renderer's issue time for this run so the document and
// its output filename carry the same date.
func fixClock(a *app.App) time.Time {
	now := time.Now()
	a.Renderer.Now = func() time.Time { return now }
	return now
}

// fileName turns a display id into a single safe path element.
func fileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r == os.PathSeparator, r == ':', unicode.IsControl(r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(filepath.Base(name), ".")
	if name == "" {
		return "certificate"
	}
	return name
}

func writeDocument(dir, name string, doc []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, fileName(name)+".pdf")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

package extract

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

// Extract decodes a PDF and parses its text.
func Extract(doc []byte) (certificate.Extracted, error) {
	text, err := Text(doc)
	if err != nil {
		return certificate.Extracted{}, err
	}
	return Parse(text)
}

// ExtractFile is Extract for a document on disk.
func ExtractFile(path string) (certificate.Extracted, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return certificate.Extracted{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Extract(doc)
}

// Text returns the document text page by page, one visual row per line.
// A document that cannot be opened, or opens but shows no text, is
// ErrNotExtractable.
func Text(doc []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrNotExtractable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		log.WithError(err).Debug("open pdf")
		return "", fmt.Errorf("%w: %v", ErrNotExtractable, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		b.WriteString(pageText(i, p))
		b.WriteByte('\n')
	}

	text = b.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNotExtractable
	}
	return text, nil
}

// pageText groups glyphs into rows by baseline in content stream order. A
// malformed content stream contributes no text.
func pageText(n int, p pdf.Page) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("page", n).Debugf("decode page: %v", r)
			out = ""
		}
	}()

	var (
		b       strings.Builder
		started bool
		prev    pdf.Text
	)
	for _, t := range p.Content().Text {
		if started {
			tol := math.Max(1, prev.FontSize/2)
			switch {
			case math.Abs(t.Y-prev.Y) > tol:
				b.WriteByte('\n')
			case t.X > prev.X+prev.W+math.Max(1, prev.FontSize/2):
				if !strings.HasSuffix(b.String(), " ") {
					b.WriteByte(' ')
				}
			}
		}
		b.WriteString(t.S)
		prev = t
		started = true
	}
	return b.String()
}

// Package render lays out a certificate as a PDF document.
package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

const (
	pointsPerInch = 72.0
	margin        = 1 * pointsPerInch
	logoSize      = 120.0
	minFontSize   = 6.0
)

type rgb struct{ r, g, b int }

var (
	darkBlue  = rgb{0, 0, 139}
	darkRed   = rgb{139, 0, 0}
	darkGreen = rgb{0, 100, 0}
	black     = rgb{0, 0, 0}
	grey      = rgb{128, 128, 128}
)

// Renderer produces certificate PDFs. LogoPath is optional; a logo that
// cannot be read or decoded is skipped and never fails the render.
type Renderer struct {
	LogoPath string
	Now      func() time.Time
}

func New(logoPath string) *Renderer {
	return &Renderer{LogoPath: logoPath, Now: time.Now}
}

// Render writes the certificate for f, embedding id on the trailer line.
func (r *Renderer) Render(w io.Writer, f certificate.Fields, id certificate.Identifier) error {
	issuedAt := time.Now()
	if r.Now != nil {
		issuedAt = r.Now()
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreator("cert-ledger", true)
	pdf.SetCreationDate(issuedAt)
	pdf.AddPage()

	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	r.placeLogo(pdf)

	l.line(f.OrganizationName, "B", 16, darkBlue)
	l.gap(0.2)
	l.line(certificate.Title, "B", 22, darkRed)
	l.gap(0.3)

	l.line(certificate.AttestationPhrase, "", 13, black)
	l.line(f.SubjectName, "B", 20, darkBlue)
	l.line(certificate.SubjectIDLabel+" "+f.SubjectID, "", 13, black)
	l.line(certificate.CompletionLine, "", 13, black)
	l.line(`"`+f.CourseName+`"`, "B", 18, darkGreen)
	l.line(certificate.AwardLine, "", 13, black)
	l.gap(0.15)

	l.line(certificate.IssueDateLabel+" "+certificate.IssueDate(issuedAt), "", 10, black)
	l.gap(0.3)
	l.signatures()
	l.gap(0.08)

	l.line(certificate.DisplayIDLabel+" "+certificate.DisplayID(f, issuedAt), "", 8, grey)
	l.line(certificate.IdentifierLabel+" "+id.String(), "", 8, grey)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Bytes renders into memory.
func (r *Renderer) Bytes(f certificate.Fields, id certificate.Identifier) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, f, id); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderFile renders into the file at path, replacing it if present.
func (r *Renderer) RenderFile(path string, f certificate.Fields, id certificate.Identifier) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.Render(out, f, id); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (r *Renderer) placeLogo(pdf *fpdf.Fpdf) {
	if r.LogoPath == "" {
		return
	}

	raw, err := os.ReadFile(r.LogoPath)
	if err != nil {
		log.WithError(err).WithField("logo", r.LogoPath).Warn("logo unreadable, rendering without it")
		return
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		log.WithError(err).WithField("logo", r.LogoPath).Warn("logo undecodable, rendering without it")
		return
	}

	opts := fpdf.ImageOptions{ImageType: strings.ToUpper(format)}
	pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(raw))
	if pdf.Err() {
		log.WithError(pdf.Error()).WithField("logo", r.LogoPath).Warn("logo rejected, rendering without it")
		pdf.ClearError()
		return
	}

	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("logo", (pageW-logoSize)/2, pdf.GetY(), logoSize, logoSize, true, opts, 0, "")
	pdf.Ln(0.2 * pointsPerInch)
}

type layout struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// line writes s centred on its own row. The font shrinks until s fits so
// that every value stays on a single text line.
func (l *layout) line(s, style string, size float64, c rgb) {
	s = l.tr(s)
	width := l.contentWidth()

	l.pdf.SetFont("Helvetica", style, size)
	for size > minFontSize && l.pdf.GetStringWidth(s) > width {
		size--
		l.pdf.SetFont("Helvetica", style, size)
	}

	l.pdf.SetTextColor(c.r, c.g, c.b)
	l.pdf.CellFormat(width, size*1.4, s, "", 1, "C", false, 0, "")
}

func (l *layout) signatures() {
	width := l.contentWidth()
	col := width / 5

	l.pdf.SetTextColor(black.r, black.g, black.b)
	l.pdf.SetFont("Helvetica", "B", 12)
	l.pdf.CellFormat(2*col, 18, "_________________", "", 0, "C", false, 0, "")
	l.pdf.CellFormat(col, 18, "", "", 0, "C", false, 0, "")
	l.pdf.CellFormat(2*col, 18, "_________________", "", 1, "C", false, 0, "")

	l.pdf.SetFont("Helvetica", "", 10)
	l.pdf.CellFormat(2*col, 14, "Registrar Signature", "", 0, "C", false, 0, "")
	l.pdf.CellFormat(col, 14, "", "", 0, "C", false, 0, "")
	l.pdf.CellFormat(2*col, 14, "Dean Signature", "", 1, "C", false, 0, "")
}

func (l *layout) gap(inches float64) {
	l.pdf.Ln(inches * pointsPerInch)
}

func (l *layout) contentWidth() float64 {
	pageW, _ := l.pdf.GetPageSize()
	left, _, right, _ := l.pdf.GetMargins()
	return pageW - left - right
}

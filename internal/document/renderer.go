// Package document renders accepted proposals as PDF documents.
package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"github.com/iwvelando/mortgage-simulator/pkg/validation"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	pageMargin   = 20.0
	labelWidth   = 60.0
	lineHeight   = 8.0
	signatureW   = 70.0
	signatureH   = 25.0
	signatureRef = "signature"
)

// Renderer builds proposal PDFs.
type Renderer struct {
	locale            string
	maxSignatureBytes int
	now               func() time.Time
	compress          bool
}

// NewRenderer returns a renderer for the configured locale.
func NewRenderer(cfg config.DocumentConfig) *Renderer {
	locale := cfg.Locale
	if locale == "" {
		locale = constants.DefaultLocale
	}
	return &Renderer{
		locale:            locale,
		maxSignatureBytes: cfg.MaxSignatureBytes,
		now:               time.Now,
		compress:          true,
	}
}

// Filename returns the download name of a borrower's proposal document,
// e.g. proposta-financiamento-maria-da-silva.pdf.
func (r *Renderer) Filename(name string) string {
	return Filename(name)
}

// Render lays out the proposal on a single A4 page.
func (r *Renderer) Render(rec proposal.Record) ([]byte, error) {
	l := labelsFor(r.locale)
	money := func(v float64) string { return format.Currency(v, r.locale) }

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	generated := r.now()
	pdf.SetCreationDate(generated)
	pdf.SetModificationDate(generated)
	pdf.SetTitle(l.Title, true)
	pdf.SetCreator("mortgage-simulator", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, tr(l.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(230, 236, 245)
		pdf.CellFormat(0, lineHeight+1, tr(title), "", 1, "L", true, 0, "")
		pdf.Ln(1)
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, lineHeight, tr(value), "", 1, "L", false, 0, "")
	}

	section(l.ClientSection)
	row(l.Name, rec.Name)
	row(l.Email, rec.Email)
	row(l.Phone, format.Phone(rec.Phone))
	row(l.TaxID, format.TaxID(rec.TaxID))
	pdf.Ln(4)

	result := rec.Result()
	section(l.FinancingSection)
	row(l.PropertyValue, money(rec.PropertyValue))
	row(l.DownPayment, money(rec.DownPayment))
	row(l.LoanAmount, money(rec.LoanAmount))
	row(l.InterestRate, rateText(rec.InterestRate, l))
	row(l.Term, fmt.Sprintf(l.TermFormat, rec.LoanTerm, result.TotalMonths))
	row(l.MonthlyPayment, money(rec.MonthlyPayment))
	row(l.TotalAmount, money(rec.TotalAmount))
	row(l.TotalInterest, money(result.TotalInterest))
	pdf.Ln(4)

	if rec.Signature != "" {
		raw, err := validation.DecodeSignature(rec.Signature, r.maxSignatureBytes)
		if err != nil {
			return nil, fmt.Errorf("rendering proposal %s: %w", rec.ID, err)
		}
		section(l.SignatureSection)
		pdf.RegisterImageOptionsReader(signatureRef, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(raw))
		y := pdf.GetY() + 2
		pdf.ImageOptions(signatureRef, pageMargin, y, signatureW, signatureH, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetY(y + signatureH + 2)
		pdf.SetDrawColor(120, 120, 120)
		pdf.Line(pageMargin, pdf.GetY(), pageMargin+signatureW, pdf.GetY())
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(signatureW, 5, tr(rec.Name), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, tr(l.GeneratedAt+": "+generated.Format(l.DateLayout)), "", 1, "L", false, 0, "")
	pdf.MultiCell(0, 5, tr(l.Validity), "", "L", false)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("rendering proposal %s: %w", rec.ID, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing proposal %s: %w", rec.ID, err)
	}
	return buf.Bytes(), nil
}

func rateText(percent float64, l labels) string {
	text := strconv.FormatFloat(mathutil.RoundTo(percent, 4), 'f', -1, 64)
	if l.DecimalComma {
		text = strings.Replace(text, ".", ",", 1)
	}
	return text + "% " + l.RateSuffix
}

// Filename returns proposta-financiamento-<slug>.pdf for a borrower name.
func Filename(name string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var builder strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
			dash = false
			continue
		}
		if !dash && builder.Len() > 0 {
			builder.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(builder.String(), "-")
	if slug == "" {
		return constants.DocumentFilenamePrefix + ".pdf"
	}
	return constants.DocumentFilenamePrefix + "-" + slug + ".pdf"
}

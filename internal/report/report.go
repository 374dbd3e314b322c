// Package report assembles the crisis report PDF.
//
// The layout is a single A4 flow: optional logo, the two-line title, optional
// post link, the sentiment chart, the optional word cloud, the negativity
// index and alert level, then a sample of at most 20 comments. Text goes
// through a lossy Latin-1 transform so the core PDF fonts never fail on it.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"crisis-monitor/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

const (
	// ContentType of the assembled document
	ContentType = "application/pdf"

	MaxSampleLines  = 20
	SampleTextChars = 85
)

// Input is everything one report is built from. Theme and Logo are optional.
type Input struct {
	Chart    []byte
	Theme    []byte
	Logo     []byte
	Link     string
	Metrics  models.AggregateMetrics
	Alert    models.Alert
	Comments []models.Comment
}

// Config for the assembler
type Config struct {
	Title    string
	Subtitle string
	// Now stamps the document dates. Defaults to time.Now.
	Now func() time.Time
}

// Assembler lays out reports
type Assembler struct {
	title    string
	subtitle string
	now      func() time.Time
	compress bool
	logger   *zap.Logger
}

// New creates an assembler
func New(cfg Config, logger *zap.Logger) *Assembler {
	if cfg.Title == "" {
		cfg.Title = "Digital Monitoring Report"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Assembler{
		title:    cfg.Title,
		subtitle: cfg.Subtitle,
		now:      cfg.Now,
		compress: true,
		logger:   logger,
	}
}

// Assemble renders the report and returns the PDF bytes
func (a *Assembler) Assemble(in Input) ([]byte, error) {
	if len(in.Chart) == 0 {
		return nil, fmt.Errorf("chart image is required")
	}

	stamp := a.now()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(a.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle(a.title, true)
	pdf.AddPage()

	a.logo(pdf, in.Logo)

	pdf.SetFont("Arial", "B", 16)
	pdf.Ln(15)
	pdf.CellFormat(200, 10, EncodeLossy(a.title), "", 1, "C", false, 0, "")
	if a.subtitle != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(200, 10, EncodeLossy(a.subtitle), "", 1, "C", false, 0, "")
	}

	if in.Link != "" {
		pdf.Ln(5)
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(0, 0, 255)
		pdf.CellFormat(200, 10, EncodeLossy("Post Link: "+in.Link), "", 1, "C", false, 0, in.Link)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(5)
	if err := image(pdf, "chart", in.Chart, 60, pdf.GetY()+5, 90); err != nil {
		return nil, fmt.Errorf("failed to place chart: %w", err)
	}
	pdf.Ln(85)

	if len(in.Theme) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(200, 10, "Negative Comments Word Cloud:", "", 1, "", false, 0, "")
		if err := image(pdf, "theme", in.Theme, 40, pdf.GetY()+2, 130); err != nil {
			return nil, fmt.Errorf("failed to place word cloud: %w", err)
		}
		pdf.Ln(70)
	}

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(200, 10, fmt.Sprintf("Negativity Index: %.1f%%", in.Metrics.NegativePercentage), "", 1, "", false, 0, "")
	pdf.CellFormat(200, 10, EncodeLossy(fmt.Sprintf("Alert Level: %s - %s", in.Alert.Tier, in.Alert.Message)), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(200, 10, "Comment Sample:", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range SampleLines(in.Comments) {
		pdf.CellFormat(200, 7, line, "", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	a.logger.Debug("Report assembled",
		zap.Int("bytes", buf.Len()),
		zap.Bool("theme", len(in.Theme) > 0),
		zap.Bool("logo", len(in.Logo) > 0),
		zap.Int("comments", len(in.Comments)))

	return buf.Bytes(), nil
}

// logo places the branding image, skipping anything that cannot be decoded
func (a *Assembler) logo(pdf *fpdf.Fpdf, data []byte) {
	if len(data) == 0 {
		return
	}
	if err := image(pdf, "logo", data, 10, 8, 35); err != nil {
		a.logger.Warn("Skipping logo", zap.Error(err))
		pdf.ClearError()
	}
}

func image(pdf *fpdf.Fpdf, name string, data []byte, x, y, w float64) error {
	imageType, err := ImageType(data)
	if err != nil {
		return err
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		return pdf.Error()
	}
	pdf.ImageOptions(name, x, y, w, 0, false, opts, 0, "")
	return pdf.Error()
}

// ImageType maps sniffed image content to the fpdf image type
func ImageType(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/png"):
		return "PNG", nil
	case mtype.Is("image/jpeg"):
		return "JPG", nil
	case mtype.Is("image/gif"):
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %s", mtype.String())
	}
}

// SampleLines formats the first comments as "- [label]: text...", with the
// text lossy-encoded and cut at SampleTextChars
func SampleLines(comments []models.Comment) []string {
	n := len(comments)
	if n > MaxSampleLines {
		n = MaxSampleLines
	}

	lines := make([]string, n)
	for i, c := range comments[:n] {
		text := EncodeLossy(singleLine(c.Text))
		if len(text) > SampleTextChars {
			text = text[:SampleTextChars]
		}
		lines[i] = fmt.Sprintf("- [%s]: %s...", c.Label, text)
	}
	return lines
}

// EncodeLossy returns s as Latin-1 bytes, one byte per character, with '?'
// for every character Latin-1 cannot represent
func EncodeLossy(s string) string {
	s = norm.NFC.String(s)
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return string(out)
}

func singleLine(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
}

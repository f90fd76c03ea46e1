// Package certificate renders the certificate of completion that
// accompanies a signed document: a summary of the document, its sender,
// every signature event and a QR code pointing at the verification page.
package certificate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/locale"
	"github.com/georgepadayatti/esign/pdf/fonts"
	"github.com/georgepadayatti/esign/pdf/images"
	"github.com/georgepadayatti/esign/pdf/layout"
	"github.com/georgepadayatti/esign/pdf/qr"
	"github.com/georgepadayatti/esign/storage"
)

// Geometry of the page, in points from the lower-left corner.
const (
	borderInset = 15.0
	margin      = 30.0
	valueOffset = 125.0
	rightColumn = 200.0

	hashFontSize = 7.5
	hashMaxWidth = 320.0

	tableTop      = 460.0
	colSigner     = 35.0
	colSignature  = 280.0
	colTimestamp  = 415.0
	rowStep       = 75.0
	rowMinY       = 100.0
	newPageTop    = 50.0
	qrSize        = 120.0
	qrRightMargin = 45.0
	qrBottom      = 40.0
)

var (
	borderColor = layout.Gray(0.12)
	titleColor  = layout.Color{R: 0, G: 0.2, B: 0.4}
	keyColor    = layout.Gray(0.12)
	valueColor  = layout.Gray(0.3)
	headerBand  = layout.Gray(0.93)
	boxColor    = layout.Gray(0.8)
	captionGray = layout.Gray(0.4)
)

// Generator renders certificates.
type Generator struct {
	// Logo, when set, is drawn in the top-left corner.
	Logo *images.PDFImage
	// Producer is written to the document information dictionary.
	Producer string

	fetcher storage.Fetcher
	font    fonts.Font
	clock   clockwork.Clock
	logger  *zap.Logger
}

// NewGenerator creates a generator that reads signature images through
// fetcher. fetcher may be nil, in which case images are skipped.
func NewGenerator(fetcher storage.Fetcher, clock clockwork.Clock, logger *zap.Logger) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		Producer: "esign",
		fetcher:  fetcher,
		font:     fonts.NewStandardFont(fonts.Times),
		clock:    clock,
		logger:   logger.With(zap.String("component", "certificate")),
	}
}

// Generate validates c and renders it as an unsigned PDF.
func (g *Generator) Generate(ctx context.Context, c *Context) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r := &renderer{
		g:     g,
		c:     c,
		t:     &c.Messages.Certificate,
		dates: locale.NewDateFormatter(c.Organization.DateFormat, c.Organization.Timezone, c.Organization.Is12Hour),
		doc:   layout.NewDocument(layout.A4),
	}
	r.doc.Now = g.clock.Now
	r.doc.Title = c.Messages.Certificate.Title
	r.doc.Subject = c.DocumentName
	r.doc.Producer = g.Producer
	r.doc.Author = c.company()

	first := r.doc.AddPage()
	r.header(first)
	r.summary(first)
	r.sender(first)
	r.signers(ctx, first)
	r.qrCode(first)

	out, err := r.doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("writing certificate: %w", err)
	}
	g.logger.Debug("rendered certificate",
		zap.String("document_id", c.DocumentID),
		zap.Int("pages", r.doc.PageCount()),
		zap.Int("signers", len(c.Signers)),
	)
	return out, nil
}

type renderer struct {
	g     *Generator
	c     *Context
	t     *locale.CertificateTexts
	dates *locale.DateFormatter
	doc   *layout.Document
}

func (r *renderer) text(p *layout.Page, x, y, size float64, color layout.Color, s string) {
	p.Text(x, y, r.g.font, size, color, s)
}

func (r *renderer) width(s string, size float64) float64 {
	return r.g.font.Metrics().GetStringWidth(s, size)
}

func (r *renderer) header(p *layout.Page) {
	w, h := p.Size.Width, p.Size.Height
	p.StrokeRect(layout.NewRectangle(borderInset, borderInset, w-2*borderInset, h-2*borderInset), 1, borderColor)
	if r.g.Logo != nil {
		p.Image(r.g.Logo, layout.NewRectangle(30, 770, 120, 30))
	}

	generatedAt := r.c.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = *r.c.CompletedAt
	}
	generated := r.t.GeneratedOn + " " + r.dates.Format(generatedAt)
	x := max(borderInset+20, w-margin-r.width(generated, 10))
	r.text(p, x, 785, 10, borderColor, generated)

	r.text(p, 160, 735, 25, titleColor, r.t.Title)
	p.Line(margin, 725, w-margin, 725, 1, titleColor)
}

func (r *renderer) summary(p *layout.Page) {
	y := 700.0
	row := func(label, value string, step float64) {
		r.text(p, margin, y, 11, keyColor, label)
		r.text(p, margin+valueOffset, y, 11, valueColor, value)
		y -= step
	}
	row(r.t.DocumentID, r.c.DocumentID, 15)
	row(r.t.DocumentName, fonts.Truncate(r.c.DocumentName, 40), 30)
	row(r.t.Signers, strconv.Itoa(r.c.SignerCount), 15)
	row(r.t.CreatedOn, r.dates.Format(r.c.CreatedAt), 15)
	row(r.t.CompletedOn, r.dates.Format(*r.c.CompletedAt), 15)
	row(r.t.Organization, r.c.company(), 0)

	y -= 30
	r.text(p, margin, y, 11, keyColor, r.t.DocumentHash)
	y -= 15
	tl := fonts.NewTextLayout(r.g.font, hashFontSize)
	for _, line := range tl.SplitHalves(r.c.ContentHash, hashMaxWidth) {
		r.text(p, margin, y, hashFontSize, valueColor, line)
		y -= 10
	}
}

func (r *renderer) sender(p *layout.Page) {
	x := p.Size.Width - rightColumn
	y := 700.0
	r.text(p, x, y, 11, keyColor, r.t.DocumentOriginator+":")
	y -= 18
	r.text(p, x, y, 11, valueColor, orNA(r.c.Sender.Name, "n/a"))
	y -= 15

	plant := r.c.Organization.Plant
	switch {
	case plant.HasAddress():
		if plant.Address != "" {
			r.text(p, x, y, 10, valueColor, truncateRunes(plant.Address, 35))
			y -= 13
		}
		if plant.District != "" {
			r.text(p, x, y, 10, valueColor, plant.District)
			y -= 13
		}
		var parts []string
		for _, s := range []string{plant.City, plant.State, plant.ZipCode} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			r.text(p, x, y, 10, valueColor, strings.Join(parts, ", "))
			y -= 13
		}
		y -= 2
	case plant != nil && plant.Name != "":
		r.text(p, x, y, 10, valueColor, plant.Name)
		y -= 15
	case r.c.company() != "":
		r.text(p, x, y, 10, valueColor, r.c.company())
		y -= 15
	}

	r.text(p, x, y, 10, valueColor, orNA(r.c.Sender.Email, "n/a"))
	y -= 15
	r.text(p, x, y, 10, valueColor, r.t.IPAddress+" "+r.c.OriginIP)
}

// signers draws the table header and one row per signer. Rows that do not
// fit continue on new pages.
func (r *renderer) signers(ctx context.Context, p *layout.Page) {
	y := tableTop
	p.FillRect(layout.NewRectangle(margin, y-2, p.Size.Width-2*margin, 18), headerBand)
	r.text(p, colSigner, y+3, 11, keyColor, r.t.SignerEvents)
	r.text(p, colSignature, y+3, 11, keyColor, r.t.SignatureColumn)
	if first, rest, ok := strings.Cut(r.t.TimestampColumn, " "); ok {
		r.text(p, colTimestamp, y+10, 10, keyColor, first)
		r.text(p, colTimestamp, y-2, 10, keyColor, rest)
	} else {
		r.text(p, colTimestamp, y+3, 10, keyColor, r.t.TimestampColumn)
	}
	y -= 20

	for i, s := range r.c.Signers {
		if y < rowMinY {
			p = r.doc.AddPage()
			y = p.Size.Height - newPageTop
		}
		r.signerRow(ctx, p, y, i, s)
		y -= rowStep
	}
}

func (r *renderer) signerRow(ctx context.Context, p *layout.Page, top float64, idx int, s Signer) {
	y := top
	r.text(p, colSigner, y, 11, keyColor, orNA(s.Name, "N/A"))
	y -= 13
	r.text(p, colSigner, y, 10, valueColor, s.Email)
	y -= 13
	if r.c.RequireOTP {
		r.text(p, colSigner, y, 9, valueColor, r.t.SecurityLevel+" "+r.t.EmailOTPAuth)
		y -= 12
	}
	r.text(p, colSigner, y, 9, valueColor, r.t.SignatureAdoption)
	y -= 12
	r.text(p, colSigner, y, 9, valueColor, r.t.UsingIPAddress+" "+orNA(s.IP, "N/A"))

	if img := r.signatureImage(ctx, idx, s); img != nil {
		box := layout.NewRectangle(colSignature, top-35, 120, 50)
		p.StrokeRect(box, 1, boxColor)
		p.Image(img, box.Inset(5))
	}

	y = top
	for _, ts := range []struct {
		label string
		at    string
	}{
		{r.t.Sent, r.dates.FormatPtr(s.SentOn, "N/A")},
		{r.t.Viewed, r.dates.FormatPtr(s.ViewedOn, "N/A")},
		{r.t.Signed, r.dates.FormatPtr(s.SignedOn, "N/A")},
	} {
		r.text(p, colTimestamp, y, 8, valueColor, ts.label+" "+ts.at)
		y -= 12
	}
}

// signatureImage loads a drawn signature. Failures only drop the image.
func (r *renderer) signatureImage(ctx context.Context, idx int, s Signer) *images.PDFImage {
	if s.SignatureImage == "" || r.g.fetcher == nil {
		return nil
	}
	data, err := r.g.fetcher.Fetch(ctx, s.SignatureImage)
	if err != nil {
		r.g.logger.Warn("skipping signature image", zap.Int("signer", idx), zap.Error(err))
		return nil
	}
	img, err := images.Decode(data)
	if err == nil {
		img, err = img.Fit(440, 160)
	}
	if err != nil {
		r.g.logger.Warn("skipping undecodable signature image", zap.Int("signer", idx), zap.Error(err))
		return nil
	}
	return img
}

func (r *renderer) qrCode(p *layout.Page) {
	if r.c.VerificationURL == "" {
		return
	}
	code, err := qr.NewQRCode(r.c.VerificationURL, qr.ECLevelH)
	if err != nil {
		r.g.logger.Error("failed to render QR code", zap.String("document_id", r.c.DocumentID), zap.Error(err))
		return
	}
	x := p.Size.Width - qrSize - qrRightMargin
	p.Raw(code.RenderPDF(x, qrBottom, qrSize))
	p.TextAligned(x, qrBottom-15, qrSize, layout.AlignCenter, r.g.font, 9, keyColor, r.t.VerifyCertificate)
	p.TextAligned(x, qrBottom-28, qrSize, layout.AlignCenter, r.g.font, 8, captionGray, r.t.ScanToVerify)
}

func orNA(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

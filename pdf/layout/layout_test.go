package layout

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	dpdf "github.com/digitorus/pdf"

	"github.com/georgepadayatti/esign/pdf/fonts"
	"github.com/georgepadayatti/esign/pdf/images"
	"github.com/georgepadayatti/esign/pdf/reader"
)

func TestToPoints(t *testing.T) {
	if got := ToPoints(1, In); got != 72 {
		t.Errorf("Expected 72, got %v", got)
	}
	if got := ToPoints(25.4, Mm); math.Abs(got-72) > 1e-9 {
		t.Errorf("Expected 72, got %v", got)
	}
}

func TestLandscape(t *testing.T) {
	l := A4.Landscape()
	if l.Width != 841.89 || l.Height != 595.28 {
		t.Errorf("Unexpected landscape size %+v", l)
	}
	if l.Landscape() != l {
		t.Error("Landscape of a landscape size should be unchanged")
	}
}

func TestScaleToFitAndCenter(t *testing.T) {
	img := NewRectangle(0, 0, 300, 100)
	fit := img.ScaleToFit(110, 40)
	if math.Abs(fit.Width-110) > 1e-9 || math.Abs(fit.Height-110.0/3) > 1e-9 {
		t.Errorf("Unexpected fit %+v", fit)
	}
	box := NewRectangle(10, 20, 120, 50)
	centered := CenterIn(NewRectangle(0, 0, 100, 30), box)
	if centered.X != 20 || centered.Y != 30 {
		t.Errorf("Expected (20, 30), got (%v, %v)", centered.X, centered.Y)
	}
	if inset := box.Inset(5); inset.X != 15 || inset.Width != 110 || inset.Top() != 65 {
		t.Errorf("Unexpected inset %+v", inset)
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		align    Alignment
		expected float64
	}{
		{AlignStart, 0},
		{AlignCenter, 40},
		{AlignEnd, 80},
	}
	for _, tt := range tests {
		if got := Position(100, 20, tt.align); got != tt.expected {
			t.Errorf("Expected %v, got %v", tt.expected, got)
		}
	}
}

func TestPageOperators(t *testing.T) {
	doc := NewDocument(A4)
	p := doc.AddPage()
	times := fonts.NewStandardFont(fonts.Times)
	p.Text(160, 735, times, 25, Black, "Certificate (1)")
	p.Line(30, 720, 565, 720, 1, Gray(0.5))
	p.FillRect(NewRectangle(30, 600, 535, 20), Color{0.9, 0.9, 0.9})

	content := string(p.Content())
	for _, want := range []string{
		"/F1 25 Tf\n160 735 Td\n(Certificate \\(1\\)) Tj",
		"0.5 0.5 0.5 RG\n1 w\n30 720 m\n565 720 l\nS",
		"0.9 0.9 0.9 rg\n30 600 535 20 re\nf",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Expected %q in content %q", want, content)
		}
	}
}

func TestTextAlignedRight(t *testing.T) {
	doc := NewDocument(A4)
	p := doc.AddPage()
	courier := fonts.NewStandardFont(fonts.Courier)
	// "abc" at 10pt is 18pt wide.
	p.TextAligned(100, 50, 100, AlignEnd, courier, 10, Black, "abc")
	if !strings.Contains(string(p.Content()), "182 50 Td") {
		t.Errorf("Expected right aligned text at 182, got %q", p.Content())
	}
}

func testImage(t *testing.T) *images.PDFImage {
	t.Helper()
	src := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for i := range src.Pix {
		src.Pix[i] = 0xFF
	}
	src.Set(0, 0, color.NRGBA{A: 0})
	img, err := images.FromImage(src)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	return img
}

func buildDocument(t *testing.T) []byte {
	t.Helper()
	doc := NewDocument(A4)
	doc.Title = "Completion Certificate"
	doc.Producer = "esign"
	doc.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	img := testImage(t)
	times := fonts.NewStandardFont(fonts.Times)
	bold := fonts.NewStandardFont(fonts.TimesBold)

	first := doc.AddPage()
	first.Text(50, 800, bold, 25, Black, "Certificate")
	first.Image(img, NewRectangle(50, 600, 110, 40))
	second := doc.AddPage()
	second.Text(50, 800, times, 12, Black, "Signer page")
	second.Image(img, NewRectangle(50, 600, 110, 40))

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	return data
}

func TestDocumentRoundTrip(t *testing.T) {
	data := buildDocument(t)
	r, err := reader.NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(r.Pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(r.Pages))
	}
	if mb := r.MediaBox(r.Pages[0].Dict); mb.Width() != 595.28 {
		t.Errorf("Expected A4 width, got %v", mb.Width())
	}

	res0 := r.ResolveDict(r.Pages[0].Dict.Get("Resources"))
	res1 := r.ResolveDict(r.Pages[1].Dict.Get("Resources"))
	im0 := r.ResolveDict(res0.Get("XObject")).Get("Im1")
	im1 := r.ResolveDict(res1.Get("XObject")).Get("Im1")
	if im0 != im1 {
		t.Errorf("Image should be embedded once, got %v and %v", im0, im1)
	}
	if !r.ResolveStream(im0).Dictionary.Has("SMask") {
		t.Error("Transparent image should carry a soft mask")
	}

	f0 := r.ResolveDict(res0.Get("Font"))
	if f0.Len() != 1 || !f0.Has("F1") {
		t.Errorf("First page should only use F1, got %v", f0.Keys())
	}
	f1 := r.ResolveDict(res1.Get("Font"))
	if !f1.Has("F2") {
		t.Errorf("Second page should use F2, got %v", f1.Keys())
	}
}

func TestDocumentReadableByIndependentParser(t *testing.T) {
	data := buildDocument(t)
	r, err := dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("digitorus/pdf could not open the document: %v", err)
	}
	if r.NumPage() != 2 {
		t.Errorf("Expected 2 pages, got %d", r.NumPage())
	}
	if title := r.Trailer().Key("Info").Key("Title").Text(); title != "Completion Certificate" {
		t.Errorf("Expected title, got %q", title)
	}

	var text strings.Builder
	for _, s := range r.Page(1).Content().Text {
		text.WriteString(s.S)
	}
	if !strings.Contains(text.String(), "Certificate") {
		t.Errorf("Expected page text to contain Certificate, got %q", text.String())
	}
}

package layout

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/georgepadayatti/esign/pdf/filters"
	"github.com/georgepadayatti/esign/pdf/fonts"
	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/images"
	"github.com/georgepadayatti/esign/pdf/writer"
)

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Common colors
var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

// Gray returns the neutral color with the given level.
func Gray(level float64) Color { return Color{level, level, level} }

func (c Color) components() string {
	return generic.FormatReal(c.R) + " " + generic.FormatReal(c.G) + " " + generic.FormatReal(c.B)
}

// Document collects pages drawn in points from the lower-left corner and
// writes them as a new PDF file.
type Document struct {
	Size PageSize
	// Info entries written to the document information dictionary.
	Title    string
	Author   string
	Subject  string
	Producer string
	// Now supplies the creation date.
	Now func() time.Time

	fonts *fonts.FontRegistry
	pages []*Page
}

// NewDocument creates an empty document whose pages have the given size.
func NewDocument(size PageSize) *Document {
	return &Document{Size: size, Now: time.Now, fonts: fonts.NewFontRegistry()}
}

// AddPage starts a new page and returns it.
func (d *Document) AddPage() *Page {
	p := &Page{doc: d, Size: d.Size, images: make(map[*images.PDFImage]string)}
	d.pages = append(d.pages, p)
	return p
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Page is one page under construction.
type Page struct {
	Size PageSize

	doc     *Document
	content bytes.Buffer
	fonts   []string
	images  map[*images.PDFImage]string
	order   []*images.PDFImage
}

// Text draws s with its baseline starting at (x, y).
func (p *Page) Text(x, y float64, font fonts.Font, size float64, color Color, s string) {
	ref := p.useFont(font)
	fmt.Fprintf(&p.content, "BT\n%s rg\n/%s %s Tf\n%s %s Td\n",
		color.components(), ref, generic.FormatReal(size), generic.FormatReal(x), generic.FormatReal(y))
	generic.NewLiteralString(string(font.Encode(s))).Write(&p.content) // bytes.Buffer
	p.content.WriteString(" Tj\nET\n")
}

// TextAligned draws s inside the horizontal span [x, x+width] with the
// given alignment.
func (p *Page) TextAligned(x, y, width float64, align Alignment, font fonts.Font, size float64, color Color, s string) {
	w := font.Metrics().GetStringWidth(s, size)
	p.Text(x+Position(width, w, align), y, font, size, color, s)
}

// Line strokes a straight line.
func (p *Page) Line(x1, y1, x2, y2, width float64, color Color) {
	fmt.Fprintf(&p.content, "%s RG\n%s w\n%s %s m\n%s %s l\nS\n",
		color.components(), generic.FormatReal(width),
		generic.FormatReal(x1), generic.FormatReal(y1), generic.FormatReal(x2), generic.FormatReal(y2))
}

// StrokeRect outlines r.
func (p *Page) StrokeRect(r Rectangle, width float64, color Color) {
	fmt.Fprintf(&p.content, "%s RG\n%s w\n%s re\nS\n", color.components(), generic.FormatReal(width), rectOperands(r))
}

// FillRect fills r.
func (p *Page) FillRect(r Rectangle, color Color) {
	fmt.Fprintf(&p.content, "%s rg\n%s re\nf\n", color.components(), rectOperands(r))
}

// Image paints img scaled into r. The aspect ratio is kept and the image
// is centered in r.
func (p *Page) Image(img *images.PDFImage, r Rectangle) {
	name, ok := p.images[img]
	if !ok {
		name = fmt.Sprintf("Im%d", len(p.order)+1)
		p.images[img] = name
		p.order = append(p.order, img)
	}
	box := CenterIn(Rectangle{Width: float64(img.Width), Height: float64(img.Height)}.ScaleToFit(r.Width, r.Height), r)
	fmt.Fprintf(&p.content, "q\n%s 0 0 %s %s %s cm\n/%s Do\nQ\n",
		generic.FormatReal(box.Width), generic.FormatReal(box.Height),
		generic.FormatReal(box.X), generic.FormatReal(box.Y), name)
}

// Raw appends content stream operators produced elsewhere, such as a QR
// code drawing.
func (p *Page) Raw(ops []byte) {
	p.content.Write(ops)
	if len(ops) > 0 && ops[len(ops)-1] != '\n' {
		p.content.WriteByte('\n')
	}
}

// Content returns the operators drawn so far.
func (p *Page) Content() []byte { return p.content.Bytes() }

func (p *Page) useFont(font fonts.Font) string {
	ref := p.doc.fonts.Register(font)
	for _, r := range p.fonts {
		if r == ref {
			return ref
		}
	}
	p.fonts = append(p.fonts, ref)
	return ref
}

func rectOperands(r Rectangle) string {
	return generic.FormatReal(r.X) + " " + generic.FormatReal(r.Y) + " " +
		generic.FormatReal(r.Width) + " " + generic.FormatReal(r.Height)
}

// Write serializes the document. Fonts are shared between pages and
// content streams are Flate compressed.
func (d *Document) Write(out io.Writer) error {
	w := writer.NewPdfFileWriter()
	w.Now = d.Now

	fontRefs := make(map[string]generic.Reference)
	d.fonts.Each(func(ref string, font fonts.Font) {
		fontRefs[ref] = w.AddObject(font.Dictionary())
	})

	imageRefs := make(map[*images.PDFImage]generic.Reference)
	for i, p := range d.pages {
		resources := generic.NewDictionary()
		if len(p.fonts) > 0 {
			fontDict := generic.NewDictionary()
			for _, ref := range p.fonts {
				fontDict.Set(ref, fontRefs[ref])
			}
			resources.Set("Font", fontDict)
		}
		if len(p.order) > 0 {
			xobjects := generic.NewDictionary()
			for _, img := range p.order {
				ref, ok := imageRefs[img]
				if !ok {
					var err error
					if ref, err = img.AddTo(w); err != nil {
						return fmt.Errorf("page %d: embedding image: %w", i+1, err)
					}
					imageRefs[img] = ref
				}
				xobjects.Set(p.images[img], ref)
			}
			resources.Set("XObject", xobjects)
		}

		content, err := filters.NewFlateStream(nil, p.content.Bytes())
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		page := generic.NewDictionary()
		page.Set("MediaBox", generic.Rectangle{URX: p.Size.Width, URY: p.Size.Height}.Array())
		page.Set("Resources", resources)
		page.Set("Contents", w.AddObject(content))
		w.AddPage(page)
	}

	for _, entry := range [][2]string{{"Title", d.Title}, {"Author", d.Author}, {"Subject", d.Subject}, {"Producer", d.Producer}} {
		if entry[1] != "" {
			w.Info.Set(entry[0], generic.NewTextString(entry[1]))
		}
	}
	return w.Write(out)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

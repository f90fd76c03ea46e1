// Package fonts provides the standard Type 1 fonts used for generated pages:
// their metrics, their WinAnsi encoding and simple text measurement.
package fonts

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/georgepadayatti/esign/pdf/generic"
)

// Common errors
var (
	ErrFontNotFound = errors.New("font not found")
)

// StandardFont represents a PDF standard font name.
type StandardFont string

// Standard fonts with bundled metrics.
const (
	Helvetica     StandardFont = "Helvetica"
	HelveticaBold StandardFont = "Helvetica-Bold"
	Times         StandardFont = "Times-Roman"
	TimesBold     StandardFont = "Times-Bold"
	Courier       StandardFont = "Courier"
)

// IsStandardFont checks if a font name has bundled metrics.
func IsStandardFont(name string) bool {
	_, ok := asciiWidths[StandardFont(name)]
	return ok || StandardFont(name) == Courier
}

// FontMetrics holds font metrics for text layout, in glyph space units.
type FontMetrics struct {
	Ascender     float64
	Descender    float64
	UnitsPerEm   float64
	Widths       map[rune]float64
	DefaultWidth float64
}

// GetWidth returns the width of a character. Accented Latin letters without
// an entry of their own measure as their base letter.
func (m *FontMetrics) GetWidth(r rune) float64 {
	if w, ok := m.Widths[r]; ok {
		return w
	}
	if decomposed := norm.NFD.String(string(r)); decomposed != string(r) {
		base, _ := utf8.DecodeRuneInString(decomposed)
		if w, ok := m.Widths[base]; ok {
			return w
		}
	}
	return m.DefaultWidth
}

// GetStringWidth calculates the width of a string at a given font size.
func (m *FontMetrics) GetStringWidth(s string, fontSize float64) float64 {
	var width float64
	for _, r := range s {
		width += m.GetWidth(r)
	}
	return width * fontSize / m.UnitsPerEm
}

// GetLineHeight returns the line height at a given font size.
func (m *FontMetrics) GetLineHeight(fontSize float64) float64 {
	return (m.Ascender - m.Descender) * fontSize / m.UnitsPerEm
}

// Font is a font that can be placed on a generated page.
type Font interface {
	Name() string
	Metrics() *FontMetrics
	// Encode converts s to the byte string shown by the Tj operator.
	Encode(s string) []byte
	// Dictionary returns the /Font resource describing the font.
	Dictionary() *generic.DictionaryObject
}

// StandardType1Font is one of the base fonts every reader provides.
type StandardType1Font struct {
	name    StandardFont
	metrics *FontMetrics
}

// NewStandardFont returns the standard font with the given name. Unknown
// names fall back to Helvetica metrics.
func NewStandardFont(name StandardFont) *StandardType1Font {
	return &StandardType1Font{name: name, metrics: standardMetrics(name)}
}

// Name returns the PostScript name.
func (f *StandardType1Font) Name() string { return string(f.name) }

// Metrics returns the font metrics.
func (f *StandardType1Font) Metrics() *FontMetrics { return f.metrics }

// Encode maps s onto WinAnsiEncoding. Characters outside the code page
// become '?'.
func (f *StandardType1Font) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// Dictionary returns the /Font resource for the font.
func (f *StandardType1Font) Dictionary() *generic.DictionaryObject {
	d := generic.NewDictionary()
	d.Set("Type", generic.NameObject("Font"))
	d.Set("Subtype", generic.NameObject("Type1"))
	d.Set("BaseFont", generic.NameObject(f.name))
	d.Set("Encoding", generic.NameObject("WinAnsiEncoding"))
	return d
}

func standardMetrics(name StandardFont) *FontMetrics {
	m := &FontMetrics{
		UnitsPerEm: 1000,
		Widths:     make(map[rune]float64, 128),
	}
	switch name {
	case Times, TimesBold:
		m.Ascender, m.Descender = 683, -217
		m.DefaultWidth = 500
	case Courier:
		m.Ascender, m.Descender = 629, -157
		m.DefaultWidth = 600
		return m
	default:
		m.Ascender, m.Descender = 718, -207
		m.DefaultWidth = 556
	}
	table, ok := asciiWidths[name]
	if !ok {
		table = asciiWidths[Helvetica]
	}
	for i, w := range table {
		m.Widths[rune(' '+i)] = float64(w)
	}
	return m
}

// asciiWidths holds the AFM advance widths of the printable ASCII range,
// starting at the space character.
var asciiWidths = map[StandardFont][95]uint16{
	Helvetica: {
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	},
	HelveticaBold: {
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	},
	Times: {
		250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
		921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
		333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
		500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
	},
	TimesBold: {
		250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333, 570, 570, 570, 500,
		930, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 333, 278, 333, 581, 500,
		333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
		556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
	},
}

// FontRegistry assigns page resource names to the fonts of a document.
type FontRegistry struct {
	fonts   map[string]Font
	refs    map[string]string
	order   []string
	nextRef int
}

// NewFontRegistry creates a new font registry.
func NewFontRegistry() *FontRegistry {
	return &FontRegistry{
		fonts:   make(map[string]Font),
		refs:    make(map[string]string),
		nextRef: 1,
	}
}

// Register registers a font and returns its resource name. Registering the
// same font twice returns the same name.
func (r *FontRegistry) Register(font Font) string {
	name := font.Name()
	if ref, ok := r.refs[name]; ok {
		return ref
	}
	ref := fmt.Sprintf("F%d", r.nextRef)
	r.nextRef++
	r.fonts[name] = font
	r.refs[name] = ref
	r.order = append(r.order, name)
	return ref
}

// Get retrieves a registered font by name.
func (r *FontRegistry) Get(name string) (Font, error) {
	f, ok := r.fonts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFontNotFound, name)
	}
	return f, nil
}

// Each calls fn for every registered font in registration order.
func (r *FontRegistry) Each(fn func(ref string, font Font)) {
	for _, name := range r.order {
		fn(r.refs[name], r.fonts[name])
	}
}

// TextLayout measures and breaks text set in one font and size.
type TextLayout struct {
	Font     Font
	FontSize float64
}

// NewTextLayout creates a new text layout.
func NewTextLayout(font Font, fontSize float64) *TextLayout {
	return &TextLayout{Font: font, FontSize: fontSize}
}

// MeasureString measures the width of a string.
func (l *TextLayout) MeasureString(s string) float64 {
	return l.Font.Metrics().GetStringWidth(s, l.FontSize)
}

// WrapText breaks text at spaces into lines no wider than maxWidth. A
// single word wider than maxWidth gets a line of its own.
func (l *TextLayout) WrapText(text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if l.MeasureString(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// SplitHalves returns s unchanged when it fits maxWidth, otherwise its two
// halves (the first one taking the extra rune of an odd length).
func (l *TextLayout) SplitHalves(s string, maxWidth float64) []string {
	if l.MeasureString(s) <= maxWidth {
		return []string{s}
	}
	runes := []rune(s)
	mid := (len(runes) + 1) / 2
	return []string{string(runes[:mid]), string(runes[mid:])}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

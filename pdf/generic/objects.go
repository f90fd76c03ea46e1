// Package generic implements the PDF object model: the basic object types,
// their serialization, and a parser that reads them back from a byte buffer.
package generic

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// PdfObject is implemented by every PDF object type.
type PdfObject interface {
	// Write serializes the object in PDF syntax.
	Write(w io.Writer) error
	// Clone returns a deep copy of the object.
	Clone() PdfObject
}

// Reference is an indirect reference ("12 0 R").
type Reference struct {
	ObjectNumber     int
	GenerationNumber int
}

// NewReference creates a new reference.
func NewReference(objNum, genNum int) Reference {
	return Reference{ObjectNumber: objNum, GenerationNumber: genNum}
}

func (r Reference) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d %d R", r.ObjectNumber, r.GenerationNumber)
	return err
}

func (r Reference) Clone() PdfObject { return r }

func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

// IndirectObject is an object together with the number it is stored under.
type IndirectObject struct {
	Reference
	Object PdfObject
}

// NewIndirectObject creates a new indirect object.
func NewIndirectObject(objNum, genNum int, obj PdfObject) *IndirectObject {
	return &IndirectObject{Reference: NewReference(objNum, genNum), Object: obj}
}

// Write writes the full "N G obj ... endobj" block.
func (o *IndirectObject) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d %d obj\n", o.ObjectNumber, o.GenerationNumber); err != nil {
		return err
	}
	if o.Object == nil {
		if err := (Null{}).Write(w); err != nil {
			return err
		}
	} else if err := o.Object.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\nendobj\n")
	return err
}

func (o *IndirectObject) Clone() PdfObject {
	var obj PdfObject
	if o.Object != nil {
		obj = o.Object.Clone()
	}
	return &IndirectObject{Reference: o.Reference, Object: obj}
}

// Null is the PDF null object.
type Null struct{}

func (Null) Write(w io.Writer) error {
	_, err := io.WriteString(w, "null")
	return err
}

func (n Null) Clone() PdfObject { return n }

// BooleanObject is a PDF boolean.
type BooleanObject bool

func (b BooleanObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatBool(bool(b)))
	return err
}

func (b BooleanObject) Clone() PdfObject { return b }

// IntegerObject is a PDF integer.
type IntegerObject int64

func (i IntegerObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(i), 10))
	return err
}

func (i IntegerObject) Clone() PdfObject { return i }

// RealObject is a PDF real number.
type RealObject float64

func (r RealObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, FormatReal(float64(r)))
	return err
}

func (r RealObject) Clone() PdfObject { return r }

// FormatReal formats a number the way PDF content expects it: fixed point,
// at most four decimals, no trailing zeros.
func FormatReal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// NameObject is a PDF name, stored without the leading slash.
type NameObject string

func (n NameObject) Write(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || IsDelimiter(c) {
			fmt.Fprintf(&buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (n NameObject) Clone() PdfObject { return n }

// StringObject is a PDF string. Hex controls the output syntax only.
type StringObject struct {
	Value []byte
	Hex   bool
}

// NewLiteralString creates a literal string from raw bytes.
func NewLiteralString(s string) *StringObject {
	return &StringObject{Value: []byte(s)}
}

// NewHexString creates a hex string.
func NewHexString(data []byte) *StringObject {
	return &StringObject{Value: data, Hex: true}
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// NewTextString encodes s as a PDF text string: Latin-1 when every rune fits
// PDFDocEncoding's printable range, UTF-16BE with a byte order mark otherwise.
func NewTextString(s string) *StringObject {
	latin := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF || (r >= 0x80 && r < 0xA0) {
			latin = nil
			break
		}
		latin = append(latin, byte(r))
	}
	if latin != nil || s == "" {
		return &StringObject{Value: latin}
	}
	encoded, err := utf16be.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return &StringObject{Value: []byte(s)}
	}
	return &StringObject{Value: encoded}
}

// Text decodes the string as a PDF text string.
func (s *StringObject) Text() string {
	if len(s.Value) >= 2 && s.Value[0] == 0xFE && s.Value[1] == 0xFF {
		decoded, err := utf16be.NewDecoder().Bytes(s.Value)
		if err == nil {
			return string(decoded)
		}
	}
	if utf8.Valid(s.Value) {
		return string(s.Value)
	}
	runes := make([]rune, len(s.Value))
	for i, b := range s.Value {
		runes[i] = rune(b)
	}
	return string(runes)
}

func (s *StringObject) Write(w io.Writer) error {
	if s.Hex {
		_, err := fmt.Fprintf(w, "<%X>", s.Value)
		return err
	}
	var buf bytes.Buffer
	buf.WriteByte('(')
	for _, b := range s.Value {
		switch b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			if b < 0x20 || b > 0x7E {
				fmt.Fprintf(&buf, "\\%03o", b)
			} else {
				buf.WriteByte(b)
			}
		}
	}
	buf.WriteByte(')')
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *StringObject) Clone() PdfObject {
	return &StringObject{Value: append([]byte(nil), s.Value...), Hex: s.Hex}
}

// ArrayObject is a PDF array.
type ArrayObject []PdfObject

func (a ArrayObject) Write(w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, item := range a {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if item == nil {
			item = Null{}
		}
		if err := item.Write(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}

func (a ArrayObject) Clone() PdfObject {
	out := make(ArrayObject, len(a))
	for i, item := range a {
		if item != nil {
			out[i] = item.Clone()
		}
	}
	return out
}

// Numbers converts an array of numeric objects to float64s.
func (a ArrayObject) Numbers() ([]float64, bool) {
	out := make([]float64, len(a))
	for i, item := range a {
		v, ok := Number(item)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Number returns the numeric value of an integer or real object.
func Number(obj PdfObject) (float64, bool) {
	switch v := obj.(type) {
	case IntegerObject:
		return float64(v), true
	case RealObject:
		return float64(v), true
	}
	return 0, false
}

// DictionaryObject is a PDF dictionary that keeps insertion order so that
// serialization is deterministic.
type DictionaryObject struct {
	entries map[string]PdfObject
	keys    []string
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *DictionaryObject {
	return &DictionaryObject{entries: make(map[string]PdfObject)}
}

// Set stores value under key. A nil value deletes the key.
func (d *DictionaryObject) Set(key string, value PdfObject) {
	if value == nil {
		d.Delete(key)
		return
	}
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = value
}

// Get returns the raw value stored under key, or nil.
func (d *DictionaryObject) Get(key string) PdfObject {
	if d == nil {
		return nil
	}
	return d.entries[key]
}

// Has reports whether key is present.
func (d *DictionaryObject) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// Delete removes key.
func (d *DictionaryObject) Delete(key string) {
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *DictionaryObject) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of entries.
func (d *DictionaryObject) Len() int { return len(d.keys) }

// GetName returns the name stored under key, or "".
func (d *DictionaryObject) GetName(key string) string {
	n, _ := d.Get(key).(NameObject)
	return string(n)
}

// GetInt returns the integer stored under key.
func (d *DictionaryObject) GetInt(key string) (int64, bool) {
	i, ok := d.Get(key).(IntegerObject)
	return int64(i), ok
}

// GetArray returns the direct array stored under key.
func (d *DictionaryObject) GetArray(key string) ArrayObject {
	a, _ := d.Get(key).(ArrayObject)
	return a
}

// GetDict returns the direct dictionary stored under key.
func (d *DictionaryObject) GetDict(key string) *DictionaryObject {
	dict, _ := d.Get(key).(*DictionaryObject)
	return dict
}

// GetString returns the text value of the string stored under key.
func (d *DictionaryObject) GetString(key string) string {
	if s, ok := d.Get(key).(*StringObject); ok {
		return s.Text()
	}
	return ""
}

func (d *DictionaryObject) Write(w io.Writer) error {
	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, key := range d.keys {
		if err := NameObject(key).Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := d.entries[key].Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">>")
	return err
}

func (d *DictionaryObject) Clone() PdfObject {
	out := NewDictionary()
	for _, key := range d.keys {
		out.Set(key, d.entries[key].Clone())
	}
	return out
}

// StreamObject is a dictionary followed by a byte sequence. Data holds the
// bytes exactly as stored in the file, i.e. still encoded by /Filter.
type StreamObject struct {
	Dictionary *DictionaryObject
	Data       []byte
}

// NewStream creates a stream from already-encoded data.
func NewStream(dict *DictionaryObject, data []byte) *StreamObject {
	if dict == nil {
		dict = NewDictionary()
	}
	return &StreamObject{Dictionary: dict, Data: data}
}

// Write writes the stream, refreshing /Length from the data.
func (s *StreamObject) Write(w io.Writer) error {
	s.Dictionary.Set("Length", IntegerObject(len(s.Data)))
	if err := s.Dictionary.Write(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\nstream\n"); err != nil {
		return err
	}
	if _, err := w.Write(s.Data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\nendstream")
	return err
}

func (s *StreamObject) Clone() PdfObject {
	return &StreamObject{
		Dictionary: s.Dictionary.Clone().(*DictionaryObject),
		Data:       append([]byte(nil), s.Data...),
	}
}

// Filters returns the names in the stream's /Filter entry.
func (s *StreamObject) Filters() []string {
	switch f := s.Dictionary.Get("Filter").(type) {
	case NameObject:
		return []string{string(f)}
	case ArrayObject:
		names := make([]string, 0, len(f))
		for _, item := range f {
			if n, ok := item.(NameObject); ok {
				names = append(names, string(n))
			}
		}
		return names
	}
	return nil
}

// Rectangle is a PDF rectangle in default user space.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// NewRectangle reads a rectangle from a four-number array, normalizing the
// corners.
func NewRectangle(arr ArrayObject) (Rectangle, error) {
	nums, ok := arr.Numbers()
	if !ok || len(nums) != 4 {
		return Rectangle{}, fmt.Errorf("%w: rectangle needs 4 numbers", ErrInvalidObject)
	}
	r := Rectangle{LLX: nums[0], LLY: nums[1], URX: nums[2], URY: nums[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r, nil
}

// Array converts the rectangle back to a PDF array.
func (r Rectangle) Array() ArrayObject {
	return ArrayObject{RealObject(r.LLX), RealObject(r.LLY), RealObject(r.URX), RealObject(r.URY)}
}

// Width returns the rectangle width.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the rectangle height.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// IsWhitespace reports whether b is PDF whitespace.
func IsWhitespace(b byte) bool {
	switch b {
	case ' ', '\n', '\r', '\t', '\f', 0:
		return true
	}
	return false
}

// IsDelimiter reports whether b is a PDF delimiter.
func IsDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// Package signers reserves, fills and checks the byte-range signature of a
// PDF revision.
package signers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/writer"
)

const (
	// SignatureContentsSize is the number of bytes reserved for the CMS
	// blob; the /Contents string holds twice as many hex digits.
	SignatureContentsSize = 16000

	// ByteRangePlaceholderLength is the width reserved for the /ByteRange
	// array, brackets included.
	ByteRangePlaceholderLength = 62

	// DefaultSigFilter and DefaultSigSubFilter describe the signature
	// handler.
	DefaultSigFilter    = "Adobe.PPKLite"
	DefaultSigSubFilter = "adbe.pkcs7.detached"
)

// Common errors
var (
	ErrNoPlaceholder     = errors.New("no signature placeholder found")
	ErrAlreadySigned     = errors.New("signature placeholder already filled")
	ErrInvalidByteRange  = errors.New("invalid byte range")
	ErrSignatureTooLarge = errors.New("signature too large for allocated space")
)

var (
	byteRangeKey = []byte("/ByteRange ")
	contentsKey  = []byte("/Contents <")
)

// ByteRangePlaceholder is a fixed-width /ByteRange value. It is written as
// [0 0 0 0] padded with spaces so the real offsets can be patched in without
// moving any byte.
type ByteRangePlaceholder struct{}

func (ByteRangePlaceholder) Write(w io.Writer) error {
	_, err := w.Write(padByteRange("[0 0 0 0]"))
	return err
}

func (p ByteRangePlaceholder) Clone() generic.PdfObject { return p }

// ContentsPlaceholder is a hex string of Size zero bytes.
type ContentsPlaceholder struct {
	Size int
}

func (p ContentsPlaceholder) Write(w io.Writer) error {
	buf := make([]byte, 2*p.Size+2)
	buf[0] = '<'
	for i := 1; i < len(buf)-1; i++ {
		buf[i] = '0'
	}
	buf[len(buf)-1] = '>'
	_, err := w.Write(buf)
	return err
}

func (p ContentsPlaceholder) Clone() generic.PdfObject { return p }

func padByteRange(s string) []byte {
	out := bytes.Repeat([]byte{' '}, ByteRangePlaceholderLength)
	copy(out, s)
	return out
}

// BuildProps names the application in the signature build dictionary.
type BuildProps struct {
	Name     string
	Revision string
}

// AsPdfObject renders the build properties as a PDF dictionary.
func (b BuildProps) AsPdfObject() *generic.DictionaryObject {
	app := generic.NewDictionary()
	app.Set("Name", generic.NameObject(b.Name))
	if b.Revision != "" {
		app.Set("REx", generic.NewTextString(b.Revision))
	}
	props := generic.NewDictionary()
	props.Set("App", app)
	return props
}

// SignatureMeta holds the descriptive entries of a signature dictionary.
type SignatureMeta struct {
	Name        string
	Reason      string
	Location    string
	ContactInfo string
	SigningTime time.Time
	Build       *BuildProps
}

// NewSignatureDictionary returns a /Sig dictionary with an unfilled
// /ByteRange and a /Contents gap of SignatureContentsSize bytes.
func NewSignatureDictionary(meta SignatureMeta) *generic.DictionaryObject {
	d := generic.NewDictionary()
	d.Set("Type", generic.NameObject("Sig"))
	d.Set("Filter", generic.NameObject(DefaultSigFilter))
	d.Set("SubFilter", generic.NameObject(DefaultSigSubFilter))
	d.Set("ByteRange", ByteRangePlaceholder{})
	d.Set("Contents", ContentsPlaceholder{Size: SignatureContentsSize})
	if meta.Reason != "" {
		d.Set("Reason", generic.NewTextString(meta.Reason))
	}
	if meta.Location != "" {
		d.Set("Location", generic.NewTextString(meta.Location))
	}
	if meta.Name != "" {
		d.Set("Name", generic.NewTextString(meta.Name))
	}
	if meta.ContactInfo != "" {
		d.Set("ContactInfo", generic.NewTextString(meta.ContactInfo))
	}
	if !meta.SigningTime.IsZero() {
		d.Set("M", generic.NewLiteralString(writer.FormatDate(meta.SigningTime)))
	}
	if meta.Build != nil {
		d.Set("Prop_Build", meta.Build.AsPdfObject())
	}
	return d
}

// ByteRange is the pair of regions a signature covers: everything except
// the /Contents hex string.
type ByteRange struct {
	FirstRegionLen     int64
	SecondRegionOffset int64
	SecondRegionLen    int64
}

// Array returns the range as [start1, len1, start2, len2].
func (b ByteRange) Array() []int64 {
	return []int64{0, b.FirstRegionLen, b.SecondRegionOffset, b.SecondRegionLen}
}

// String renders the range in PDF array syntax.
func (b ByteRange) String() string {
	return fmt.Sprintf("[0 %d %d %d]", b.FirstRegionLen, b.SecondRegionOffset, b.SecondRegionLen)
}

// SignedContent concatenates the two covered regions of data.
func (b ByteRange) SignedContent(data []byte) ([]byte, error) {
	end := b.SecondRegionOffset + b.SecondRegionLen
	if b.FirstRegionLen < 0 || b.SecondRegionOffset < b.FirstRegionLen || b.SecondRegionLen < 0 || end > int64(len(data)) {
		return nil, fmt.Errorf("%w: %s for %d bytes", ErrInvalidByteRange, b, len(data))
	}
	out := make([]byte, 0, b.FirstRegionLen+b.SecondRegionLen)
	out = append(out, data[:b.FirstRegionLen]...)
	out = append(out, data[b.SecondRegionOffset:end]...)
	return out, nil
}

// placeholder locates the reserved values of the last signature dictionary.
type placeholder struct {
	byteRangeStart int
	contentsStart  int // offset of '<'
	contentsEnd    int // offset just past '>'
}

func (p placeholder) capacity() int { return (p.contentsEnd - p.contentsStart - 2) / 2 }

func (p placeholder) byteRange(total int) ByteRange {
	return ByteRange{
		FirstRegionLen:     int64(p.contentsStart),
		SecondRegionOffset: int64(p.contentsEnd),
		SecondRegionLen:    int64(total - p.contentsEnd),
	}
}

func findPlaceholder(data []byte) (placeholder, error) {
	var p placeholder
	br := bytes.LastIndex(data, byteRangeKey)
	ct := bytes.LastIndex(data, contentsKey)
	if br < 0 || ct < 0 {
		return p, ErrNoPlaceholder
	}
	p.byteRangeStart = br + len(byteRangeKey)
	p.contentsStart = ct + len(contentsKey) - 1
	end := bytes.IndexByte(data[p.contentsStart:], '>')
	if end < 0 {
		return p, ErrNoPlaceholder
	}
	p.contentsEnd = p.contentsStart + end + 1

	if p.byteRangeStart+ByteRangePlaceholderLength > len(data) ||
		!bytes.Equal(data[p.byteRangeStart:p.byteRangeStart+ByteRangePlaceholderLength], padByteRange("[0 0 0 0]")) {
		return p, ErrAlreadySigned
	}
	for _, c := range data[p.contentsStart+1 : p.contentsEnd-1] {
		if c != '0' {
			return p, ErrAlreadySigned
		}
	}
	return p, nil
}

// fill writes the byte range into out, which must be a copy of the data the
// placeholder was found in.
func (p placeholder) fill(out []byte) ByteRange {
	br := p.byteRange(len(out))
	copy(out[p.byteRangeStart:], padByteRange(br.String()))
	return br
}

// parseByteRange reads the last /ByteRange array of a signed file.
func parseByteRange(data []byte) (ByteRange, error) {
	var br ByteRange
	idx := bytes.LastIndex(data, []byte("/ByteRange"))
	if idx < 0 {
		return br, ErrNoPlaceholder
	}
	rest := data[idx+len("/ByteRange"):]
	open := bytes.IndexByte(rest, '[')
	closing := bytes.IndexByte(rest, ']')
	if open < 0 || closing < open {
		return br, ErrInvalidByteRange
	}
	fields := bytes.Fields(rest[open+1 : closing])
	if len(fields) != 4 {
		return br, fmt.Errorf("%w: expected 4 numbers, got %d", ErrInvalidByteRange, len(fields))
	}
	var nums [4]int64
	for i, f := range fields {
		n, err := strconv.ParseInt(string(f), 10, 64)
		if err != nil {
			return br, fmt.Errorf("%w: %v", ErrInvalidByteRange, err)
		}
		nums[i] = n
	}
	if nums[0] != 0 {
		return br, fmt.Errorf("%w: first region must start at 0", ErrInvalidByteRange)
	}
	return ByteRange{FirstRegionLen: nums[1], SecondRegionOffset: nums[2], SecondRegionLen: nums[3]}, nil
}

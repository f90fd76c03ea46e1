// Package reader parses existing PDF files: the cross-reference chain,
// indirect objects (including compressed object streams), the page tree and
// the interactive form dictionary.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/georgepadayatti/esign/pdf/filters"
	"github.com/georgepadayatti/esign/pdf/generic"
)

// Common errors
var (
	ErrInvalidPDF     = errors.New("invalid PDF file")
	ErrInvalidXRef    = errors.New("invalid xref")
	ErrObjectNotFound = errors.New("object not found")
	ErrEncrypted      = errors.New("PDF is encrypted")
)

const maxResolveDepth = 32

// Page is a leaf of the page tree.
type Page struct {
	Ref  generic.Reference
	Dict *generic.DictionaryObject
}

// PdfFileReader gives read access to a parsed PDF file.
type PdfFileReader struct {
	data []byte

	Version string
	Trailer *generic.DictionaryObject
	Root    *generic.DictionaryObject
	RootRef generic.Reference
	Pages   []Page

	// XRefOffsets lists the xref sections newest first. XRefOffsets[0] is
	// the value an incremental update must write as /Prev.
	XRefOffsets []int64
	// HasXRefStream is set when the newest section is an xref stream.
	HasXRefStream bool
	// Repaired is set when the xref chain had to be rebuilt by scanning.
	Repaired  bool
	Encrypted bool

	xref       map[int]XRefEntry
	cache      map[int]generic.PdfObject
	objStreams map[int]*objectStream
	loading    map[int]bool
}

// NewPdfFileReader reads a PDF from r.
func NewPdfFileReader(r io.Reader) (*PdfFileReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}
	return NewPdfFileReaderFromBytes(data)
}

// NewPdfFileReaderFromBytes parses data. The slice is retained and must not
// be modified afterwards.
func NewPdfFileReaderFromBytes(data []byte) (*PdfFileReader, error) {
	r := &PdfFileReader{
		data:       data,
		xref:       make(map[int]XRefEntry),
		cache:      make(map[int]generic.PdfObject),
		objStreams: make(map[int]*objectStream),
		loading:    make(map[int]bool),
	}
	if err := r.parse(); err != nil {
		return nil, err
	}
	return r, nil
}

var headerRe = regexp.MustCompile(`%PDF-(\d\.\d)`)

func (r *PdfFileReader) parse() error {
	head := r.data
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := headerRe.FindSubmatch(head)
	if m == nil {
		return fmt.Errorf("%w: missing PDF header", ErrInvalidPDF)
	}
	r.Version = string(m[1])

	if err := r.readXRefChain(); err != nil {
		r.XRefOffsets = nil
		r.HasXRefStream = false
		r.Repaired = true
		if rerr := r.rebuildXRef(); rerr != nil {
			return fmt.Errorf("%w (repair failed: %v)", err, rerr)
		}
	}

	r.Encrypted = r.Trailer.Has("Encrypt")
	if r.Encrypted {
		return ErrEncrypted
	}

	rootRef, ok := r.Trailer.Get("Root").(generic.Reference)
	if !ok {
		return fmt.Errorf("%w: trailer has no /Root reference", ErrInvalidPDF)
	}
	r.RootRef = rootRef
	r.Root = r.ResolveDict(rootRef)
	if r.Root == nil {
		return fmt.Errorf("%w: document catalog is not a dictionary", ErrInvalidPDF)
	}
	return r.loadPages()
}

func (r *PdfFileReader) readXRefChain() error {
	idx := bytes.LastIndex(r.data, []byte("startxref"))
	if idx < 0 {
		return fmt.Errorf("%w: startxref not found", ErrInvalidXRef)
	}
	p := generic.NewParser(r.data)
	p.Seek(idx + len("startxref"))
	offset, err := strconv.ParseInt(p.ReadToken(), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad startxref value", ErrInvalidXRef)
	}

	visited := make(map[int64]bool)
	for first := true; ; first = false {
		if visited[offset] {
			return fmt.Errorf("%w: loop in /Prev chain", ErrInvalidXRef)
		}
		visited[offset] = true

		sec, err := r.readXRefSection(offset)
		if err != nil {
			return err
		}
		r.XRefOffsets = append(r.XRefOffsets, offset)
		if first {
			r.Trailer = sec.trailer
			r.HasXRefStream = sec.stream
		}
		r.mergeEntries(sec.entries)

		// Hybrid files point at an xref stream holding the compressed
		// objects; its entries rank below the table they hang off.
		if stm, ok := sec.trailer.GetInt("XRefStm"); ok && !visited[stm] {
			visited[stm] = true
			if hybrid, err := r.readXRefSection(stm); err == nil {
				r.mergeEntries(hybrid.entries)
			}
		}

		prev, ok := generic.Number(sec.trailer.Get("Prev"))
		if !ok {
			return nil
		}
		offset = int64(prev)
	}
}

// mergeEntries adds entries not already defined by a newer section.
func (r *PdfFileReader) mergeEntries(entries map[int]XRefEntry) {
	for num, e := range entries {
		if _, ok := r.xref[num]; !ok {
			r.xref[num] = e
		}
	}
}

func (r *PdfFileReader) loadPages() error {
	pagesRef := r.Root.Get("Pages")
	if pagesRef == nil {
		return fmt.Errorf("%w: catalog has no /Pages", ErrInvalidPDF)
	}
	seen := make(map[generic.Reference]bool)
	var walk func(obj generic.PdfObject, depth int) error
	walk = func(obj generic.PdfObject, depth int) error {
		if depth > maxResolveDepth {
			return fmt.Errorf("%w: page tree too deep", ErrInvalidPDF)
		}
		ref, isRef := obj.(generic.Reference)
		if isRef {
			if seen[ref] {
				return fmt.Errorf("%w: cycle in page tree", ErrInvalidPDF)
			}
			seen[ref] = true
		}
		node := r.ResolveDict(obj)
		if node == nil {
			return nil
		}
		if node.GetName("Type") == "Page" || (!node.Has("Kids") && node.GetName("Type") != "Pages") {
			r.Pages = append(r.Pages, Page{Ref: ref, Dict: node})
			return nil
		}
		for _, kid := range r.ResolveArray(node.Get("Kids")) {
			if err := walk(kid, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(pagesRef, 0)
}

// Data returns the raw file bytes.
func (r *PdfFileReader) Data() []byte { return r.data }

// Size returns the value an update should use as the first free object
// number.
func (r *PdfFileReader) Size() int {
	size := r.maxObjectNumber() + 1
	if v, ok := r.Trailer.GetInt("Size"); ok && int(v) > size {
		size = int(v)
	}
	return size
}

func (r *PdfFileReader) maxObjectNumber() int {
	max := 0
	for num := range r.xref {
		if num > max {
			max = num
		}
	}
	return max
}

// GetObject loads object objNum. Missing and free objects yield
// ErrObjectNotFound.
func (r *PdfFileReader) GetObject(objNum int) (generic.PdfObject, error) {
	if obj, ok := r.cache[objNum]; ok {
		return obj, nil
	}
	entry, ok := r.xref[objNum]
	if !ok || entry.Type == XRefFree {
		return nil, fmt.Errorf("%w: object %d", ErrObjectNotFound, objNum)
	}
	if r.loading[objNum] {
		return nil, fmt.Errorf("%w: object %d refers to itself", ErrInvalidPDF, objNum)
	}
	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	var (
		obj generic.PdfObject
		err error
	)
	if entry.Type == XRefInObjStream {
		obj, err = r.objectFromStream(entry)
	} else {
		obj, err = r.objectAtOffset(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}
	r.cache[objNum] = obj
	return obj, nil
}

func (r *PdfFileReader) objectAtOffset(objNum int, offset int64) (generic.PdfObject, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("%w: object %d offset out of range", ErrInvalidPDF, objNum)
	}
	p := generic.NewParser(r.data)
	p.Seek(int(offset))
	p.ResolveLength = func(ref generic.Reference) (int64, error) {
		obj, err := r.GetObject(ref.ObjectNumber)
		if err != nil {
			return 0, err
		}
		n, ok := obj.(generic.IntegerObject)
		if !ok {
			return 0, fmt.Errorf("%w: /Length is not an integer", ErrInvalidPDF)
		}
		return int64(n), nil
	}
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("reading object %d: %w", objNum, err)
	}
	if ind.ObjectNumber != objNum {
		return nil, fmt.Errorf("%w: expected object %d at offset %d, found %d", ErrInvalidXRef, objNum, offset, ind.ObjectNumber)
	}
	return ind.Object, nil
}

func (r *PdfFileReader) objectFromStream(entry XRefEntry) (generic.PdfObject, error) {
	os, ok := r.objStreams[entry.StreamObjNum]
	if !ok {
		obj, err := r.GetObject(entry.StreamObjNum)
		if err != nil {
			return nil, err
		}
		stream, isStream := obj.(*generic.StreamObject)
		if !isStream {
			return nil, fmt.Errorf("%w: object %d is not an object stream", ErrInvalidPDF, entry.StreamObjNum)
		}
		if os, err = parseObjectStream(stream); err != nil {
			return nil, err
		}
		r.objStreams[entry.StreamObjNum] = os
	}
	return os.object(entry.IndexInStream)
}

// Resolve follows references until a direct object is reached. Dangling
// references resolve to null.
func (r *PdfFileReader) Resolve(obj generic.PdfObject) (generic.PdfObject, error) {
	for i := 0; i < maxResolveDepth; i++ {
		ref, ok := obj.(generic.Reference)
		if !ok {
			return obj, nil
		}
		next, err := r.GetObject(ref.ObjectNumber)
		if errors.Is(err, ErrObjectNotFound) {
			return generic.Null{}, nil
		}
		if err != nil {
			return nil, err
		}
		obj = next
	}
	return nil, fmt.Errorf("%w: reference chain too long", ErrInvalidPDF)
}

// ResolveDict resolves obj and returns it if it is a dictionary (or the
// dictionary of a stream).
func (r *PdfFileReader) ResolveDict(obj generic.PdfObject) *generic.DictionaryObject {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	switch v := resolved.(type) {
	case *generic.DictionaryObject:
		return v
	case *generic.StreamObject:
		return v.Dictionary
	}
	return nil
}

// ResolveArray resolves obj and returns it if it is an array.
func (r *PdfFileReader) ResolveArray(obj generic.PdfObject) generic.ArrayObject {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	arr, _ := resolved.(generic.ArrayObject)
	return arr
}

// ResolveStream resolves obj and returns it if it is a stream.
func (r *PdfFileReader) ResolveStream(obj generic.PdfObject) *generic.StreamObject {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	s, _ := resolved.(*generic.StreamObject)
	return s
}

// DecodeStream returns the decoded data of a stream.
func (r *PdfFileReader) DecodeStream(s *generic.StreamObject) ([]byte, error) {
	return filters.DecodeStream(s)
}

// PageAttr returns a page attribute, walking up /Parent for the inheritable
// ones (Resources, MediaBox, CropBox, Rotate).
func (r *PdfFileReader) PageAttr(page *generic.DictionaryObject, key string) generic.PdfObject {
	node := page
	for i := 0; node != nil && i < maxResolveDepth; i++ {
		if v := node.Get(key); v != nil {
			return v
		}
		node = r.ResolveDict(node.Get("Parent"))
	}
	return nil
}

// MediaBox returns the page's media box, defaulting to US Letter.
func (r *PdfFileReader) MediaBox(page *generic.DictionaryObject) generic.Rectangle {
	if arr := r.ResolveArray(r.PageAttr(page, "MediaBox")); arr != nil {
		if rect, err := generic.NewRectangle(arr); err == nil {
			return rect
		}
	}
	return generic.Rectangle{URX: 612, URY: 792}
}

// AcroForm returns the interactive form dictionary, or nil. The second
// value is the catalog's raw /AcroForm entry, a Reference when the form
// dictionary is an indirect object.
func (r *PdfFileReader) AcroForm() (*generic.DictionaryObject, generic.PdfObject) {
	raw := r.Root.Get("AcroForm")
	if raw == nil {
		return nil, nil
	}
	return r.ResolveDict(raw), raw
}

// PageIndex returns the index of the page with the given reference, or -1.
func (r *PdfFileReader) PageIndex(ref generic.Reference) int {
	for i, p := range r.Pages {
		if p.Ref == ref {
			return i
		}
	}
	return -1
}

// XRefEntries returns a copy of the merged cross-reference entries.
func (r *PdfFileReader) XRefEntries() map[int]XRefEntry {
	out := make(map[int]XRefEntry, len(r.xref))
	for num, e := range r.xref {
		out[num] = e
	}
	return out
}

package reader

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/georgepadayatti/esign/pdf/filters"
	"github.com/georgepadayatti/esign/pdf/generic"
)

// XRefType distinguishes the kinds of cross-reference entries.
type XRefType int

const (
	XRefFree XRefType = iota
	XRefInUse
	XRefInObjStream
)

// XRefEntry locates an object. For XRefInObjStream entries StreamObjNum
// and IndexInStream are set instead of Offset.
type XRefEntry struct {
	Type          XRefType
	Offset        int64
	Generation    int
	StreamObjNum  int
	IndexInStream int
}

type xrefSection struct {
	entries map[int]XRefEntry
	trailer *generic.DictionaryObject
	stream  bool
}

// readXRefSection reads the table or stream that starts at offset.
func (r *PdfFileReader) readXRefSection(offset int64) (*xrefSection, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("%w: offset %d out of bounds", ErrInvalidXRef, offset)
	}
	p := generic.NewParser(r.data)
	p.Seek(int(offset))
	save := p.Pos()
	if p.ReadToken() == "xref" {
		return readXRefTable(p)
	}
	p.Seek(save)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXRef, err)
	}
	stream, ok := obj.Object.(*generic.StreamObject)
	if !ok || stream.Dictionary.GetName("Type") != "XRef" {
		return nil, fmt.Errorf("%w: object %d is not an xref stream", ErrInvalidXRef, obj.ObjectNumber)
	}
	return readXRefStream(stream)
}

func readXRefTable(p *generic.Parser) (*xrefSection, error) {
	sec := &xrefSection{entries: make(map[int]XRefEntry)}
	for {
		tok := p.ReadToken()
		if tok == "trailer" {
			break
		}
		start, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: bad subsection start %q", ErrInvalidXRef, tok)
		}
		count, err := strconv.Atoi(p.ReadToken())
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: bad subsection count", ErrInvalidXRef)
		}
		for i := 0; i < count; i++ {
			off, err1 := strconv.ParseInt(p.ReadToken(), 10, 64)
			gen, err2 := strconv.Atoi(p.ReadToken())
			kind := p.ReadToken()
			if err1 != nil || err2 != nil || (kind != "n" && kind != "f") {
				return nil, fmt.Errorf("%w: bad entry for object %d", ErrInvalidXRef, start+i)
			}
			entry := XRefEntry{Type: XRefFree, Offset: off, Generation: gen}
			if kind == "n" {
				entry.Type = XRefInUse
			}
			sec.entries[start+i] = entry
		}
	}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("%w: trailer: %v", ErrInvalidXRef, err)
	}
	trailer, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("%w: trailer is not a dictionary", ErrInvalidXRef)
	}
	sec.trailer = trailer
	return sec, nil
}

func readXRefStream(stream *generic.StreamObject) (*xrefSection, error) {
	dict := stream.Dictionary
	ws, ok := dict.GetArray("W").Numbers()
	if !ok || len(ws) != 3 {
		return nil, fmt.Errorf("%w: bad /W array", ErrInvalidXRef)
	}
	w := [3]int{int(ws[0]), int(ws[1]), int(ws[2])}

	var index []float64
	if arr := dict.GetArray("Index"); arr != nil {
		index, ok = arr.Numbers()
		if !ok || len(index)%2 != 0 {
			return nil, fmt.Errorf("%w: bad /Index array", ErrInvalidXRef)
		}
	} else {
		size, _ := dict.GetInt("Size")
		index = []float64{0, float64(size)}
	}

	data, err := filters.DecodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXRef, err)
	}

	sec := &xrefSection{entries: make(map[int]XRefEntry), trailer: dict, stream: true}
	rowLen := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := int(index[i]), int(index[i+1])
		for j := 0; j < count && pos+rowLen <= len(data); j++ {
			row := data[pos : pos+rowLen]
			pos += rowLen
			kind := int64(1)
			if w[0] > 0 {
				kind = beUint(row[:w[0]])
			}
			f2 := beUint(row[w[0] : w[0]+w[1]])
			f3 := beUint(row[w[0]+w[1]:])

			var entry XRefEntry
			switch kind {
			case 0:
				entry = XRefEntry{Type: XRefFree, Generation: int(f3)}
			case 1:
				entry = XRefEntry{Type: XRefInUse, Offset: f2, Generation: int(f3)}
			case 2:
				entry = XRefEntry{Type: XRefInObjStream, StreamObjNum: int(f2), IndexInStream: int(f3)}
			default:
				continue
			}
			sec.entries[start+j] = entry
		}
	}
	return sec, nil
}

func beUint(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

var objHeaderRe = regexp.MustCompile(`(?m)(\d+)\s+(\d+)\s+obj\b`)

// rebuildXRef reconstructs the cross-reference data by scanning for object
// headers. It is used when the xref chain is missing or broken.
func (r *PdfFileReader) rebuildXRef() error {
	r.xref = make(map[int]XRefEntry)
	for _, m := range objHeaderRe.FindAllSubmatchIndex(r.data, -1) {
		num, _ := strconv.Atoi(string(r.data[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(r.data[m[4]:m[5]]))
		// Later definitions win, matching incremental update semantics.
		r.xref[num] = XRefEntry{Type: XRefInUse, Offset: int64(m[0]), Generation: gen}
	}
	if len(r.xref) == 0 {
		return fmt.Errorf("%w: no objects found", ErrInvalidPDF)
	}

	// Take the last trailer that names a catalog.
	rest := r.data
	for {
		idx := bytes.LastIndex(rest, []byte("trailer"))
		if idx < 0 {
			break
		}
		p := generic.NewParser(r.data)
		p.Seek(idx + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if d, ok := obj.(*generic.DictionaryObject); ok && d.Has("Root") {
				r.Trailer = d
				return nil
			}
		}
		rest = rest[:idx]
	}

	// No usable trailer: look for a catalog object directly.
	for num := range r.xref {
		obj, err := r.GetObject(num)
		if err != nil {
			continue
		}
		if d, ok := obj.(*generic.DictionaryObject); ok && d.GetName("Type") == "Catalog" {
			r.Trailer = generic.NewDictionary()
			r.Trailer.Set("Root", generic.NewReference(num, r.xref[num].Generation))
			r.Trailer.Set("Size", generic.IntegerObject(r.maxObjectNumber()+1))
			return nil
		}
	}
	return fmt.Errorf("%w: no document catalog", ErrInvalidPDF)
}

// objectStream is a decoded /Type /ObjStm stream.
type objectStream struct {
	data    []byte
	first   int
	offsets []int
}

func parseObjectStream(stream *generic.StreamObject) (*objectStream, error) {
	n, ok1 := stream.Dictionary.GetInt("N")
	first, ok2 := stream.Dictionary.GetInt("First")
	if !ok1 || !ok2 || n < 0 || first < 0 {
		return nil, fmt.Errorf("%w: object stream missing /N or /First", ErrInvalidPDF)
	}
	data, err := filters.DecodeStream(stream)
	if err != nil {
		return nil, err
	}
	if int(first) > len(data) {
		return nil, fmt.Errorf("%w: object stream /First out of range", ErrInvalidPDF)
	}
	os := &objectStream{data: data, first: int(first)}
	p := generic.NewParser(data[:first])
	for i := 0; i < int(n); i++ {
		p.ReadToken() // object number
		off, err := strconv.Atoi(p.ReadToken())
		if err != nil {
			return nil, fmt.Errorf("%w: bad object stream header", ErrInvalidPDF)
		}
		os.offsets = append(os.offsets, off)
	}
	return os, nil
}

func (os *objectStream) object(index int) (generic.PdfObject, error) {
	if index < 0 || index >= len(os.offsets) {
		return nil, fmt.Errorf("%w: index %d not in object stream", ErrObjectNotFound, index)
	}
	start := os.first + os.offsets[index]
	if start >= len(os.data) {
		return nil, fmt.Errorf("%w: object stream offset out of range", ErrInvalidPDF)
	}
	p := generic.NewParser(os.data)
	p.Seek(start)
	return p.ParseObject()
}

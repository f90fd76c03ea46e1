package writer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/reader"
)

// IncrementalWriter appends a new revision to an existing PDF. The original
// bytes are copied unchanged; new and replaced objects follow, then an xref
// section chained to the previous one through /Prev.
type IncrementalWriter struct {
	src *reader.PdfFileReader

	// Now feeds the second element of the file identifier.
	Now func() time.Time

	next    int
	gens    map[int]int
	objects map[int]generic.PdfObject
	order   []int
	offsets map[int]int64
}

// NewIncrementalWriter starts a new revision of src.
func NewIncrementalWriter(src *reader.PdfFileReader) *IncrementalWriter {
	return &IncrementalWriter{
		src:     src,
		Now:     time.Now,
		next:    src.Size(),
		gens:    make(map[int]int),
		objects: make(map[int]generic.PdfObject),
		offsets: make(map[int]int64),
	}
}

// Reader returns the source document.
func (w *IncrementalWriter) Reader() *reader.PdfFileReader { return w.src }

// AddObject stores obj under a fresh object number.
func (w *IncrementalWriter) AddObject(obj generic.PdfObject) generic.Reference {
	ref := generic.NewReference(w.next, 0)
	w.next++
	w.UpdateObject(ref, obj)
	return ref
}

// UpdateObject replaces the object behind ref in the new revision.
func (w *IncrementalWriter) UpdateObject(ref generic.Reference, obj generic.PdfObject) {
	if _, ok := w.objects[ref.ObjectNumber]; !ok {
		w.order = append(w.order, ref.ObjectNumber)
	}
	w.objects[ref.ObjectNumber] = obj
	w.gens[ref.ObjectNumber] = ref.GenerationNumber
}

// HasChanges reports whether any object was added or replaced.
func (w *IncrementalWriter) HasChanges() bool { return len(w.order) > 0 }

// ObjectOffset returns where object num was written by the last call to
// Bytes.
func (w *IncrementalWriter) ObjectOffset(num int) (int64, bool) {
	off, ok := w.offsets[num]
	return off, ok
}

// Bytes renders the original file followed by the new revision.
func (w *IncrementalWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(w.src.Data())
	if data := w.src.Data(); len(data) > 0 && data[len(data)-1] != '\n' && data[len(data)-1] != '\r' {
		buf.WriteByte('\n')
	}

	appendStart := buf.Len()
	rows := make([]xrefRow, 0, len(w.order)+1)
	for _, num := range w.order {
		off := int64(buf.Len())
		w.offsets[num] = off
		rows = append(rows, xrefRow{num: num, offset: off, generation: w.gens[num]})
		if err := generic.NewIndirectObject(num, w.gens[num], w.objects[num]).Write(&buf); err != nil {
			return nil, fmt.Errorf("writing object %d: %w", num, err)
		}
	}

	trailer := generic.NewDictionary()
	trailer.Set("Root", w.src.RootRef)
	if info := w.src.Trailer.Get("Info"); info != nil {
		trailer.Set("Info", info)
	}
	newID := generic.NewHexString(fileID(buf.Bytes()[appendStart:], w.Now()))
	firstID := generic.PdfObject(newID)
	if ids := w.src.Trailer.GetArray("ID"); len(ids) == 2 {
		firstID = ids[0]
	}
	trailer.Set("ID", generic.ArrayObject{firstID, newID.Clone()})

	switch {
	case w.src.Repaired:
		// The old chain cannot be trusted, so write a complete table.
		for num, e := range w.src.XRefEntries() {
			if _, replaced := w.objects[num]; replaced || e.Type != reader.XRefInUse {
				continue
			}
			rows = append(rows, xrefRow{num: num, offset: e.Offset, generation: e.Generation})
		}
		trailer.Set("Size", generic.IntegerObject(w.next))
		xrefOffset := buf.Len()
		writeXRefTable(&buf, rows, true)
		buf.WriteString("trailer\n")
		if err := trailer.Write(&buf); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	case w.src.HasXRefStream:
		num := w.next
		xrefOffset := buf.Len()
		rows = append(rows, xrefRow{num: num, offset: int64(xrefOffset)})
		data, index := xrefStreamData(rows)
		trailer.Set("Type", generic.NameObject("XRef"))
		trailer.Set("Size", generic.IntegerObject(num+1))
		trailer.Set("Index", index)
		trailer.Set("W", generic.ArrayObject{generic.IntegerObject(1), generic.IntegerObject(4), generic.IntegerObject(2)})
		trailer.Set("Prev", generic.IntegerObject(w.src.XRefOffsets[0]))
		if err := generic.NewIndirectObject(num, 0, generic.NewStream(trailer, data)).Write(&buf); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	default:
		trailer.Set("Size", generic.IntegerObject(w.next))
		trailer.Set("Prev", generic.IntegerObject(w.src.XRefOffsets[0]))
		xrefOffset := buf.Len()
		writeXRefTable(&buf, rows, false)
		buf.WriteString("trailer\n")
		if err := trailer.Write(&buf); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	}
	return buf.Bytes(), nil
}

// GetObject returns the object as it stands in the new revision.
func (w *IncrementalWriter) GetObject(num int) (generic.PdfObject, error) {
	if obj, ok := w.objects[num]; ok {
		return obj, nil
	}
	return w.src.GetObject(num)
}

// ResolveDict is reader.ResolveDict with pending changes taken into
// account.
func (w *IncrementalWriter) ResolveDict(obj generic.PdfObject) *generic.DictionaryObject {
	if ref, ok := obj.(generic.Reference); ok {
		if pending, ok := w.objects[ref.ObjectNumber]; ok {
			obj = pending
		}
	}
	return w.src.ResolveDict(obj)
}

// ResolveArray is reader.ResolveArray with pending changes taken into
// account.
func (w *IncrementalWriter) ResolveArray(obj generic.PdfObject) generic.ArrayObject {
	if ref, ok := obj.(generic.Reference); ok {
		if pending, ok := w.objects[ref.ObjectNumber]; ok {
			obj = pending
		}
	}
	return w.src.ResolveArray(obj)
}

// Editable returns a dictionary that may be modified in place and will be
// written in the new revision. The first call for ref clones the stored
// dictionary and schedules it; later calls return the same clone.
func (w *IncrementalWriter) Editable(ref generic.Reference) (*generic.DictionaryObject, error) {
	if pending, ok := w.objects[ref.ObjectNumber]; ok {
		d, isDict := pending.(*generic.DictionaryObject)
		if !isDict {
			return nil, fmt.Errorf("object %d is not a dictionary", ref.ObjectNumber)
		}
		return d, nil
	}
	obj, err := w.src.GetObject(ref.ObjectNumber)
	if err != nil {
		return nil, err
	}
	d, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("object %d is not a dictionary", ref.ObjectNumber)
	}
	clone := d.Clone().(*generic.DictionaryObject)
	w.UpdateObject(ref, clone)
	return clone, nil
}

// Root returns an editable copy of the document catalog.
func (w *IncrementalWriter) Root() (*generic.DictionaryObject, error) {
	return w.Editable(w.src.RootRef)
}

// Package writer produces PDF output: complete new documents and
// incremental updates appended to an existing file.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/georgepadayatti/esign/pdf/generic"
)

// PdfFileWriter creates a new PDF file from scratch.
type PdfFileWriter struct {
	Version string
	Root    *generic.DictionaryObject
	Info    *generic.DictionaryObject

	// Now supplies the creation date and feeds the file identifier.
	Now func() time.Time

	objects  []generic.PdfObject // index i holds object i+1
	pages    *generic.DictionaryObject
	pagesRef generic.Reference
}

// NewPdfFileWriter creates a writer with an empty page tree.
func NewPdfFileWriter() *PdfFileWriter {
	w := &PdfFileWriter{Version: "1.7", Now: time.Now}
	w.pages = generic.NewDictionary()
	w.pages.Set("Type", generic.NameObject("Pages"))
	w.pages.Set("Kids", generic.ArrayObject{})
	w.pages.Set("Count", generic.IntegerObject(0))
	w.pagesRef = w.AddObject(w.pages)

	w.Root = generic.NewDictionary()
	w.Root.Set("Type", generic.NameObject("Catalog"))
	w.Root.Set("Pages", w.pagesRef)
	w.Info = generic.NewDictionary()
	return w
}

// AddObject stores obj as a new indirect object.
func (w *PdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	w.objects = append(w.objects, obj)
	return generic.NewReference(len(w.objects), 0)
}

// SetObject replaces the object behind ref, e.g. to fill a forward
// reference.
func (w *PdfFileWriter) SetObject(ref generic.Reference, obj generic.PdfObject) {
	w.objects[ref.ObjectNumber-1] = obj
}

// AddPage appends page to the page tree and returns its reference. /Type
// and /Parent are filled in.
func (w *PdfFileWriter) AddPage(page *generic.DictionaryObject) generic.Reference {
	page.Set("Type", generic.NameObject("Page"))
	page.Set("Parent", w.pagesRef)
	ref := w.AddObject(page)
	kids := append(w.pages.GetArray("Kids"), ref)
	w.pages.Set("Kids", kids)
	w.pages.Set("Count", generic.IntegerObject(len(kids)))
	return ref
}

// PageCount returns the number of pages added so far.
func (w *PdfFileWriter) PageCount() int { return len(w.pages.GetArray("Kids")) }

// Write serializes the document with a classic xref table.
func (w *PdfFileWriter) Write(out io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", w.Version)

	now := w.Now()
	if !w.Info.Has("CreationDate") {
		w.Info.Set("CreationDate", generic.NewLiteralString(FormatDate(now)))
	}
	objects := append(append([]generic.PdfObject{}, w.objects...), w.Root, w.Info)
	rootRef := generic.NewReference(len(objects)-1, 0)
	infoRef := generic.NewReference(len(objects), 0)

	rows := make([]xrefRow, 0, len(objects))
	for i, obj := range objects {
		rows = append(rows, xrefRow{num: i + 1, offset: int64(buf.Len())})
		if err := generic.NewIndirectObject(i+1, 0, obj).Write(&buf); err != nil {
			return fmt.Errorf("writing object %d: %w", i+1, err)
		}
	}

	id := generic.NewHexString(fileID(buf.Bytes(), now))
	xrefOffset := buf.Len()
	writeXRefTable(&buf, rows, true)

	trailer := generic.NewDictionary()
	trailer.Set("Size", generic.IntegerObject(len(objects)+1))
	trailer.Set("Root", rootRef)
	trailer.Set("Info", infoRef)
	trailer.Set("ID", generic.ArrayObject{id, id.Clone()})
	buf.WriteString("trailer\n")
	if err := trailer.Write(&buf); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

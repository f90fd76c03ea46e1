// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"testing"

	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/writer"
)

// Document returns a PDF with the given number of empty 300x300 pages.
func Document(tb testing.TB, pages int) []byte {
	tb.Helper()
	w := writer.NewPdfFileWriter()
	for i := 0; i < pages; i++ {
		content := w.AddObject(generic.NewStream(nil, []byte("0 0 1 rg 10 10 50 50 re f")))
		page := generic.NewDictionary()
		page.Set("MediaBox", generic.Rectangle{URX: 300, URY: 300}.Array())
		page.Set("Contents", content)
		w.AddPage(page)
	}
	return write(tb, w)
}

// FormDocument returns a one-page PDF with a filled text field "name"
// whose appearance draws the value.
func FormDocument(tb testing.TB) []byte {
	tb.Helper()
	w := writer.NewPdfFileWriter()

	ap := generic.NewDictionary()
	ap.Set("Type", generic.NameObject("XObject"))
	ap.Set("Subtype", generic.NameObject("Form"))
	ap.Set("BBox", generic.ArrayObject{generic.IntegerObject(0), generic.IntegerObject(0), generic.IntegerObject(100), generic.IntegerObject(20)})
	apRef := w.AddObject(generic.NewStream(ap, []byte("BT /Helv 12 Tf 2 5 Td (Maria) Tj ET")))

	content := w.AddObject(generic.NewStream(nil, []byte("0 0 1 rg 10 10 50 50 re f")))
	page := generic.NewDictionary()
	page.Set("MediaBox", generic.Rectangle{URX: 300, URY: 300}.Array())
	page.Set("Contents", content)
	pageRef := w.AddPage(page)

	widget := generic.NewDictionary()
	widget.Set("Type", generic.NameObject("Annot"))
	widget.Set("Subtype", generic.NameObject("Widget"))
	widget.Set("FT", generic.NameObject("Tx"))
	widget.Set("T", generic.NewTextString("name"))
	widget.Set("V", generic.NewTextString("Maria"))
	widget.Set("Rect", generic.ArrayObject{generic.IntegerObject(50), generic.IntegerObject(100), generic.IntegerObject(250), generic.IntegerObject(140)})
	widget.Set("P", pageRef)
	apDict := generic.NewDictionary()
	apDict.Set("N", apRef)
	widget.Set("AP", apDict)
	widgetRef := w.AddObject(widget)
	page.Set("Annots", generic.ArrayObject{widgetRef})

	acroForm := generic.NewDictionary()
	acroForm.Set("Fields", generic.ArrayObject{widgetRef})
	w.Root.Set("AcroForm", w.AddObject(acroForm))
	return write(tb, w)
}

func write(tb testing.TB, w *writer.PdfFileWriter) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		tb.Fatalf("Write failed: %v", err)
	}
	return buf.Bytes()
}

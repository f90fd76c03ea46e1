package reader

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/georgepadayatti/esign/pdf/filters"
	"github.com/georgepadayatti/esign/pdf/generic"
)

// classicPDF lays out objects 1..n with a classic xref table.
func classicPDF(objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

var simpleObjects = []string{
	"<< /Type /Catalog /Pages 2 0 R >>",
	"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 595 842] >>",
	"<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>",
	"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 400] >>",
	"<< /Length 6 0 R >>\nstream\nBT ET\nendstream",
	"5",
}

func TestReadClassicFile(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(classicPDF(simpleObjects...))
	if err != nil {
		t.Fatalf("Failed to read PDF: %v", err)
	}
	if r.Version != "1.7" {
		t.Errorf("Expected version 1.7, got %s", r.Version)
	}
	if len(r.Pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(r.Pages))
	}
	if r.Pages[0].Ref != generic.NewReference(3, 0) {
		t.Errorf("Expected first page 3 0 R, got %v", r.Pages[0].Ref)
	}
	if r.Size() != 7 {
		t.Errorf("Expected size 7, got %d", r.Size())
	}
	if r.HasXRefStream || r.Repaired {
		t.Error("Classic file should not be flagged as xref stream or repaired")
	}

	// Inherited and own media boxes.
	if mb := r.MediaBox(r.Pages[0].Dict); mb.Width() != 595 {
		t.Errorf("Expected inherited width 595, got %v", mb.Width())
	}
	if mb := r.MediaBox(r.Pages[1].Dict); mb.Width() != 300 {
		t.Errorf("Expected width 300, got %v", mb.Width())
	}

	// Stream with an indirect /Length.
	s := r.ResolveStream(r.Pages[0].Dict.Get("Contents"))
	if s == nil || string(s.Data) != "BT ET" {
		t.Errorf("Expected content 'BT ET', got %v", s)
	}
}

func TestResolveDanglingReference(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(classicPDF(simpleObjects...))
	if err != nil {
		t.Fatalf("Failed to read PDF: %v", err)
	}
	obj, err := r.Resolve(generic.NewReference(99, 0))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, ok := obj.(generic.Null); !ok {
		t.Errorf("Expected null for dangling reference, got %T", obj)
	}
	if _, err := r.GetObject(99); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Expected ErrObjectNotFound, got %v", err)
	}
}

func TestIncrementalUpdateOverridesObjects(t *testing.T) {
	base := classicPDF(simpleObjects...)
	firstXRef := bytes.LastIndex(base, []byte("xref\n0 "))

	var buf bytes.Buffer
	buf.Write(base)
	off := buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R /Lang (pt-BR) >>\nendobj\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 1\n0000000000 65535 f \n1 1\n%010d 00000 n \n", off)
	fmt.Fprintf(&buf, "trailer\n<< /Size 7 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", firstXRef, xref)

	r, err := NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to read updated PDF: %v", err)
	}
	if r.Root.GetString("Lang") != "pt-BR" {
		t.Error("Newest revision of the catalog should win")
	}
	if len(r.XRefOffsets) != 2 || r.XRefOffsets[0] != int64(xref) {
		t.Errorf("Unexpected xref offsets %v", r.XRefOffsets)
	}
	if len(r.Pages) != 2 {
		t.Errorf("Pages from the original revision should still resolve, got %d", len(r.Pages))
	}
}

func TestXRefStreamWithObjectStream(t *testing.T) {
	// Objects 2 and 3 live compressed in object stream 4.
	objs := [][]byte{
		[]byte("<< /Type /Pages /Kids [3 0 R] /Count 1 >>"),
		[]byte("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] >>"),
	}
	var header, body bytes.Buffer
	for i, o := range objs {
		fmt.Fprintf(&header, "%d %d ", i+2, body.Len())
		body.Write(o)
		body.WriteByte(' ')
	}
	objStm := generic.NewDictionary()
	objStm.Set("Type", generic.NameObject("ObjStm"))
	objStm.Set("N", generic.IntegerObject(2))
	objStm.Set("First", generic.IntegerObject(header.Len()))
	stm, err := filters.NewFlateStream(objStm, append(header.Bytes(), body.Bytes()...))
	if err != nil {
		t.Fatalf("NewFlateStream failed: %v", err)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	off1 := buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	off4 := buf.Len()
	if err := generic.NewIndirectObject(4, 0, stm).Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	xrefOff := buf.Len()

	rows := []byte{
		0, 0, 0, 0xFF,
		1, 0, byte(off1), 0,
		2, 0, 4, 0,
		2, 0, 4, 1,
		1, byte(off4 >> 8), byte(off4), 0,
		1, byte(xrefOff >> 8), byte(xrefOff), 0,
	}
	xd := generic.NewDictionary()
	xd.Set("Type", generic.NameObject("XRef"))
	xd.Set("Size", generic.IntegerObject(6))
	xd.Set("W", generic.ArrayObject{generic.IntegerObject(1), generic.IntegerObject(2), generic.IntegerObject(1)})
	xd.Set("Root", generic.NewReference(1, 0))
	xs, err := filters.NewFlateStream(xd, rows)
	if err != nil {
		t.Fatalf("NewFlateStream failed: %v", err)
	}
	if err := generic.NewIndirectObject(5, 0, xs).Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOff)

	r, err := NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to read PDF: %v", err)
	}
	if !r.HasXRefStream {
		t.Error("Expected HasXRefStream")
	}
	if len(r.Pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(r.Pages))
	}
	if mb := r.MediaBox(r.Pages[0].Dict); mb.Width() != 200 {
		t.Errorf("Expected width 200, got %v", mb.Width())
	}
}

func TestRepairBrokenStartXRef(t *testing.T) {
	data := classicPDF(simpleObjects...)
	idx := bytes.LastIndex(data, []byte("startxref\n"))
	broken := append(append([]byte{}, data[:idx]...), []byte("startxref\n999999\n%%EOF\n")...)

	r, err := NewPdfFileReaderFromBytes(broken)
	if err != nil {
		t.Fatalf("Expected repair to succeed, got %v", err)
	}
	if !r.Repaired {
		t.Error("Expected Repaired flag")
	}
	if len(r.Pages) != 2 {
		t.Errorf("Expected 2 pages after repair, got %d", len(r.Pages))
	}
}

func TestRejectsGarbageAndEncrypted(t *testing.T) {
	if _, err := NewPdfFileReaderFromBytes([]byte("hello world")); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("Expected ErrInvalidPDF, got %v", err)
	}

	data := classicPDF(simpleObjects...)
	data = bytes.Replace(data, []byte("/Root 1 0 R >>"), []byte("/Root 1 0 R /Encrypt 6 0 R >>"), 1)
	if _, err := NewPdfFileReaderFromBytes(data); !errors.Is(err, ErrEncrypted) {
		t.Errorf("Expected ErrEncrypted, got %v", err)
	}
}

func TestAcroForm(t *testing.T) {
	objs := append([]string{}, simpleObjects...)
	objs[0] = "<< /Type /Catalog /Pages 2 0 R /AcroForm 7 0 R >>"
	objs = append(objs, "<< /Fields [] >>")
	r, err := NewPdfFileReaderFromBytes(classicPDF(objs...))
	if err != nil {
		t.Fatalf("Failed to read PDF: %v", err)
	}
	form, raw := r.AcroForm()
	if form == nil {
		t.Fatal("Expected AcroForm dictionary")
	}
	if raw != generic.NewReference(7, 0) {
		t.Errorf("Expected raw reference 7 0 R, got %v", raw)
	}
	if r.PageIndex(generic.NewReference(4, 0)) != 1 {
		t.Error("Expected page 4 0 R at index 1")
	}
}

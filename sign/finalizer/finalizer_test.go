package finalizer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/esign/pdf/form"
	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/pdftest"
	"github.com/georgepadayatti/esign/pdf/reader"
	"github.com/georgepadayatti/esign/pdf/writer"
	"github.com/georgepadayatti/esign/sign/signers"
)

func finalize(t *testing.T, raw []byte) ([]byte, *reader.PdfFileReader) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))
	f := New(clock, nil)
	out, err := f.Finalize(raw, Options{
		Reason:      "Digitally signed by esign for Ana <ana@example.com>",
		Location:    "n/a",
		Name:        "esign",
		ContactInfo: "support@example.com",
	})
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	r, err := reader.NewPdfFileReaderFromBytes(out)
	if err != nil {
		t.Fatalf("Finalized output does not parse: %v", err)
	}
	return out, r
}

func TestFinalizeFlattensAndReserves(t *testing.T) {
	raw := pdftest.FormDocument(t)
	out, r := finalize(t, raw)

	if !bytes.HasPrefix(out, raw) {
		t.Fatal("Finalize should only append to the original bytes")
	}

	fields, err := form.ReadFields(writer.NewIncrementalWriter(r))
	if err != nil {
		t.Fatalf("ReadFields failed: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("Expected only the signature field, got %d fields", len(fields))
	}
	sigField := fields[0]
	if sigField.FullName != DefaultFieldName || sigField.Type != form.FieldTypeSignature {
		t.Errorf("Unexpected field %s of type %s", sigField.FullName, sigField.Type)
	}
	if flags, _ := sigField.Dict.GetInt("F"); flags != 132 {
		t.Errorf("Expected widget flags 132, got %d", flags)
	}

	annots := r.ResolveArray(r.Pages[0].Dict.Get("Annots"))
	if len(annots) != 1 || annots[0] != sigField.Ref {
		t.Errorf("Expected only the signature widget on page 1, got %v", annots)
	}

	acroForm := r.ResolveDict(r.Root.Get("AcroForm"))
	if flags, _ := acroForm.GetInt("SigFlags"); flags != 3 {
		t.Errorf("Expected SigFlags 3, got %d", flags)
	}

	sig := r.ResolveDict(sigField.Value)
	if sig == nil {
		t.Fatal("Signature field should point at a signature dictionary")
	}
	if sig.GetName("Filter") != "Adobe.PPKLite" || sig.GetName("SubFilter") != "adbe.pkcs7.detached" {
		t.Errorf("Unexpected filter %s/%s", sig.GetName("Filter"), sig.GetName("SubFilter"))
	}
	contents, ok := sig.Get("Contents").(*generic.StringObject)
	if !ok || len(contents.Value) != signers.SignatureContentsSize {
		t.Errorf("Expected %d reserved bytes", signers.SignatureContentsSize)
	}
	if got := sig.GetString("Location"); got != "n/a" {
		t.Errorf("Expected location n/a, got %q", got)
	}
	if got := sig.GetString("M"); got != "D:20240601093000Z" {
		t.Errorf("Expected signing date from the clock, got %q", got)
	}
}

func TestFinalizeFlattenedContentDrawsField(t *testing.T) {
	_, r := finalize(t, pdftest.FormDocument(t))
	res := r.ResolveDict(r.PageAttr(r.Pages[0].Dict, "Resources"))
	if res == nil || r.ResolveDict(res.Get("XObject")) == nil {
		t.Error("Flattened page should reference the field appearance as an XObject")
	}
}

func TestFinalizeWithoutForm(t *testing.T) {
	_, r := finalize(t, pdftest.Document(t, 2))
	acroForm := r.ResolveDict(r.Root.Get("AcroForm"))
	if acroForm == nil {
		t.Fatal("Expected an AcroForm to be created")
	}
	if fields := r.ResolveArray(acroForm.Get("Fields")); len(fields) != 1 {
		t.Errorf("Expected 1 field, got %d", len(fields))
	}
	if annots := r.ResolveArray(r.Pages[1].Dict.Get("Annots")); len(annots) != 0 {
		t.Error("Only page 1 should carry the signature widget")
	}
}

func TestFinalizeHook(t *testing.T) {
	f := New(nil, nil)
	var calls int
	f.OnFinalize = func(Result) { calls++ }
	raw := pdftest.Document(t, 1)
	for i := 0; i < 2; i++ {
		if _, err := f.Finalize(raw, Options{}); err != nil {
			t.Fatalf("Finalize failed: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("Expected 2 hook calls, got %d", calls)
	}
}

func TestFinalizeInvalid(t *testing.T) {
	f := New(nil, nil)
	var calls int
	f.OnFinalize = func(Result) { calls++ }
	if _, err := f.Finalize([]byte("not a pdf"), Options{}); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("Expected ErrInvalidPDF, got %v", err)
	}
	if calls != 0 {
		t.Error("Hook should not run on failure")
	}
}

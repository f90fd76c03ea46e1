// Package finalizer prepares a completed document for signing: form fields
// are flattened into the page content and an invisible signature field with
// an unfilled signature dictionary is added, all in one incremental update.
package finalizer

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/pdf/form"
	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/reader"
	"github.com/georgepadayatti/esign/pdf/writer"
	"github.com/georgepadayatti/esign/sign/signers"
)

// Common errors
var (
	ErrInvalidPDF = errors.New("invalid PDF")
	ErrNoPages    = errors.New("document has no pages")
	ErrEncrypted  = errors.New("encrypted documents are not supported")
)

// DefaultFieldName names the signature field when Options leave it empty.
const DefaultFieldName = "Signature1"

// Annotation flags for the signature widget: Print and Locked.
const sigWidgetFlags = 4 | 128

// Options describe the signature that will be applied.
type Options struct {
	Reason      string
	Location    string
	Name        string
	ContactInfo string
	FieldName   string
}

// Result summarizes a finalization.
type Result struct {
	FlattenedFields int
	Size            int
}

// Finalizer flattens forms and reserves the signature placeholder.
type Finalizer struct {
	// OnFinalize, when set, is called after every successful Finalize.
	OnFinalize func(Result)

	clock  clockwork.Clock
	logger *zap.Logger
}

// New creates a finalizer. A nil clock means the real clock, a nil logger
// discards output.
func New(clock clockwork.Clock, logger *zap.Logger) *Finalizer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finalizer{clock: clock, logger: logger.With(zap.String("component", "finalizer"))}
}

// Finalize returns raw with one appended revision holding the flattened
// form and the signature placeholder. raw itself is not modified.
func (f *Finalizer) Finalize(raw []byte, opts Options) ([]byte, error) {
	r, err := reader.NewPdfFileReaderFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if r.Encrypted {
		return nil, ErrEncrypted
	}
	if len(r.Pages) == 0 {
		return nil, ErrNoPages
	}

	w := writer.NewIncrementalWriter(r)
	w.Now = f.clock.Now

	flattened, err := form.Flatten(w)
	if err != nil {
		return nil, fmt.Errorf("flattening form: %w", err)
	}
	if err := f.addSignatureField(w, opts); err != nil {
		return nil, err
	}

	out, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("writing revision: %w", err)
	}

	res := Result{FlattenedFields: flattened.Fields, Size: len(out)}
	f.logger.Debug("finalized document",
		zap.Int("fields", flattened.Fields),
		zap.Int("drawn", flattened.Drawn),
		zap.Int("size", len(out)),
	)
	if f.OnFinalize != nil {
		f.OnFinalize(res)
	}
	return out, nil
}

func (f *Finalizer) addSignatureField(w *writer.IncrementalWriter, opts Options) error {
	name := opts.FieldName
	if name == "" {
		name = DefaultFieldName
	}
	pageRef := w.Reader().Pages[0].Ref

	sigRef := w.AddObject(signers.NewSignatureDictionary(signers.SignatureMeta{
		Name:        opts.Name,
		Reason:      opts.Reason,
		Location:    opts.Location,
		ContactInfo: opts.ContactInfo,
		SigningTime: f.clock.Now(),
		Build:       &signers.BuildProps{Name: "esign"},
	}))

	field := generic.NewDictionary()
	field.Set("Type", generic.NameObject("Annot"))
	field.Set("Subtype", generic.NameObject("Widget"))
	field.Set("FT", generic.NameObject(string(form.FieldTypeSignature)))
	field.Set("T", generic.NewTextString(name))
	field.Set("V", sigRef)
	field.Set("F", generic.IntegerObject(sigWidgetFlags))
	field.Set("Rect", generic.Rectangle{}.Array())
	field.Set("P", pageRef)
	fieldRef := w.AddObject(field)

	acroForm, err := form.EditableAcroForm(w)
	if err != nil {
		return fmt.Errorf("editing form: %w", err)
	}
	fields := append(generic.ArrayObject{}, w.ResolveArray(acroForm.Get("Fields"))...)
	acroForm.Set("Fields", append(fields, fieldRef))
	acroForm.Set("SigFlags", generic.IntegerObject(3))

	page, err := w.Editable(pageRef)
	if err != nil {
		return fmt.Errorf("editing page: %w", err)
	}
	annots := append(generic.ArrayObject{}, w.ResolveArray(page.Get("Annots"))...)
	page.Set("Annots", append(annots, fieldRef))
	return nil
}

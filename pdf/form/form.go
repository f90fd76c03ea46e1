// Package form reads the interactive form (AcroForm) of a PDF and flattens
// it into static page content.
package form

import (
	"errors"
	"fmt"

	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/writer"
)

// Common errors
var (
	ErrCircularReference = errors.New("circular reference in form tree")
	ErrTooDeep           = errors.New("form tree too deep")
)

const maxDepth = 32

// FieldType is the value of a field's /FT entry.
type FieldType string

const (
	FieldTypeButton    FieldType = "Btn"
	FieldTypeText      FieldType = "Tx"
	FieldTypeChoice    FieldType = "Ch"
	FieldTypeSignature FieldType = "Sig"
)

// FieldFlags is the value of a field's /Ff entry.
type FieldFlags uint32

const (
	FieldFlagReadOnly FieldFlags = 1 << 0
	FieldFlagRequired FieldFlags = 1 << 1
	FieldFlagNoExport FieldFlags = 1 << 2
)

// Annotation flags (/F) that keep a widget off the page.
const (
	annotFlagHidden = 1 << 1
	annotFlagNoView = 1 << 5
)

// Widget is the on-page annotation of a terminal field.
type Widget struct {
	// Ref is zero when the widget is a direct object.
	Ref  generic.Reference
	Dict *generic.DictionaryObject
}

// Field is a terminal form field.
type Field struct {
	FullName string
	Type     FieldType
	Flags    FieldFlags
	Value    generic.PdfObject
	Ref      generic.Reference
	Dict     *generic.DictionaryObject
	Widgets  []Widget
}

// IsFilled reports whether the field carries a value.
func (f *Field) IsFilled() bool {
	if f.Value == nil {
		return false
	}
	_, isNull := f.Value.(generic.Null)
	return !isNull
}

// ReadFields walks the form field tree of the revision being written and
// returns its terminal fields. A document without a form yields no fields.
func ReadFields(w *writer.IncrementalWriter) ([]*Field, error) {
	root := w.ResolveDict(w.Reader().RootRef)
	acroForm := w.ResolveDict(root.Get("AcroForm"))
	if acroForm == nil {
		return nil, nil
	}
	walker := &fieldWalker{w: w, seen: make(map[generic.Reference]bool)}
	if err := walker.walk(w.ResolveArray(acroForm.Get("Fields")), "", nil, 0); err != nil {
		return nil, err
	}
	return walker.fields, nil
}

type fieldWalker struct {
	w      *writer.IncrementalWriter
	seen   map[generic.Reference]bool
	fields []*Field
}

func (fw *fieldWalker) walk(kids generic.ArrayObject, parentName string, parents []*generic.DictionaryObject, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	for _, kid := range kids {
		ref, _ := kid.(generic.Reference)
		if ref != (generic.Reference{}) {
			if fw.seen[ref] {
				return fmt.Errorf("%w: object %d", ErrCircularReference, ref.ObjectNumber)
			}
			fw.seen[ref] = true
		}
		dict := fw.w.ResolveDict(kid)
		if dict == nil {
			continue
		}

		name := parentName
		if partial := dict.GetString("T"); partial != "" {
			if name != "" {
				name += "."
			}
			name += partial
		}
		chain := append([]*generic.DictionaryObject{dict}, parents...)

		children := fw.w.ResolveArray(dict.Get("Kids"))
		if hasFieldKids(fw.w, children) {
			if err := fw.walk(children, name, chain, depth+1); err != nil {
				return err
			}
			continue
		}

		field := &Field{FullName: name, Ref: ref, Dict: dict}
		ft, _ := inherited(chain, "FT").(generic.NameObject)
		field.Type = FieldType(ft)
		if ff, ok := inherited(chain, "Ff").(generic.IntegerObject); ok {
			field.Flags = FieldFlags(ff)
		}
		field.Value = inherited(chain, "V")
		if dict.GetName("Subtype") == "Widget" {
			field.Widgets = append(field.Widgets, Widget{Ref: ref, Dict: dict})
		}
		for _, wk := range children {
			wref, _ := wk.(generic.Reference)
			if wd := fw.w.ResolveDict(wk); wd != nil {
				field.Widgets = append(field.Widgets, Widget{Ref: wref, Dict: wd})
			}
		}
		fw.fields = append(fw.fields, field)
	}
	return nil
}

// hasFieldKids reports whether kids are fields rather than bare widgets.
func hasFieldKids(w *writer.IncrementalWriter, kids generic.ArrayObject) bool {
	for _, k := range kids {
		if d := w.ResolveDict(k); d != nil && d.Has("T") {
			return true
		}
	}
	return false
}

// inherited looks key up along the chain from the field to the root.
func inherited(chain []*generic.DictionaryObject, key string) generic.PdfObject {
	for _, d := range chain {
		if v := d.Get(key); v != nil {
			return v
		}
	}
	return nil
}

// EditableAcroForm returns the form dictionary of the new revision, creating
// an empty one when the document has none.
func EditableAcroForm(w *writer.IncrementalWriter) (*generic.DictionaryObject, error) {
	root := w.ResolveDict(w.Reader().RootRef)
	if ref, ok := root.Get("AcroForm").(generic.Reference); ok {
		if w.ResolveDict(ref) != nil {
			return w.Editable(ref)
		}
	}
	editableRoot, err := w.Root()
	if err != nil {
		return nil, err
	}
	if d := editableRoot.GetDict("AcroForm"); d != nil {
		return d, nil
	}
	d := generic.NewDictionary()
	d.Set("Fields", generic.ArrayObject{})
	editableRoot.Set("AcroForm", w.AddObject(d))
	return d, nil
}

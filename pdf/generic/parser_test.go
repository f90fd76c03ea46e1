package generic

import (
	"errors"
	"testing"
)

func TestParseObjectScalars(t *testing.T) {
	tests := []struct {
		input    string
		expected PdfObject
	}{
		{"true", BooleanObject(true)},
		{"false", BooleanObject(false)},
		{"null", Null{}},
		{"42", IntegerObject(42)},
		{"-17", IntegerObject(-17)},
		{"3.25", RealObject(3.25)},
		{".5", RealObject(0.5)},
		{"/Name", NameObject("Name")},
		{"/A#20B", NameObject("A B")},
		{"12 0 R", NewReference(12, 0)},
		{"  % comment\n 7", IntegerObject(7)},
	}

	for _, tt := range tests {
		obj, err := NewParser([]byte(tt.input)).ParseObject()
		if err != nil {
			t.Errorf("%q: parse failed: %v", tt.input, err)
			continue
		}
		if obj != tt.expected {
			t.Errorf("%q: expected %#v, got %#v", tt.input, tt.expected, obj)
		}
	}
}

func TestParseStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(hello)", "hello"},
		{"(a (nested) b)", "a (nested) b"},
		{`(esc\(aped\))`, "esc(aped)"},
		{`(line\nbreak)`, "line\nbreak"},
		{`(\101\102)`, "AB"},
		{"(con\\\ntinued)", "continued"},
		{"<48 65 6C6C6F>", "Hello"},
		{"<414>", "A@"},
	}

	for _, tt := range tests {
		obj, err := NewParser([]byte(tt.input)).ParseObject()
		if err != nil {
			t.Errorf("%q: parse failed: %v", tt.input, err)
			continue
		}
		s, ok := obj.(*StringObject)
		if !ok {
			t.Errorf("%q: expected string, got %T", tt.input, obj)
			continue
		}
		if string(s.Value) != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, s.Value)
		}
	}
}

func TestParseArrayWithReferences(t *testing.T) {
	obj, err := NewParser([]byte("[1 0 R 2 3 /X 4 0 R]")).ParseObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	arr := obj.(ArrayObject)
	if len(arr) != 5 {
		t.Fatalf("Expected 5 items, got %d: %v", len(arr), arr)
	}
	if arr[0] != NewReference(1, 0) || arr[1] != IntegerObject(2) || arr[2] != IntegerObject(3) {
		t.Errorf("Unexpected items: %v", arr)
	}
	if arr[4] != NewReference(4, 0) {
		t.Errorf("Expected trailing reference, got %v", arr[4])
	}
}

func TestParseDictionary(t *testing.T) {
	input := "<< /Type /Catalog /Pages 2 0 R /Dropped null /Sub << /A [1 2] >> >>"
	obj, err := NewParser([]byte(input)).ParseObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	d := obj.(*DictionaryObject)
	if d.GetName("Type") != "Catalog" {
		t.Errorf("Expected Catalog, got %s", d.GetName("Type"))
	}
	if d.Get("Pages") != NewReference(2, 0) {
		t.Errorf("Expected reference, got %v", d.Get("Pages"))
	}
	if d.Has("Dropped") {
		t.Error("Null-valued entries should be dropped")
	}
	if nums, ok := d.GetDict("Sub").GetArray("A").Numbers(); !ok || len(nums) != 2 {
		t.Errorf("Unexpected nested array: %v", nums)
	}
}

func TestParseIndirectStream(t *testing.T) {
	input := "5 0 obj\n<< /Length 11 >>\nstream\nhello world\nendstream\nendobj\n"
	obj, err := NewParser([]byte(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if obj.ObjectNumber != 5 {
		t.Errorf("Expected object 5, got %d", obj.ObjectNumber)
	}
	s, ok := obj.Object.(*StreamObject)
	if !ok {
		t.Fatalf("Expected stream, got %T", obj.Object)
	}
	if string(s.Data) != "hello world" {
		t.Errorf("Expected 'hello world', got %q", s.Data)
	}
}

func TestParseStreamIndirectLength(t *testing.T) {
	input := "6 0 obj\n<< /Length 9 0 R >>\nstream\nabc\nendstream\nendobj"

	p := NewParser([]byte(input))
	p.ResolveLength = func(ref Reference) (int64, error) {
		if ref.ObjectNumber != 9 {
			t.Errorf("Expected length object 9, got %d", ref.ObjectNumber)
		}
		return 3, nil
	}
	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := string(obj.Object.(*StreamObject).Data); got != "abc" {
		t.Errorf("Expected 'abc', got %q", got)
	}

	// Without a resolver the parser scans for endstream.
	obj, err = NewParser([]byte(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := string(obj.Object.(*StreamObject).Data); got != "abc" {
		t.Errorf("Expected 'abc', got %q", got)
	}
}

func TestParseStreamWrongLength(t *testing.T) {
	input := "1 0 obj\n<< /Length 100 >>\nstream\r\nxyz\r\nendstream\nendobj"
	obj, err := NewParser([]byte(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := string(obj.Object.(*StreamObject).Data); got != "xyz" {
		t.Errorf("Expected 'xyz', got %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"", ErrUnexpectedEOF},
		{"(unterminated", ErrUnexpectedEOF},
		{"[1 2", ErrUnexpectedEOF},
		{"<< 1 2 >>", ErrInvalidObject},
		{"bogus", ErrInvalidObject},
	}
	for _, tt := range tests {
		if _, err := NewParser([]byte(tt.input)).ParseObject(); !errors.Is(err, tt.err) {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.err, err)
		}
	}

	if _, err := NewParser([]byte("1 0 obj << >> stream\nno end")).ParseIndirectObject(); !errors.Is(err, ErrInvalidStream) {
		t.Errorf("Expected ErrInvalidStream, got %v", err)
	}
}

func TestRoundTripThroughWriter(t *testing.T) {
	d := NewDictionary()
	d.Set("Title", NewTextString("Contrato Nº 5"))
	d.Set("Rect", Rectangle{0, 0, 612, 792}.Array())
	d.Set("Flag", BooleanObject(true))

	obj, err := NewParser([]byte(render(t, d))).ParseObject()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	back := obj.(*DictionaryObject)
	if back.GetString("Title") != "Contrato Nº 5" {
		t.Errorf("Expected title to survive, got %q", back.GetString("Title"))
	}
	r, err := NewRectangle(back.GetArray("Rect"))
	if err != nil || r.Width() != 612 {
		t.Errorf("Expected width 612, got %v (%v)", r.Width(), err)
	}
}

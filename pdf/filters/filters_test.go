package filters

import (
	"bytes"
	"errors"
	"testing"

	"github.com/georgepadayatti/esign/pdf/generic"
)

func TestFlateRoundTrip(t *testing.T) {
	original := []byte("BT /F1 12 Tf 72 712 Td (Certificate of Completion) Tj ET")

	stream, err := NewFlateStream(nil, original)
	if err != nil {
		t.Fatalf("NewFlateStream failed: %v", err)
	}
	if stream.Dictionary.GetName("Filter") != "FlateDecode" {
		t.Errorf("Expected /FlateDecode, got %s", stream.Dictionary.GetName("Filter"))
	}

	decoded, err := DecodeStream(stream)
	if err != nil {
		t.Fatalf("DecodeStream failed: %v", err)
	}
	if !bytes.Equal(decoded, original) {
		t.Errorf("Expected %q, got %q", original, decoded)
	}
}

func TestPNGUpPredictor(t *testing.T) {
	// Two rows of 3 columns, second row uses the Up filter.
	raw := []byte{
		0, 1, 2, 3,
		2, 1, 1, 1,
	}
	encoded, err := FlateEncode(raw)
	if err != nil {
		t.Fatalf("FlateEncode failed: %v", err)
	}

	parms := generic.NewDictionary()
	parms.Set("Predictor", generic.IntegerObject(12))
	parms.Set("Columns", generic.IntegerObject(3))
	dict := generic.NewDictionary()
	dict.Set("Filter", generic.NameObject("FlateDecode"))
	dict.Set("DecodeParms", parms)

	decoded, err := DecodeStream(generic.NewStream(dict, encoded))
	if err != nil {
		t.Fatalf("DecodeStream failed: %v", err)
	}
	expected := []byte{1, 2, 3, 2, 3, 4}
	if !bytes.Equal(decoded, expected) {
		t.Errorf("Expected %v, got %v", expected, decoded)
	}
}

func TestPNGSubAndPaeth(t *testing.T) {
	p := Params{Predictor: 12, Colors: 1, BitsPerComponent: 8, Columns: 3}
	data := []byte{
		1, 5, 1, 1, // Sub: 5 6 7
		4, 1, 1, 1, // Paeth over 5 6 7
	}
	out, err := unpredictPNG(data, p)
	if err != nil {
		t.Fatalf("unpredictPNG failed: %v", err)
	}
	expected := []byte{5, 6, 7, 6, 7, 8}
	if !bytes.Equal(out, expected) {
		t.Errorf("Expected %v, got %v", expected, out)
	}

	if _, err := unpredictPNG([]byte{9, 0, 0, 0}, p); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed for unknown row type, got %v", err)
	}
}

func TestASCIIFilters(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ASCIIHexDecode", "48 65 6c 6C 6f>", "Hello"},
		{"AHx", "414>", "A@"},
		{"ASCII85Decode", "<~87cURD]i,\"Ebo80~>", "Hello World"},
		{"A85", "z~>", "\x00\x00\x00\x00"},
	}
	for _, tt := range tests {
		out, err := Decode(tt.name, []byte(tt.input), Params{})
		if err != nil {
			t.Errorf("%s: decode failed: %v", tt.name, err)
			continue
		}
		if string(out) != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, out)
		}
	}
}

func TestUnsupportedFilter(t *testing.T) {
	dict := generic.NewDictionary()
	dict.Set("Filter", generic.ArrayObject{generic.NameObject("JBIG2Decode")})
	if _, err := DecodeStream(generic.NewStream(dict, []byte{1})); !errors.Is(err, ErrUnsupportedFilter) {
		t.Errorf("Expected ErrUnsupportedFilter, got %v", err)
	}
}

func TestCorruptFlate(t *testing.T) {
	if _, err := Decode("FlateDecode", []byte("not zlib"), Params{}); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed, got %v", err)
	}
}

func TestParamsDefaults(t *testing.T) {
	p := ParamsFromDict(nil)
	if p.Predictor != 1 || p.Colors != 1 || p.BitsPerComponent != 8 || p.Columns != 1 {
		t.Errorf("Unexpected defaults: %+v", p)
	}
}

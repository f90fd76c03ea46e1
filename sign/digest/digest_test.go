package digest

import "testing"

func TestHex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		if got := Hex([]byte(tt.input)); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestHexIsPure(t *testing.T) {
	data := []byte("signed pdf bytes")
	first := Hex(data)
	if second := Hex(data); first != second {
		t.Errorf("Expected %s, got %s", first, second)
	}
	if string(data) != "signed pdf bytes" {
		t.Error("Input must not be modified")
	}
}

func TestMatches(t *testing.T) {
	data := []byte("abc")
	if !Matches(data, "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD") {
		t.Error("Expected uppercase digest to match")
	}
	if Matches(data, "ba78") || Matches(data, "zz") {
		t.Error("Expected short or malformed digests not to match")
	}
}

// Package filters decodes and encodes PDF stream data.
package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/georgepadayatti/esign/pdf/generic"
)

// Common errors
var (
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrDecodeFailed      = errors.New("decode failed")
)

// Params holds the /DecodeParms entries the supported filters care about.
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
}

// ParamsFromDict reads decode parameters, applying the PDF defaults.
func ParamsFromDict(d *generic.DictionaryObject) Params {
	p := Params{Predictor: 1, Colors: 1, BitsPerComponent: 8, Columns: 1}
	if d == nil {
		return p
	}
	if v, ok := d.GetInt("Predictor"); ok {
		p.Predictor = int(v)
	}
	if v, ok := d.GetInt("Colors"); ok {
		p.Colors = int(v)
	}
	if v, ok := d.GetInt("BitsPerComponent"); ok {
		p.BitsPerComponent = int(v)
	}
	if v, ok := d.GetInt("Columns"); ok {
		p.Columns = int(v)
	}
	return p
}

type decodeFunc func(data []byte, p Params) ([]byte, error)

var decoders = map[string]decodeFunc{
	"FlateDecode":    flateDecode,
	"Fl":             flateDecode,
	"ASCIIHexDecode": asciiHexDecode,
	"AHx":            asciiHexDecode,
	"ASCII85Decode":  ascii85Decode,
	"A85":            ascii85Decode,
}

// Decode applies a single named filter.
func Decode(name string, data []byte, p Params) ([]byte, error) {
	fn, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
	}
	out, err := fn(data, p)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", name, err)
	}
	return out, nil
}

// DecodeStream returns the decoded content of a stream. Parameters are read
// from /DecodeParms, which may be a dictionary or an array aligned with
// /Filter. Indirect parameter dictionaries are not followed.
func DecodeStream(s *generic.StreamObject) ([]byte, error) {
	names := s.Filters()
	data := s.Data
	for i, name := range names {
		var pd *generic.DictionaryObject
		switch v := s.Dictionary.Get("DecodeParms").(type) {
		case *generic.DictionaryObject:
			if i == 0 {
				pd = v
			}
		case generic.ArrayObject:
			if i < len(v) {
				pd, _ = v[i].(*generic.DictionaryObject)
			}
		}
		var err error
		if data, err = Decode(name, data, ParamsFromDict(pd)); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// FlateEncode compresses data with zlib.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("flate encode failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// NewFlateStream builds a FlateDecode-compressed stream around data.
func NewFlateStream(dict *generic.DictionaryObject, data []byte) (*generic.StreamObject, error) {
	encoded, err := FlateEncode(data)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		dict = generic.NewDictionary()
	}
	dict.Set("Filter", generic.NameObject("FlateDecode"))
	return generic.NewStream(dict, encoded), nil
}

func flateDecode(data []byte, p Params) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	// Truncated deflate data is common in the wild; keep what was inflated.
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if p.Predictor >= 10 {
		return unpredictPNG(out, p)
	}
	if p.Predictor == 2 {
		return nil, fmt.Errorf("%w: TIFF predictor", ErrUnsupportedFilter)
	}
	return out, nil
}

// unpredictPNG reverses PNG row filters. Every row starts with a filter
// type byte which is dropped from the output.
func unpredictPNG(data []byte, p Params) ([]byte, error) {
	bpp := (p.Colors*p.BitsPerComponent + 7) / 8
	rowLen := (p.Columns*p.Colors*p.BitsPerComponent + 7) / 8
	if rowLen <= 0 {
		return nil, fmt.Errorf("%w: bad predictor columns", ErrDecodeFailed)
	}

	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for off := 0; off+rowLen+1 <= len(data); off += rowLen + 1 {
		kind := data[off]
		copy(cur, data[off+1:off+1+rowLen])
		for j := 0; j < rowLen; j++ {
			var left, upLeft byte
			if j >= bpp {
				left = cur[j-bpp]
				upLeft = prev[j-bpp]
			}
			up := prev[j]
			switch kind {
			case 0:
			case 1:
				cur[j] += left
			case 2:
				cur[j] += up
			case 3:
				cur[j] += byte((int(left) + int(up)) / 2)
			case 4:
				cur[j] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("%w: unknown PNG filter type %d", ErrDecodeFailed, kind)
			}
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte, _ Params) ([]byte, error) {
	digits := make([]byte, 0, len(data))
	for _, c := range data {
		if c == '>' {
			break
		}
		if generic.IsWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return out, nil
}

func ascii85Decode(data []byte, _ Params) ([]byte, error) {
	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	out := make([]byte, 4*len(data)+4)
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return out[:n], nil
}

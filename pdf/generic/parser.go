package generic

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Common errors
var (
	ErrUnexpectedEOF = errors.New("unexpected end of data")
	ErrInvalidObject = errors.New("invalid PDF object")
	ErrInvalidStream = errors.New("invalid PDF stream")
)

// Parser reads PDF objects from an in-memory buffer.
type Parser struct {
	data []byte
	pos  int

	// ResolveLength resolves a stream /Length given as an indirect
	// reference. When nil, or when it fails, the parser scans for
	// "endstream" instead.
	ResolveLength func(ref Reference) (int64, error)
}

// NewParser creates a parser positioned at the start of data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Pos returns the current offset.
func (p *Parser) Pos() int { return p.pos }

// Seek moves the parser to an absolute offset.
func (p *Parser) Seek(pos int) { p.pos = pos }

// AtEOF reports whether only whitespace and comments remain.
func (p *Parser) AtEOF() bool {
	p.SkipWhitespace()
	return p.pos >= len(p.data)
}

// SkipWhitespace skips whitespace and comments.
func (p *Parser) SkipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if IsWhitespace(c) {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

// ReadToken reads a run of regular characters, e.g. a keyword or number.
func (p *Parser) ReadToken() string {
	p.SkipWhitespace()
	start := p.pos
	for p.pos < len(p.data) && !IsWhitespace(p.data[p.pos]) && !IsDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// ExpectKeyword consumes kw or fails.
func (p *Parser) ExpectKeyword(kw string) error {
	save := p.pos
	if tok := p.ReadToken(); tok != kw {
		p.pos = save
		return fmt.Errorf("%w: expected %q at offset %d, got %q", ErrInvalidObject, kw, save, tok)
	}
	return nil
}

// ParseObject parses the next direct object, folding "N G R" triples into
// a Reference.
func (p *Parser) ParseObject() (PdfObject, error) {
	p.SkipWhitespace()
	if p.pos >= len(p.data) {
		return nil, ErrUnexpectedEOF
	}
	switch c := p.data[p.pos]; {
	case c == '/':
		return p.parseName()
	case c == '(':
		return p.parseLiteralString()
	case c == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			return p.parseDictionary()
		}
		return p.parseHexString()
	case c == '[':
		return p.parseArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumberOrReference()
	}

	start := p.pos
	switch tok := p.ReadToken(); tok {
	case "true":
		return BooleanObject(true), nil
	case "false":
		return BooleanObject(false), nil
	case "null":
		return Null{}, nil
	case "":
		p.pos++
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidObject, p.data[start], start)
	default:
		return nil, fmt.Errorf("%w: unexpected keyword %q at offset %d", ErrInvalidObject, tok, start)
	}
}

// ParseIndirectObject parses "N G obj ... endobj", including stream data.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	gen, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectKeyword("obj"); err != nil {
		return nil, err
	}
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}

	if dict, ok := obj.(*DictionaryObject); ok {
		save := p.pos
		if p.ReadToken() == "stream" {
			data, err := p.readStreamData(dict)
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", num, err)
			}
			obj = &StreamObject{Dictionary: dict, Data: data}
		} else {
			p.pos = save
		}
	}

	// A missing endobj is tolerated; plenty of writers get it wrong.
	save := p.pos
	if p.ReadToken() != "endobj" {
		p.pos = save
	}
	return NewIndirectObject(num, gen, obj), nil
}

func (p *Parser) readStreamData(dict *DictionaryObject) ([]byte, error) {
	if p.pos < len(p.data) && p.data[p.pos] == '\r' {
		p.pos++
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\n' {
		p.pos++
	}
	start := p.pos

	length := int64(-1)
	switch v := dict.Get("Length").(type) {
	case IntegerObject:
		length = int64(v)
	case Reference:
		if p.ResolveLength != nil {
			if n, err := p.ResolveLength(v); err == nil {
				length = n
			}
		}
	}

	if length >= 0 && start+int(length) <= len(p.data) {
		end := start + int(length)
		p.pos = end
		if p.ExpectKeyword("endstream") == nil {
			return p.data[start:end], nil
		}
	}

	// Length missing or wrong: fall back to scanning.
	idx := bytes.Index(p.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing endstream", ErrInvalidStream)
	}
	end := start + idx
	p.pos = end + len("endstream")
	if end > start && p.data[end-1] == '\n' {
		end--
	}
	if end > start && p.data[end-1] == '\r' {
		end--
	}
	return p.data[start:end], nil
}

func (p *Parser) parseUint() (int, error) {
	tok := p.ReadToken()
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: expected unsigned integer, got %q", ErrInvalidObject, tok)
	}
	return n, nil
}

func (p *Parser) parseNumberOrReference() (PdfObject, error) {
	tok := p.ReadToken()
	if bytes.ContainsAny([]byte(tok), ".") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrInvalidObject, tok)
		}
		return RealObject(f), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrInvalidObject, tok)
		}
		return RealObject(f), nil
	}

	// Look ahead for "G R".
	save := p.pos
	if i >= 0 {
		if gen, err := strconv.Atoi(p.ReadToken()); err == nil && gen >= 0 {
			if p.ReadToken() == "R" {
				return Reference{ObjectNumber: int(i), GenerationNumber: gen}, nil
			}
		}
	}
	p.pos = save
	return IntegerObject(i), nil
}

func (p *Parser) parseName() (PdfObject, error) {
	p.pos++ // '/'
	var buf bytes.Buffer
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if IsWhitespace(c) || IsDelimiter(c) {
			break
		}
		if c == '#' && p.pos+2 < len(p.data) {
			if v, err := strconv.ParseUint(string(p.data[p.pos+1:p.pos+3]), 16, 8); err == nil {
				buf.WriteByte(byte(v))
				p.pos += 3
				continue
			}
		}
		buf.WriteByte(c)
		p.pos++
	}
	return NameObject(buf.String()), nil
}

func (p *Parser) parseLiteralString() (PdfObject, error) {
	p.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &StringObject{Value: buf.Bytes()}, nil
			}
		case '\\':
			if p.pos >= len(p.data) {
				return nil, ErrUnexpectedEOF
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '7'; i++ {
						v = v*8 + int(p.data[p.pos]-'0')
						p.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
			continue
		}
		buf.WriteByte(c)
	}
	return nil, fmt.Errorf("%w: unterminated string", ErrUnexpectedEOF)
}

func (p *Parser) parseHexString() (PdfObject, error) {
	p.pos++ // '<'
	var digits []byte
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("%w: bad hex string", ErrInvalidObject)
				}
				out[i] = byte(v)
			}
			return &StringObject{Value: out, Hex: true}, nil
		}
		if IsWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	return nil, fmt.Errorf("%w: unterminated hex string", ErrUnexpectedEOF)
}

func (p *Parser) parseArray() (PdfObject, error) {
	p.pos++ // '['
	arr := ArrayObject{}
	for {
		p.SkipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unterminated array", ErrUnexpectedEOF)
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		item, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, item)
	}
}

func (p *Parser) parseDictionary() (PdfObject, error) {
	p.pos += 2 // "<<"
	dict := NewDictionary()
	for {
		p.SkipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unterminated dictionary", ErrUnexpectedEOF)
		}
		if p.data[p.pos] == '>' {
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '>' {
				p.pos += 2
				return dict, nil
			}
			return nil, fmt.Errorf("%w: stray '>' at offset %d", ErrInvalidObject, p.pos)
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("%w: dictionary key must be a name at offset %d", ErrInvalidObject, p.pos)
		}
		key, _ := p.parseName()
		value, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		if _, isNull := value.(Null); !isNull {
			dict.Set(string(key.(NameObject)), value)
		}
	}
}

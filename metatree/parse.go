package metatree

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Bounds applied to cache payloads. A test file's metadata cache is a
// few kilobytes in practice; the limits exist so a corrupted document
// cannot make the reader allocate without bound.
const (
	MaxPayloadSize = 4 * 1024 * 1024
	MaxDepth       = 64
)

// ParseError reports why a payload is not a well-formed cache value.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metatree: at byte %d: %s", e.Offset, e.Msg)
}

// Parse deserializes a cache payload into a tree. It is stricter than
// encoding/json where strictness matters for a metadata cache:
//
//   - duplicate object keys are rejected (a test name can appear once)
//   - member order is preserved
//   - lone surrogates in \uXXXX escapes are rejected
//   - unescaped control characters are rejected
//   - trailing content after the value is rejected
//   - input size and nesting depth are bounded
func Parse(data []byte) (*Value, error) {
	if len(data) > MaxPayloadSize {
		return nil, &ParseError{Offset: 0, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", len(data), MaxPayloadSize)}
	}
	d := &decoder{data: data}
	d.skipSpace()
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.pos != len(d.data) {
		return nil, d.fail("trailing content after value")
	}
	return v, nil
}

type decoder struct {
	data  []byte
	pos   int
	depth int
}

func (d *decoder) fail(format string, args ...any) *ParseError {
	return &ParseError{Offset: d.pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.data) {
		switch d.data[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) value() (*Value, error) {
	if d.pos >= len(d.data) {
		return nil, d.fail("unexpected end of payload")
	}
	switch c := d.data[d.pos]; c {
	case '{':
		return d.object()
	case '[':
		return d.array()
	case '"':
		s, err := d.string()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindString, Str: s}, nil
	case 't', 'f', 'n':
		return d.literal()
	default:
		return d.number()
	}
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return d.fail("nesting depth exceeds maximum %d", MaxDepth)
	}
	return nil
}

func (d *decoder) object() (*Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	d.pos++ // consume '{'
	v := &Value{Kind: KindObject}
	seen := make(map[string]struct{})

	d.skipSpace()
	if d.pos < len(d.data) && d.data[d.pos] == '}' {
		d.pos++
		return v, nil
	}

	for {
		d.skipSpace()
		if d.pos >= len(d.data) || d.data[d.pos] != '"' {
			return nil, d.fail("expected object key")
		}
		keyAt := d.pos
		key, err := d.string()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			return nil, &ParseError{Offset: keyAt, Msg: fmt.Sprintf("duplicate object key %q", key)}
		}
		seen[key] = struct{}{}

		d.skipSpace()
		if d.pos >= len(d.data) || d.data[d.pos] != ':' {
			return nil, d.fail("expected ':' after object key")
		}
		d.pos++
		d.skipSpace()

		mv, err := d.value()
		if err != nil {
			return nil, err
		}
		v.Members = append(v.Members, Member{Key: key, Value: *mv})

		d.skipSpace()
		if d.pos >= len(d.data) {
			return nil, d.fail("unterminated object")
		}
		switch d.data[d.pos] {
		case '}':
			d.pos++
			return v, nil
		case ',':
			d.pos++
		default:
			return nil, d.fail("expected ',' or '}' in object, got %q", string(d.data[d.pos]))
		}
	}
}

func (d *decoder) array() (*Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	d.pos++ // consume '['
	v := &Value{Kind: KindArray}

	d.skipSpace()
	if d.pos < len(d.data) && d.data[d.pos] == ']' {
		d.pos++
		return v, nil
	}

	for {
		d.skipSpace()
		ev, err := d.value()
		if err != nil {
			return nil, err
		}
		v.Elems = append(v.Elems, *ev)

		d.skipSpace()
		if d.pos >= len(d.data) {
			return nil, d.fail("unterminated array")
		}
		switch d.data[d.pos] {
		case ']':
			d.pos++
			return v, nil
		case ',':
			d.pos++
		default:
			return nil, d.fail("expected ',' or ']' in array, got %q", string(d.data[d.pos]))
		}
	}
}

func (d *decoder) string() (string, error) {
	d.pos++ // consume opening quote
	var out []byte
	for {
		if d.pos >= len(d.data) {
			return "", d.fail("unterminated string")
		}
		b := d.data[d.pos]
		switch {
		case b == '"':
			d.pos++
			return string(out), nil
		case b == '\\':
			d.pos++
			r, err := d.escape()
			if err != nil {
				return "", err
			}
			out = utf8.AppendRune(out, r)
		case b < 0x20:
			return "", d.fail("unescaped control character 0x%02x in string", b)
		default:
			r, size := utf8.DecodeRune(d.data[d.pos:])
			if r == utf8.RuneError && size <= 1 {
				return "", d.fail("invalid UTF-8 byte 0x%02x in string", b)
			}
			out = append(out, d.data[d.pos:d.pos+size]...)
			d.pos += size
		}
	}
}

func (d *decoder) escape() (rune, error) {
	if d.pos >= len(d.data) {
		return 0, d.fail("unterminated escape sequence")
	}
	b := d.data[d.pos]
	d.pos++
	switch b {
	case '"', '\\', '/':
		return rune(b), nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		return d.unicodeEscape()
	default:
		return 0, d.fail("invalid escape character %q", string(b))
	}
}

func (d *decoder) unicodeEscape() (rune, error) {
	hi, err := d.hex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(hi) {
		return hi, nil
	}
	if hi >= 0xDC00 {
		return 0, d.fail("lone low surrogate U+%04X", hi)
	}
	if d.pos+1 >= len(d.data) || d.data[d.pos] != '\\' || d.data[d.pos+1] != 'u' {
		return 0, d.fail("lone high surrogate U+%04X", hi)
	}
	d.pos += 2
	lo, err := d.hex4()
	if err != nil {
		return 0, err
	}
	if lo < 0xDC00 || lo > 0xDFFF {
		return 0, d.fail("high surrogate U+%04X not followed by low surrogate", hi)
	}
	return utf16.DecodeRune(hi, lo), nil
}

func (d *decoder) hex4() (rune, error) {
	if d.pos+4 > len(d.data) {
		return 0, d.fail("incomplete \\u escape")
	}
	hex := string(d.data[d.pos : d.pos+4])
	d.pos += 4
	n, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, d.fail("invalid hex in \\u escape: %q", hex)
	}
	return rune(n), nil
}

func (d *decoder) literal() (*Value, error) {
	rest := d.data[d.pos:]
	switch {
	case len(rest) >= 4 && string(rest[:4]) == "true":
		d.pos += 4
		return &Value{Kind: KindBool, Str: "true"}, nil
	case len(rest) >= 5 && string(rest[:5]) == "false":
		d.pos += 5
		return &Value{Kind: KindBool, Str: "false"}, nil
	case len(rest) >= 4 && string(rest[:4]) == "null":
		d.pos += 4
		return &Value{Kind: KindNull}, nil
	default:
		return nil, d.fail("invalid literal")
	}
}

func (d *decoder) number() (*Value, error) {
	start := d.pos
	if d.pos < len(d.data) && d.data[d.pos] == '-' {
		d.pos++
	}
	digits := 0
	for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
		d.pos++
		digits++
	}
	if digits == 0 {
		return nil, d.fail("invalid value")
	}
	if d.pos < len(d.data) && d.data[d.pos] == '.' {
		d.pos++
		frac := 0
		for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
			d.pos++
			frac++
		}
		if frac == 0 {
			return nil, d.fail("expected digit after decimal point")
		}
	}
	if d.pos < len(d.data) && (d.data[d.pos] == 'e' || d.data[d.pos] == 'E') {
		d.pos++
		if d.pos < len(d.data) && (d.data[d.pos] == '+' || d.data[d.pos] == '-') {
			d.pos++
		}
		exp := 0
		for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
			d.pos++
			exp++
		}
		if exp == 0 {
			return nil, d.fail("expected digit in exponent")
		}
	}

	raw := string(d.data[start:d.pos])
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ParseError{Offset: start, Msg: fmt.Sprintf("number %q is not a finite double", raw)}
	}
	return &Value{Kind: KindNumber, Num: f}, nil
}

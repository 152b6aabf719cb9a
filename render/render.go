// Package render produces the embeddable metadata cache block.
//
// The output is deterministic: for any given tree, the output bytes are
// identical every call. Object members render in insertion order, which
// for extractor-built trees is test order and allowlist field order.
package render

import (
	"bytes"
	"strconv"

	"github.com/harnesskit/metacache/metatree"
)

// Fixed wrapper for the embedded cache element. The comment markers make
// the payload inert: the block never executes, tools that cannot run the
// tests read the JSON between the braces.
const (
	openTag      = `<script type="text/json" id="metadata_cache">`
	commentOpen  = "/*"
	commentClose = "*/"
	closeTag     = "</script>"
)

const indentStep = 2

// CacheBlock wraps the rendered tree in the cache element template, ready
// to be pasted into (or spliced over) the test document.
func CacheBlock(v *metatree.Value) string {
	var b bytes.Buffer
	b.WriteString(openTag)
	b.WriteString(commentOpen)
	b.WriteByte('\n')
	b.WriteString(Tree(v))
	b.WriteByte('\n')
	b.WriteString(commentClose)
	b.WriteString(closeTag)
	return b.String()
}

// Tree renders a value as indented source text:
//
//   - objects are brace blocks, one key per line, two spaces deeper per
//     nesting level, key and value separated by ": ", entries separated
//     by commas; an empty object is a bare "{}"
//   - a single-element array is compact: [elem]
//   - a multi-element array puts each subsequent element on its own
//     line, aligned under the opening bracket
//   - strings are JSON-escaped, numbers and booleans are plain literals
func Tree(v *metatree.Value) string {
	if v == nil {
		return "{}"
	}
	var p printer
	p.value(v, 0)
	return string(p.buf)
}

type printer struct {
	buf []byte
}

// column is the current output column, used to align wrapped array
// elements under their opening bracket.
func (p *printer) column() int {
	i := bytes.LastIndexByte(p.buf, '\n')
	return len(p.buf) - i - 1
}

func (p *printer) pad(n int) {
	for i := 0; i < n; i++ {
		p.buf = append(p.buf, ' ')
	}
}

func (p *printer) value(v *metatree.Value, indent int) {
	switch v.Kind {
	case metatree.KindNull:
		p.buf = append(p.buf, "null"...)
	case metatree.KindBool:
		p.buf = append(p.buf, v.Str...)
	case metatree.KindNumber:
		p.buf = strconv.AppendFloat(p.buf, v.Num, 'g', -1, 64)
	case metatree.KindString:
		p.string(v.Str)
	case metatree.KindArray:
		p.array(v, indent)
	case metatree.KindObject:
		p.object(v, indent)
	}
}

func (p *printer) object(v *metatree.Value, indent int) {
	if len(v.Members) == 0 {
		p.buf = append(p.buf, "{}"...)
		return
	}
	p.buf = append(p.buf, '{')
	inner := indent + indentStep
	for i := range v.Members {
		if i > 0 {
			p.buf = append(p.buf, ',')
		}
		p.buf = append(p.buf, '\n')
		p.pad(inner)
		p.string(v.Members[i].Key)
		p.buf = append(p.buf, keySep...)
		p.value(&v.Members[i].Value, inner)
	}
	p.buf = append(p.buf, '\n')
	p.pad(indent)
	p.buf = append(p.buf, '}')
}

// keySep separates a rendered key from its value.
var keySep = []byte(": ")

func (p *printer) array(v *metatree.Value, indent int) {
	col := p.column()
	p.buf = append(p.buf, '[')
	for i := range v.Elems {
		if i > 0 {
			p.buf = append(p.buf, ',', '\n')
			p.pad(col + 1)
		}
		p.value(&v.Elems[i], indent)
	}
	p.buf = append(p.buf, ']')
}

// string applies JSON string escaping:
//   - " and \ are backslash-escaped
//   - the short escapes \b \t \n \f \r
//   - other control characters as \u00xx with lowercase hex
//   - everything else is raw UTF-8
func (p *printer) string(s string) {
	p.buf = append(p.buf, '"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"':
			p.buf = append(p.buf, '\\', '"')
		case b == '\\':
			p.buf = append(p.buf, '\\', '\\')
		case b == '\b':
			p.buf = append(p.buf, '\\', 'b')
		case b == '\t':
			p.buf = append(p.buf, '\\', 't')
		case b == '\n':
			p.buf = append(p.buf, '\\', 'n')
		case b == '\f':
			p.buf = append(p.buf, '\\', 'f')
		case b == '\r':
			p.buf = append(p.buf, '\\', 'r')
		case b < 0x20:
			p.buf = append(p.buf, '\\', 'u', '0', '0', hexDigit(b>>4), hexDigit(b&0x0f))
		default:
			p.buf = append(p.buf, b)
		}
	}
	p.buf = append(p.buf, '"')
}

func hexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + (b - 10)
}

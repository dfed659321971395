package luatable

import (
	"strconv"
	"strings"
)

// Encode serializes a table using the given layout hints. Decoding a document
// and encoding it again with the returned hints yields the original text.
func Encode(t *Table, h Hints) string {
	if h.Indent == "" {
		h.Indent = "    "
	}
	var b strings.Builder
	b.WriteString(h.Name)
	b.WriteString(" = \n")
	e := encoder{b: &b, hints: h}
	e.table(t, 0)
	if h.EndComments {
		b.WriteString(" -- end of ")
		b.WriteString(h.Name)
	}
	if h.TrailingNewline {
		b.WriteByte('\n')
	}
	return b.String()
}

type encoder struct {
	b     *strings.Builder
	hints Hints
}

func (e *encoder) indent(depth int) {
	for range depth {
		e.b.WriteString(e.hints.Indent)
	}
}

func (e *encoder) table(t *Table, depth int) {
	e.indent(depth)
	e.b.WriteString("{\n")
	for _, entry := range t.entries {
		e.indent(depth + 1)
		e.b.WriteString(entry.Key.String())
		e.b.WriteString(" = ")
		if sub, ok := entry.Value.(*Table); ok {
			e.b.WriteByte('\n')
			e.table(sub, depth+1)
			e.b.WriteByte(',')
			if e.hints.EndComments {
				e.b.WriteString(" -- end of ")
				e.b.WriteString(entry.Key.String())
			}
			e.b.WriteByte('\n')
			continue
		}
		e.scalar(entry.Value)
		e.b.WriteString(",\n")
	}
	e.indent(depth)
	e.b.WriteByte('}')
}

func (e *encoder) scalar(v Value) {
	switch v := v.(type) {
	case String:
		e.b.WriteString(quote(string(v), e.hints.NewlineEscapes))
	case Number:
		e.b.WriteString(string(v))
	case Bool:
		e.b.WriteString(strconv.FormatBool(bool(v)))
	}
}

// quote writes a string literal in the style of the mission editor: quotes and
// backslashes are escaped, newlines are written as an escaped line break, or
// as \n when letterNewlines is set.
func quote(s string, letterNewlines bool) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			if letterNewlines {
				b.WriteString("\\n")
			} else {
				b.WriteString("\\\n")
			}
		case '\r':
			b.WriteString("\\r")
		case 0:
			b.WriteString("\\000")
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

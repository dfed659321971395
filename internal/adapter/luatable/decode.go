package luatable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every decoding failure.
var ErrSyntax = errors.New("table syntax error")

// Hints records the layout details needed to re-encode a document exactly.
type Hints struct {
	// Name is the global the table is assigned to.
	Name string
	// Indent is one nesting level of indentation.
	Indent string
	// EndComments is true when closing braces carry "-- end of" comments.
	EndComments bool
	// TrailingNewline is true when the document ends with a newline.
	TrailingNewline bool
	// NewlineEscapes is true when newlines inside strings are written as \n
	// rather than a backslash followed by a line break.
	NewlineEscapes bool
}

// DefaultHints returns the layout the mission editor produces.
func DefaultHints(name string) Hints {
	return Hints{Name: name, Indent: "    ", EndComments: true, TrailingNewline: false}
}

// Decode parses a document into its table and layout hints.
func Decode(text string) (*Table, Hints, error) {
	p := &parser{src: text}
	hints := Hints{Indent: detectIndent(text), TrailingNewline: strings.HasSuffix(text, "\n")}
	hints.EndComments = strings.Contains(text, "-- end of")

	p.skipSpace()
	name := p.ident()
	if name == "" {
		return nil, Hints{}, p.errorf("expected global name")
	}
	hints.Name = name
	p.skipSpace()
	if !p.consume('=') {
		return nil, Hints{}, p.errorf("expected '=' after %q", name)
	}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, Hints{}, err
	}
	tbl, ok := v.(*Table)
	if !ok {
		return nil, Hints{}, p.errorf("%q is not assigned a table", name)
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, Hints{}, p.errorf("unexpected trailing content")
	}
	hints.NewlineEscapes = p.letterNewlines > p.breakNewlines
	return tbl, hints, nil
}

// detectIndent finds the indentation of the first nested line.
func detectIndent(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(trimmed) == len(line) {
			continue
		}
		return line[:len(line)-len(trimmed)]
	}
	return "    "
}

type parser struct {
	src string
	pos int

	// escaped newline styles seen so far
	letterNewlines, breakNewlines int
}

func (p *parser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.src[:p.pos], "\n")
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c && p.pos < len(p.src) {
		p.pos++
		return true
	}
	return false
}

// skipSpace skips whitespace and "--" line comments.
func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "--"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += end + 1
			}
		default:
			return
		}
	}
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) value() (Value, error) {
	switch c := p.peek(); {
	case c == '{':
		return p.table()
	case c == '"' || c == '\'':
		s, err := p.str()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentByte(c, true):
		word := p.ident()
		switch word {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, p.errorf("unexpected word %q", word)
	case c == 0:
		return nil, p.errorf("unexpected end of document")
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == 'x' || c == 'X' ||
			(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
			((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	lit := p.src[start:p.pos]
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		if _, err := strconv.ParseInt(lit, 0, 64); err != nil {
			return nil, p.errorf("invalid number %q", lit)
		}
	}
	return Number(lit), nil
}

func (p *parser) str() (string, error) {
	quoteChar := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quoteChar:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if err := p.escape(&b); err != nil {
				return "", err
			}
		case c == '\n':
			return "", p.errorf("newline in string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(b *strings.Builder) error {
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
		p.breakNewlines++
		b.WriteByte('\n')
	case 'n':
		p.letterNewlines++
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case '\\', '"', '\'':
		b.WriteByte(c)
	default:
		if c < '0' || c > '9' {
			return p.errorf("invalid escape \\%c", c)
		}
		start := p.pos - 1
		for p.pos < len(p.src) && p.pos-start < 3 && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil || n > 255 {
			return p.errorf("invalid escape \\%s", p.src[start:p.pos])
		}
		b.WriteByte(byte(n))
	}
	return nil
}

func (p *parser) table() (*Table, error) {
	p.pos++ // '{'
	t := NewTable()
	next := 1
	for {
		p.skipSpace()
		if p.consume('}') {
			return t, nil
		}
		var key Key
		switch c := p.peek(); {
		case c == '[':
			p.pos++
			p.skipSpace()
			k, err := p.key()
			if err != nil {
				return nil, err
			}
			key = k
			p.skipSpace()
			if !p.consume(']') {
				return nil, p.errorf("expected ']'")
			}
			p.skipSpace()
			if !p.consume('=') {
				return nil, p.errorf("expected '=' after %s", key)
			}
		case isIdentByte(c, true) && p.isAssignment():
			key = StringKey(p.ident())
			p.skipSpace()
			p.consume('=')
		default:
			key = IndexKey(next)
			next++
		}
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if _, dup := t.index[key]; dup {
			return nil, p.errorf("duplicate key %s", key)
		}
		t.Set(key, v)
		p.skipSpace()
		if !p.consume(',') && !p.consume(';') {
			p.skipSpace()
			if !p.consume('}') {
				return nil, p.errorf("expected ',' or '}'")
			}
			return t, nil
		}
	}
}

// isAssignment reports whether an identifier at pos is followed by '='.
func (p *parser) isAssignment() bool {
	save := p.pos
	defer func() { p.pos = save }()
	word := p.ident()
	if word == "true" || word == "false" {
		return false
	}
	p.skipSpace()
	return p.peek() == '=' && !strings.HasPrefix(p.src[p.pos:], "==")
}

func (p *parser) key() (Key, error) {
	c := p.peek()
	if c == '"' || c == '\'' {
		s, err := p.str()
		if err != nil {
			return Key{}, err
		}
		return StringKey(s), nil
	}
	v, err := p.number()
	if err != nil {
		return Key{}, err
	}
	n, err := strconv.Atoi(string(v.(Number)))
	if err != nil {
		return Key{}, p.errorf("non-integer key %s", string(v.(Number)))
	}
	return IndexKey(n), nil
}

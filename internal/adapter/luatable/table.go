// Package luatable reads and writes the serialized nested-table documents
// stored inside mission archives.
//
// A document is a single assignment of a table literal to a global name:
//
//	mission =
//	{
//	    ["date"] =
//	    {
//	        ["Day"] = 1,
//	    }, -- end of ["date"]
//	} -- end of mission
//
// Decoding keeps entry order and the literal text of every number so that
// re-encoding an untouched document reproduces it byte for byte.
package luatable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one of String, Number, Bool or *Table.
type Value interface {
	isValue()
}

// String is a decoded string literal.
type String string

// Number keeps the literal text of a numeric value.
type Number string

// Bool is a boolean literal.
type Bool bool

func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (*Table) isValue() {}

// NumberFromInt formats an integer the way the document writer does.
func NumberFromInt(v int) Number {
	return Number(strconv.Itoa(v))
}

// Float parses the literal as a float64.
func (n Number) Float() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Int parses the literal as an integer, truncating fractional values.
func (n Number) Int() (int, error) {
	if i, err := strconv.Atoi(string(n)); err == nil {
		return i, nil
	}
	f, err := n.Float()
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", string(n), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("number %q is not finite", string(n))
	}
	return int(f), nil
}

// Key is a table key: either a string or an integer index.
type Key struct {
	name    string
	index   int
	numeric bool
}

// StringKey builds a ["name"] key.
func StringKey(name string) Key { return Key{name: name} }

// IndexKey builds a [n] key.
func IndexKey(n int) Key { return Key{index: n, numeric: true} }

// IsIndex reports whether the key is an integer index.
func (k Key) IsIndex() bool { return k.numeric }

// Name returns the string form of a string key.
func (k Key) Name() string { return k.name }

// Index returns the integer form of an index key.
func (k Key) Index() int { return k.index }

func (k Key) String() string {
	if k.numeric {
		return "[" + strconv.Itoa(k.index) + "]"
	}
	return "[" + quote(k.name, false) + "]"
}

// Entry is a key/value pair in document order.
type Entry struct {
	Key   Key
	Value Value
}

// Table is an ordered mapping.
type Table struct {
	entries []Entry
	index   map[Key]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[Key]int)}
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the entries in document order. The slice must not be modified.
func (t *Table) Entries() []Entry { return t.entries }

// Get looks up a key.
func (t *Table) Get(k Key) (Value, bool) {
	i, ok := t.index[k]
	if !ok {
		return nil, false
	}
	return t.entries[i].Value, true
}

// Set replaces the value of an existing key in place, or appends a new entry.
func (t *Table) Set(k Key, v Value) {
	if i, ok := t.index[k]; ok {
		t.entries[i].Value = v
		return
	}
	t.index[k] = len(t.entries)
	t.entries = append(t.entries, Entry{Key: k, Value: v})
}

// Lookup walks a path of string keys through nested tables.
func (t *Table) Lookup(path ...string) (Value, bool) {
	var cur Value = t
	for _, name := range path {
		tbl, ok := cur.(*Table)
		if !ok {
			return nil, false
		}
		cur, ok = tbl.Get(StringKey(name))
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Sub returns the nested table stored under name.
func (t *Table) Sub(name string) (*Table, bool) {
	v, ok := t.Get(StringKey(name))
	if !ok {
		return nil, false
	}
	tbl, ok := v.(*Table)
	return tbl, ok
}

// Assign stores v at path, creating intermediate tables as needed.
func (t *Table) Assign(v Value, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("assign: empty path")
	}
	cur := t
	for i, name := range path[:len(path)-1] {
		next, ok := cur.Get(StringKey(name))
		if !ok {
			nt := NewTable()
			cur.Set(StringKey(name), nt)
			cur = nt
			continue
		}
		nt, ok := next.(*Table)
		if !ok {
			return fmt.Errorf("assign %s: %q is not a table", strings.Join(path, "."), strings.Join(path[:i+1], "."))
		}
		cur = nt
	}
	cur.Set(StringKey(path[len(path)-1]), v)
	return nil
}

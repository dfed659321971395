package luatable

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Documents inside an archive are stored as ISO-8859-15 bytes.
var latin9 = charmap.ISO8859_15

// DecodeBytes converts raw member bytes to text and parses them.
func DecodeBytes(raw []byte) (*Table, Hints, error) {
	text, err := latin9.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, Hints{}, fmt.Errorf("decode latin-9: %w", err)
	}
	return Decode(string(text))
}

// EncodeBytes serializes a table and converts the text to member bytes.
func EncodeBytes(t *Table, h Hints) ([]byte, error) {
	out, err := latin9.NewEncoder().String(Encode(t, h))
	if err != nil {
		return nil, fmt.Errorf("encode latin-9: %w", err)
	}
	return []byte(out), nil
}

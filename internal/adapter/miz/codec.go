package miz

import (
	"fmt"
	"os"

	"github.com/couchcryptid/miz-weather/internal/adapter/luatable"
)

type document struct {
	member string
	table  *luatable.Table
	hints  luatable.Hints
}

// Decode parses the map resource, dictionary and mission documents, in that
// order.
func (a *Archive) Decode() error {
	if a.closed {
		return ErrClosed
	}
	if !a.extracted {
		if err := a.Extract(); err != nil {
			return err
		}
	}

	a.logger.Debug("decoding documents", "archive", a.path)
	docs := make([]*document, 0, 3)
	for _, member := range []string{MemberMapResource, MemberDictionary, MemberMission} {
		doc, err := a.readDocument(member)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	a.mapResource, a.dictionary, a.mission = docs[0], docs[1], docs[2]
	a.logger.Debug("decoding done", "archive", a.path)
	return nil
}

func (a *Archive) readDocument(member string) (*document, error) {
	p, err := a.memberPath(member)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, &MissingMemberError{Name: member}
	}
	tbl, hints, err := luatable.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", member, err)
	}
	a.logger.Debug("document decoded", "member", member, "entries", tbl.Len())
	return &document{member: member, table: tbl, hints: hints}, nil
}

// Decoded reports whether Decode has succeeded.
func (a *Archive) Decoded() bool { return a.mission != nil }

// Encode writes the three decoded documents back to the temporary directory
// using the layout they were read with.
func (a *Archive) Encode() error {
	if a.closed {
		return ErrClosed
	}
	if !a.Decoded() {
		return ErrNotDecoded
	}
	for _, doc := range []*document{a.mapResource, a.dictionary, a.mission} {
		raw, err := luatable.EncodeBytes(doc.table, doc.hints)
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.member, err)
		}
		p, err := a.memberPath(doc.member)
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, raw, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", doc.member, err)
		}
		a.logger.Debug("document encoded", "member", doc.member, "bytes", len(raw))
	}
	return nil
}

// Mission returns the view over the decoded mission document.
func (a *Archive) Mission() (*Mission, error) {
	if !a.Decoded() {
		return nil, ErrNotDecoded
	}
	return &Mission{root: a.mission.table, dictionary: a.dictionary.table}, nil
}

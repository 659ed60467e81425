package store

import (
	"sort"
	"strings"

	"github.com/roach88/normgraph/internal/payload"
)

// RecordState describes what the store knows about a data-id.
type RecordState int

const (
	// StateUnknown means the id has never been written.
	StateUnknown RecordState = iota

	// StateExistent means the record has at least one stored field,
	// including just the identity marker left by PutRecord.
	StateExistent

	// StateNonexistent means a write explicitly observed this record as
	// deleted. Fields are cleared but the id stays known: the type and
	// root-call indexes retain it.
	StateNonexistent
)

func (s RecordState) String() string {
	switch s {
	case StateExistent:
		return "EXISTENT"
	case StateNonexistent:
		return "NONEXISTENT"
	default:
		return "UNKNOWN"
	}
}

// ClientIDPrefix distinguishes synthesized client ids from server ids.
// Server payloads never produce ids with this prefix, so the two spaces
// cannot collide.
const ClientIDPrefix = "client:"

// IsClientID reports whether id was synthesized by a store rather than
// supplied by a server payload.
func IsClientID(id string) bool {
	return strings.HasPrefix(id, ClientIDPrefix)
}

// cell is a sealed stored field value: a scalar, a single link, or an
// ordered list of links. Payload-shaped objects never appear here.
type cell interface {
	storeCell()
}

type scalarCell struct {
	value payload.Value
}

func (scalarCell) storeCell() {}

type linkCell struct {
	id string
}

func (linkCell) storeCell() {}

type linkListCell struct {
	ids []string
}

func (linkListCell) storeCell() {}

// record is the stored form of one data-id. A nil fields map never occurs;
// a deleted record keeps the struct (identity stays known) with cleared
// fields and deleted set.
type record struct {
	fields  map[string]cell
	deleted bool
}

func newRecord() *record {
	return &record{fields: make(map[string]cell)}
}

func (r *record) state() RecordState {
	if r.deleted {
		return StateNonexistent
	}
	return StateExistent
}

func (r *record) fieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *record) clone() *record {
	dup := &record{
		fields:  make(map[string]cell, len(r.fields)),
		deleted: r.deleted,
	}
	for name, c := range r.fields {
		if lc, ok := c.(linkListCell); ok {
			ids := make([]string, len(lc.ids))
			copy(ids, lc.ids)
			dup.fields[name] = linkListCell{ids: ids}
			continue
		}
		// scalar values and link targets are immutable, share them
		dup.fields[name] = c
	}
	return dup
}

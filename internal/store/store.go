package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/normgraph/internal/payload"
)

// ByIDCall is the root call that looks a record up directly by data-id.
// It is the one call for which an empty argument is a caller contract
// violation rather than a normal index miss.
const ByIDCall = "node"

// InvalidArgumentError reports a root-call lookup invoked in violation of
// the caller contract (a by-id call with no argument).
type InvalidArgumentError struct {
	Call string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("INVALID_ARGUMENT: root call %q requires an argument", e.Call)
}

type rootCallKey struct {
	call string
	arg  string
}

// Store is the mutable record graph for one write session or longer.
// Not safe for concurrent use: one logical writer at a time, by convention.
type Store struct {
	records   map[string]*record
	rootCalls map[rootCallKey]string
	types     map[string]string

	overlay *Snapshot // read-only, may be nil

	nextClientID int64
}

// New creates an empty store.
func New() *Store {
	return NewWithOverlay(nil)
}

// NewWithOverlay creates a store that reads through to a previously cached
// snapshot. The snapshot is never written to. The client-id counter resumes
// from the snapshot's, so ids synthesized by this store cannot collide with
// ids already present in the overlay.
func NewWithOverlay(overlay *Snapshot) *Store {
	s := &Store{
		records:   make(map[string]*record),
		rootCalls: make(map[rootCallKey]string),
		types:     make(map[string]string),
		overlay:   overlay,
	}
	if overlay != nil {
		s.nextClientID = overlay.nextClientID
	}
	return s
}

// SerializeCallArg produces the root-call index key component for a call
// argument. Argument-less calls key on the empty string. Serialization is
// canonical, so two arguments differing only in key order or Unicode
// normalization resolve to the same root-call entry.
func SerializeCallArg(arg payload.Value) (string, error) {
	if arg == nil {
		return "", nil
	}
	if _, ok := arg.(payload.Undefined); ok {
		return "", nil
	}
	data, err := payload.MarshalCanonical(arg)
	if err != nil {
		return "", fmt.Errorf("serialize call argument: %w", err)
	}
	return string(data), nil
}

// RecordState reports what the store knows about id. Overlay records are
// visible here: a record cached in a prior session reports EXISTENT even
// though this session has not touched it.
func (s *Store) RecordState(id string) RecordState {
	if rec, ok := s.records[id]; ok {
		return rec.state()
	}
	if s.overlay != nil {
		if rec, ok := s.overlay.records[id]; ok {
			return rec.state()
		}
	}
	return StateUnknown
}

// Field returns the scalar stored under (id, name). The second return is
// false when the field is absent from both the mutable store and the
// overlay, or when it holds a link rather than a scalar.
func (s *Store) Field(id, name string) (payload.Value, bool) {
	c, ok := s.lookupCell(id, name)
	if !ok {
		return nil, false
	}
	sc, ok := c.(scalarCell)
	if !ok {
		return nil, false
	}
	return sc.value, true
}

// LinkedID returns the data-id of the single record linked under (id, name).
func (s *Store) LinkedID(id, name string) (string, bool) {
	c, ok := s.lookupCell(id, name)
	if !ok {
		return "", false
	}
	lc, ok := c.(linkCell)
	if !ok {
		return "", false
	}
	return lc.id, true
}

// LinkedIDs returns the ordered data-ids linked under a plural (id, name).
func (s *Store) LinkedIDs(id, name string) ([]string, bool) {
	c, ok := s.lookupCell(id, name)
	if !ok {
		return nil, false
	}
	lc, ok := c.(linkListCell)
	if !ok {
		return nil, false
	}
	return lc.ids, true
}

// lookupCell finds a field cell, consulting the overlay when the mutable
// store has no answer. A record deleted in the mutable store shadows its
// overlay fields: the deletion must not leak stale data back.
func (s *Store) lookupCell(id, name string) (cell, bool) {
	if rec, ok := s.records[id]; ok {
		if c, ok := rec.fields[name]; ok {
			return c, true
		}
		if rec.deleted {
			return nil, false
		}
	}
	if s.overlay != nil {
		if rec, ok := s.overlay.records[id]; ok {
			if c, ok := rec.fields[name]; ok {
				return c, true
			}
		}
	}
	return nil, false
}

// DataID resolves (call, serialized argument) through the mutable root-call
// index, falling back to the overlay's index. The second return is false on
// a normal miss. A by-id call with an empty argument returns
// *InvalidArgumentError: that is a caller bug, not a miss.
func (s *Store) DataID(call, arg string) (string, bool, error) {
	if call == ByIDCall && arg == "" {
		return "", false, &InvalidArgumentError{Call: call}
	}
	key := rootCallKey{call: call, arg: arg}
	if id, ok := s.rootCalls[key]; ok {
		return id, true, nil
	}
	if s.overlay != nil {
		if id, ok := s.overlay.rootCalls[key]; ok {
			return id, true, nil
		}
	}
	return "", false, nil
}

// Type returns the recorded type name for id. False when never recorded:
// client records never get a type, and server records may have had no
// determinable type at write time.
func (s *Store) Type(id string) (string, bool) {
	if name, ok := s.types[id]; ok {
		return name, true
	}
	if s.overlay != nil {
		if name, ok := s.overlay.types[id]; ok {
			return name, true
		}
	}
	return "", false
}

// NextClientID synthesizes a fresh client data-id. Ids are never reused for
// the lifetime of the store (and, via snapshots, across sessions).
func (s *Store) NextClientID() string {
	s.nextClientID++
	return ClientIDPrefix + strconv.FormatInt(s.nextClientID, 10)
}

// PutRecord marks id EXISTENT, setting the identity marker if the record is
// new and reviving it if it was deleted. A non-empty typeName is recorded in
// the type index for server-identified ids only.
func (s *Store) PutRecord(id, typeName string) {
	rec := s.ensureRecord(id)
	rec.deleted = false
	if typeName != "" && !IsClientID(id) {
		s.types[id] = typeName
	}
}

// PutField stores a scalar under (id, name).
func (s *Store) PutField(id, name string, value payload.Value) {
	rec := s.ensureRecord(id)
	rec.fields[name] = scalarCell{value: value}
}

// PutLinkedID stores a single link from (id, name) to targetID.
func (s *Store) PutLinkedID(id, name, targetID string) {
	rec := s.ensureRecord(id)
	rec.fields[name] = linkCell{id: targetID}
}

// PutLinkedIDs stores an ordered plural link from (id, name) to targetIDs.
func (s *Store) PutLinkedIDs(id, name string, targetIDs []string) {
	rec := s.ensureRecord(id)
	ids := make([]string, len(targetIDs))
	copy(ids, targetIDs)
	rec.fields[name] = linkListCell{ids: ids}
}

// DeleteRecord clears all fields of id and marks it NONEXISTENT. The id
// stays known: type and root-call index entries are retained.
func (s *Store) DeleteRecord(id string) {
	rec := s.ensureRecord(id)
	rec.fields = make(map[string]cell)
	rec.deleted = true
}

// PutDataID records (call, serialized argument) -> id in the root-call
// index. Entries are created once and reused; no normal write removes them.
func (s *Store) PutDataID(call, arg, id string) {
	s.rootCalls[rootCallKey{call: call, arg: arg}] = id
}

func (s *Store) ensureRecord(id string) *record {
	rec, ok := s.records[id]
	if !ok {
		rec = newRecord()
		s.records[id] = rec
	}
	return rec
}

package store

import (
	"sort"

	"github.com/roach88/normgraph/internal/payload"
)

// Snapshot is the immutable (records, root-call index, type index) triple
// handed across write sessions, plus the client-id high-water mark. It is
// the only state shape shared with collaborators: overlays are snapshots,
// and the snapshot database persists exactly this.
//
// A snapshot is never mutated after construction and may be shared across
// multiple stores.
type Snapshot struct {
	records      map[string]*record
	rootCalls    map[rootCallKey]string
	types        map[string]string
	nextClientID int64
}

// RootCallEntry is one root-call index entry in exported form.
type RootCallEntry struct {
	Call string
	Arg  string
	ID   string
}

// Snapshot captures the merged view of the store: overlay state with this
// session's mutations applied on top. The result is independent of the
// store; later mutations do not affect it.
func (s *Store) Snapshot() *Snapshot {
	sn := &Snapshot{
		records:      make(map[string]*record),
		rootCalls:    make(map[rootCallKey]string),
		types:        make(map[string]string),
		nextClientID: s.nextClientID,
	}
	if s.overlay != nil {
		for id, rec := range s.overlay.records {
			sn.records[id] = rec.clone()
		}
		for key, id := range s.overlay.rootCalls {
			sn.rootCalls[key] = id
		}
		for id, name := range s.overlay.types {
			sn.types[id] = name
		}
		if s.overlay.nextClientID > sn.nextClientID {
			sn.nextClientID = s.overlay.nextClientID
		}
	}
	for id, rec := range s.records {
		merged := rec.clone()
		if !rec.deleted {
			// A session record shadows overlay fields it sets but
			// retains cached fields it never touched.
			if base, ok := sn.records[id]; ok && !base.deleted {
				for name, c := range base.fields {
					if _, set := merged.fields[name]; !set {
						merged.fields[name] = c
					}
				}
			}
		}
		sn.records[id] = merged
	}
	for key, id := range s.rootCalls {
		sn.rootCalls[key] = id
	}
	for id, name := range s.types {
		sn.types[id] = name
	}
	return sn
}

// RecordIDs returns all known data-ids in sorted order.
func (sn *Snapshot) RecordIDs() []string {
	ids := make([]string, 0, len(sn.records))
	for id := range sn.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State reports the record state for id within the snapshot.
func (sn *Snapshot) State(id string) RecordState {
	rec, ok := sn.records[id]
	if !ok {
		return StateUnknown
	}
	return rec.state()
}

// FieldNames returns the sorted field names stored on id, links included.
func (sn *Snapshot) FieldNames(id string) []string {
	rec, ok := sn.records[id]
	if !ok {
		return nil
	}
	return rec.fieldNames()
}

// Field returns the scalar stored under (id, name), if that field is a
// scalar.
func (sn *Snapshot) Field(id, name string) (payload.Value, bool) {
	rec, ok := sn.records[id]
	if !ok {
		return nil, false
	}
	sc, ok := rec.fields[name].(scalarCell)
	if !ok {
		return nil, false
	}
	return sc.value, true
}

// LinkedID returns the single link target under (id, name), if any.
func (sn *Snapshot) LinkedID(id, name string) (string, bool) {
	rec, ok := sn.records[id]
	if !ok {
		return "", false
	}
	lc, ok := rec.fields[name].(linkCell)
	if !ok {
		return "", false
	}
	return lc.id, true
}

// LinkedIDs returns the plural link targets under (id, name), if any.
func (sn *Snapshot) LinkedIDs(id, name string) ([]string, bool) {
	rec, ok := sn.records[id]
	if !ok {
		return nil, false
	}
	lc, ok := rec.fields[name].(linkListCell)
	if !ok {
		return nil, false
	}
	ids := make([]string, len(lc.ids))
	copy(ids, lc.ids)
	return ids, true
}

// Type returns the recorded type name for id.
func (sn *Snapshot) Type(id string) (string, bool) {
	name, ok := sn.types[id]
	return name, ok
}

// RootCalls returns the root-call index entries sorted by call then
// argument.
func (sn *Snapshot) RootCalls() []RootCallEntry {
	entries := make([]RootCallEntry, 0, len(sn.rootCalls))
	for key, id := range sn.rootCalls {
		entries = append(entries, RootCallEntry{Call: key.call, Arg: key.arg, ID: id})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Call != entries[j].Call {
			return entries[i].Call < entries[j].Call
		}
		return entries[i].Arg < entries[j].Arg
	})
	return entries
}

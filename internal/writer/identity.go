package writer

import (
	"strconv"

	"github.com/roach88/normgraph/internal/payload"
)

// Payload field names with reserved meaning inside any payload object.
const (
	// IDFieldName is the identifying field whose value becomes the
	// record's server data-id when present.
	IDFieldName = "id"

	// TypenameFieldName is the optional explicit type name field.
	TypenameFieldName = "__typename"
)

// serverID extracts the explicit identifying field from a payload object.
// Numeric ids are accepted and normalized to their decimal string form.
func serverID(obj payload.Object) (string, bool) {
	switch v := obj.Field(IDFieldName).(type) {
	case payload.String:
		return string(v), true
	case payload.Int:
		return strconv.FormatInt(int64(v), 10), true
	default:
		return "", false
	}
}

// resolveRootID decides the data-id for one root position, applying the
// identity precedence. obj is nil when the payload at the position is null.
func (r *writeRun) resolveRootID(call, arg string, obj payload.Object) (string, error) {
	if id, ok, err := r.store.DataID(call, arg); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}
	if obj != nil {
		if id, ok := serverID(obj); ok {
			return id, nil
		}
	}
	return r.store.NextClientID(), nil
}

// resolveLinkedID decides the data-id for a nested record reached through
// a link: payload server id, else the id previously stored at this
// position, else a fresh client id. Positional reuse is what keeps
// re-writing an id-less payload from churning out new client records.
func (r *writeRun) resolveLinkedID(obj payload.Object, prevID string, hadPrev bool) string {
	if id, ok := serverID(obj); ok {
		return id
	}
	if hadPrev {
		return prevID
	}
	return r.store.NextClientID()
}

// inferType runs the type-inference chain for a record, once per record
// per write, and only when the payload carries an identifying field:
// client-only records never get a type, they have no server identity to
// type.
//
//  1. explicit typename field in the payload
//  2. the statically declared return type of the parent query field
//     (skipped in verbatim mode)
//  3. no type - emit one diagnostic naming the record id
func (r *writeRun) inferType(id string, declaredType string, obj payload.Object) string {
	if r.typed[id] {
		return ""
	}
	if _, ok := serverID(obj); !ok {
		return ""
	}
	r.typed[id] = true

	if tn, ok := obj.Field(TypenameFieldName).(payload.String); ok {
		return string(tn)
	}
	if !r.verbatim && declaredType != "" {
		return declaredType
	}
	r.diags = append(r.diags, Diagnostic{
		RecordID: id,
		Message:  "cannot determine type name for record",
	})
	return ""
}

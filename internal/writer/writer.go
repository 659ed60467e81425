package writer

import (
	"fmt"
	"slices"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/query"
	"github.com/roach88/normgraph/internal/store"
)

// Writer applies payloads to a store. The zero Tokens value means UUIDv7
// session tokens; tests substitute a FixedTokenGenerator.
type Writer struct {
	Store *store.Store

	// Verbatim skips the static-type fallback of the type-inference
	// chain and relies only on the payload's explicit typename field.
	// Used when the caller cannot supply static per-field return types.
	Verbatim bool

	Tokens TokenGenerator
}

// New creates a Writer over s with default settings.
func New(s *store.Store) *Writer {
	return &Writer{Store: s}
}

// Write normalizes one payload into s, driven by the query tree.
// Convenience wrapper over Writer.
func Write(s *store.Store, root *query.Root, pv payload.Value) (*Result, error) {
	return New(s).Write(root, pv)
}

// WriteVerbatim is Write without the static-type inference fallback.
func WriteVerbatim(s *store.Store, root *query.Root, pv payload.Value) (*Result, error) {
	w := New(s)
	w.Verbatim = true
	return w.Write(root, pv)
}

// writeRun is the state of one top-level write call: the traversal's
// tracker, diagnostics, and once-per-record type bookkeeping. A fresh run
// is built per write.
type writeRun struct {
	store    *store.Store
	tracker  *changeTracker
	verbatim bool
	diags    []Diagnostic
	typed    map[string]bool
}

// Write walks the query tree and payload in lock-step and returns the
// accumulated change set. On a fatal contract violation the returned error
// is a *WriteError; mutations performed before the violation are kept,
// nothing further in the traversal is applied.
func (w *Writer) Write(root *query.Root, pv payload.Value) (*Result, error) {
	if err := query.Validate(root); err != nil {
		return nil, &WriteError{Code: ErrCodeInvalidQuery, Message: err.Error()}
	}

	run := &writeRun{
		store:    w.Store,
		tracker:  newChangeTracker(),
		verbatim: w.Verbatim,
		typed:    make(map[string]bool),
	}
	if err := run.writeRoot(root, pv); err != nil {
		return nil, err
	}

	tokens := w.Tokens
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Result{
		Token:       tokens.Generate(),
		Created:     run.tracker.created,
		Updated:     run.tracker.updated,
		Diagnostics: run.diags,
	}, nil
}

func (r *writeRun) writeRoot(root *query.Root, pv payload.Value) error {
	if isUndefined(pv) {
		// Writing undefined into a root position is always a contract
		// violation; the existing record, if any, is left untouched.
		return NewUndefinedPayloadError(root.Call, "")
	}

	switch root.Shape {
	case query.ShapeSingular:
		if _, ok := pv.(payload.Array); ok {
			return NewShapeMismatchError(root.Call, "",
				"unexpected array payload for singular root")
		}
		arg, err := store.SerializeCallArg(root.Arg)
		if err != nil {
			return fmt.Errorf("root %q: %w", root.Call, err)
		}
		if root.Call == store.ByIDCall && arg == "" {
			return NewMissingArgumentError(root.Call)
		}
		return r.writeRootElement(root, arg, pv)

	case query.ShapePlural:
		args, ok := root.Arg.(payload.Array)
		if !ok {
			return NewMissingArgumentError(root.Call)
		}
		elems, ok := pv.(payload.Array)
		if !ok {
			return NewShapeMismatchError(root.Call, "",
				"expected array payload for plural root")
		}
		if len(elems) != len(args) {
			return NewCountMismatchError(root.Call, len(args), len(elems))
		}
		for i, elem := range elems {
			arg, err := store.SerializeCallArg(args[i])
			if err != nil {
				return fmt.Errorf("root %q[%d]: %w", root.Call, i, err)
			}
			if err := r.writeRootElement(root, arg, elem); err != nil {
				return err
			}
		}
		return nil

	case query.ShapeRef:
		elems, ok := pv.(payload.Array)
		if !ok {
			return NewShapeMismatchError(root.Call, "",
				"expected array payload for ref root")
		}
		if len(elems) != len(root.RefIDs) {
			return NewCountMismatchError(root.Call, len(root.RefIDs), len(elems))
		}
		for i, elem := range elems {
			// Each referenced id keys its own root-call entry and
			// resolves independently through the precedence rules.
			arg, err := store.SerializeCallArg(payload.String(root.RefIDs[i]))
			if err != nil {
				return fmt.Errorf("root %q[%d]: %w", root.Call, i, err)
			}
			if err := r.writeRootElement(root, arg, elem); err != nil {
				return err
			}
		}
		return nil

	default:
		return NewShapeMismatchError(root.Call, "",
			fmt.Sprintf("unknown root shape %d", int(root.Shape)))
	}
}

// writeRootElement writes one record position at the root: a payload
// object, or null for an observed deletion.
func (r *writeRun) writeRootElement(root *query.Root, arg string, pv payload.Value) error {
	switch v := pv.(type) {
	case payload.Undefined:
		return NewUndefinedPayloadError(root.Call, "")

	case payload.Null:
		id, err := r.resolveRootID(root.Call, arg, nil)
		if err != nil {
			return err
		}
		r.store.PutDataID(root.Call, arg, id)
		r.deleteRecord(id)
		return nil

	case payload.Object:
		id, err := r.resolveRootID(root.Call, arg, v)
		if err != nil {
			return err
		}
		r.store.PutDataID(root.Call, arg, id)
		r.createOrUpdateRecord(id, root.Type, v)
		return r.writeChildren(root.Call, id, root.Children, v)

	default:
		return NewShapeMismatchError(root.Call, "",
			fmt.Sprintf("root payload must be an object or null, got %T", pv))
	}
}

// createOrUpdateRecord ensures id is EXISTENT, reporting created on the
// non-EXISTENT -> EXISTENT transition, and records the inferred type.
func (r *writeRun) createOrUpdateRecord(id, declaredType string, obj payload.Object) {
	prev := r.store.RecordState(id)
	r.store.PutRecord(id, r.inferType(id, declaredType, obj))
	if prev != store.StateExistent {
		r.tracker.recordCreate(id)
	}
}

// deleteRecord applies observed-null semantics to id: clear fields, mark
// NONEXISTENT, report updated only if the record previously existed.
func (r *writeRun) deleteRecord(id string) {
	prev := r.store.RecordState(id)
	if prev == store.StateNonexistent {
		return
	}
	r.store.DeleteRecord(id)
	if prev == store.StateExistent {
		r.tracker.recordUpdate(id)
	}
}

func (r *writeRun) writeChildren(call, id string, children []query.Node, obj payload.Object) error {
	for _, child := range children {
		// The payload is consulted only for requested field names;
		// anything else it contains is never examined.
		switch node := child.(type) {
		case query.Scalar:
			if err := r.writeScalar(call, id, node, obj.Field(node.Name)); err != nil {
				return err
			}
		case query.Link:
			v := obj.Field(node.Name)
			if node.Plural {
				if err := r.writePluralLink(call, id, node, v); err != nil {
					return err
				}
			} else {
				if err := r.writeLink(call, id, node, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeScalar diffs and writes one scalar field. An absent value is a
// silent no-op: a field cached from an earlier, wider query must be left
// alone when a narrower payload omits it.
func (r *writeRun) writeScalar(call, id string, node query.Scalar, v payload.Value) error {
	if isUndefined(v) {
		return nil
	}
	if !payload.IsScalar(v) {
		return NewShapeMismatchError(call, node.Name,
			"expected scalar payload for scalar field")
	}
	prev, ok := r.store.Field(id, node.Name)
	if ok && payload.Equal(prev, v) {
		return nil
	}
	r.store.PutField(id, node.Name, v)
	r.tracker.recordUpdate(id)
	return nil
}

// writeLink writes a single-linked field. The diff on the link itself
// (did the parent's pointer change target) is tracked independently from
// the diff inside the target record.
func (r *writeRun) writeLink(call, parentID string, node query.Link, v payload.Value) error {
	switch lv := v.(type) {
	case payload.Undefined:
		return nil

	case payload.Null:
		// Null handling scoped to the child reached through the link.
		// If no link exists yet, the position still gets stable
		// identity: a client id, so a later re-write of null is a
		// no-op.
		childID, ok := r.store.LinkedID(parentID, node.Name)
		if !ok {
			childID = r.store.NextClientID()
			r.store.PutLinkedID(parentID, node.Name, childID)
			r.tracker.recordUpdate(parentID)
		}
		r.deleteRecord(childID)
		return nil

	case payload.Object:
		prevID, hadPrev := r.store.LinkedID(parentID, node.Name)
		childID := r.resolveLinkedID(lv, prevID, hadPrev)
		if !hadPrev || prevID != childID {
			r.store.PutLinkedID(parentID, node.Name, childID)
			r.tracker.recordUpdate(parentID)
		}
		r.createOrUpdateRecord(childID, node.Type, lv)
		return r.writeChildren(call, childID, node.Children, lv)

	case payload.Array:
		return NewShapeMismatchError(call, node.Name,
			"unexpected array payload for singular linked field")

	default:
		return NewShapeMismatchError(call, node.Name,
			fmt.Sprintf("linked field must be an object or null, got %T", v))
	}
}

// writePluralLink writes a plural-linked field. The parent's link is
// considered changed if the resolved id sequence differs in length or
// order from the stored one.
func (r *writeRun) writePluralLink(call, parentID string, node query.Link, v payload.Value) error {
	switch lv := v.(type) {
	case payload.Undefined:
		return nil

	case payload.Null:
		// Observed null for the whole list: every record previously
		// reachable through it is deleted; the list itself stays so
		// the positions keep their identity.
		prevIDs, ok := r.store.LinkedIDs(parentID, node.Name)
		if !ok {
			return nil
		}
		for _, id := range prevIDs {
			r.deleteRecord(id)
		}
		return nil

	case payload.Array:
		prevIDs, _ := r.store.LinkedIDs(parentID, node.Name)
		nextIDs := make([]string, 0, len(lv))
		for i, elem := range lv {
			childID, err := r.writePluralElement(call, node, prevIDs, i, elem)
			if err != nil {
				return err
			}
			nextIDs = append(nextIDs, childID)
		}
		if !slices.Equal(prevIDs, nextIDs) {
			r.store.PutLinkedIDs(parentID, node.Name, nextIDs)
			r.tracker.recordUpdate(parentID)
		}
		return nil

	default:
		return NewShapeMismatchError(call, node.Name,
			fmt.Sprintf("plural linked field must be an array or null, got %T", v))
	}
}

// writePluralElement writes one element of a plural link and returns its
// resolved data-id. Elements are record positions: undefined fails loudly.
func (r *writeRun) writePluralElement(call string, node query.Link, prevIDs []string, i int, elem payload.Value) (string, error) {
	switch ev := elem.(type) {
	case payload.Undefined:
		return "", NewUndefinedPayloadError(call, node.Name)

	case payload.Null:
		var childID string
		if i < len(prevIDs) {
			childID = prevIDs[i]
		} else {
			childID = r.store.NextClientID()
		}
		r.deleteRecord(childID)
		return childID, nil

	case payload.Object:
		var prevID string
		hadPrev := i < len(prevIDs)
		if hadPrev {
			prevID = prevIDs[i]
		}
		childID := r.resolveLinkedID(ev, prevID, hadPrev)
		r.createOrUpdateRecord(childID, node.Type, ev)
		if err := r.writeChildren(call, childID, node.Children, ev); err != nil {
			return "", err
		}
		return childID, nil

	default:
		return "", NewShapeMismatchError(call, node.Name,
			fmt.Sprintf("plural element must be an object or null, got %T", elem))
	}
}

// isUndefined reports whether v is absent: a nil interface or the explicit
// Undefined marker.
func isUndefined(v payload.Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(payload.Undefined)
	return ok
}

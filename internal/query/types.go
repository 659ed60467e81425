package query

import "github.com/roach88/normgraph/internal/payload"

// Node represents a requested field inside a query tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the writer.
//
// Node types:
//   - Scalar: a leaf field holding a scalar value
//   - Link: a field referencing one record (or, when Plural, an ordered
//     list of records)
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// Shape declares the expected result shape of a root call.
type Shape int

const (
	// ShapeSingular expects exactly one result object (or null).
	// An array payload at the root is a fatal shape mismatch.
	ShapeSingular Shape = iota

	// ShapePlural expects one result per element of the root argument,
	// which must be an array. A non-array payload is a fatal mismatch,
	// as is a payload whose length differs from the argument's.
	ShapePlural

	// ShapeRef expects one result per externally resolved target id
	// (RefIDs). Used when the set of ids is supplied indirectly, e.g.
	// resolved from a batched variable before traversal begins.
	ShapeRef
)

func (s Shape) String() string {
	switch s {
	case ShapeSingular:
		return "singular"
	case ShapePlural:
		return "plural"
	case ShapeRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Root is the entry point of a query: a parameterized root call plus the
// requested field tree.
//
// Identity of the call across writes is (Call, canonical Arg): the store's
// root-call index maps that pair to a data-id, which is what lets a record
// introduced by one query be updated rather than duplicated by a later
// query with the same call.
type Root struct {
	// Call is the root call name (e.g. "me", "viewer", "node").
	Call string

	// Arg is the call argument. Undefined for argument-less calls.
	// For ShapePlural the argument must be a payload.Array; the writer
	// pairs payload elements with argument elements positionally.
	Arg payload.Value

	// Shape declares the expected result shape.
	Shape Shape

	// RefIDs carries the externally resolved target ids for ShapeRef
	// roots. Must be empty for other shapes.
	RefIDs []string

	// Type is the statically declared result type of the call, used as
	// the type-inference fallback when the payload has no typename field.
	// Empty when not determinable.
	Type string

	// Children is the requested field tree. An empty tree writes only
	// record identity.
	Children []Node
}

// Scalar is a leaf field holding a scalar value (string, number, boolean,
// null, or an array of those).
type Scalar struct {
	// Name is the payload field name.
	Name string
}

func (Scalar) queryNode() {}

// Link is a field referencing another record. The payload value at a Link
// position is an object (or null), never a bare scalar; each object
// normalizes into its own record and the parent stores only the data-id.
type Link struct {
	// Name is the payload field name.
	Name string

	// Plural marks the link as an ordered list of records. The payload
	// value must then be an array (or null).
	Plural bool

	// Type is the statically declared type of the linked record(s),
	// used as the type-inference fallback. Empty when not determinable.
	Type string

	// Children is the field tree requested on the linked record(s).
	Children []Node
}

func (Link) queryNode() {}

// Name returns the field name of any child node.
func Name(n Node) string {
	switch node := n.(type) {
	case Scalar:
		return node.Name
	case Link:
		return node.Name
	default:
		return ""
	}
}

// Package query defines the node tree that drives payload traversal.
//
// A query describes the SHAPE the caller requested: a root call with its
// argument and expected result shape, and a tree of scalar and linked
// fields beneath it. The writer walks this tree in lock-step with the
// payload; fields present in the payload but absent from the query are
// never examined.
//
// This package does not parse any query language. Trees are built
// programmatically or loaded from CUE description files by internal/cli.
package query

package query

import (
	"fmt"

	"github.com/roach88/normgraph/internal/payload"
)

// Validate checks that a root and its field tree are structurally sound
// before traversal. Validation failures are caller contract violations,
// reported before any store mutation happens.
//
// Checks:
//   - the root call name is non-empty
//   - a ShapePlural root carries an array argument
//   - a ShapeRef root carries resolved ids, other shapes carry none
//   - child field names are non-empty and unique among siblings
//   - links have children, scalars have none (a Scalar is a leaf)
//
// Validate is a pure function with no side effects.
func Validate(root *Root) error {
	if root == nil {
		return fmt.Errorf("query root is nil")
	}
	if root.Call == "" {
		return fmt.Errorf("query root has empty call name")
	}

	switch root.Shape {
	case ShapeSingular:
		if len(root.RefIDs) > 0 {
			return fmt.Errorf("root %q: singular root must not carry ref ids", root.Call)
		}
	case ShapePlural:
		if _, ok := root.Arg.(payload.Array); !ok {
			return fmt.Errorf("root %q: plural root requires an array argument", root.Call)
		}
		if len(root.RefIDs) > 0 {
			return fmt.Errorf("root %q: plural root must not carry ref ids", root.Call)
		}
	case ShapeRef:
		if len(root.RefIDs) == 0 {
			return fmt.Errorf("root %q: ref root requires resolved target ids", root.Call)
		}
	default:
		return fmt.Errorf("root %q: unknown shape %d", root.Call, int(root.Shape))
	}

	return validateChildren(root.Call, root.Children)
}

func validateChildren(path string, children []Node) error {
	seen := make(map[string]bool, len(children))
	for i, child := range children {
		name := Name(child)
		if name == "" {
			return fmt.Errorf("%s: child %d has empty field name", path, i)
		}
		if seen[name] {
			return fmt.Errorf("%s: duplicate field %q", path, name)
		}
		seen[name] = true

		switch node := child.(type) {
		case Scalar:
			// Leaves carry no subtree.
		case Link:
			if len(node.Children) == 0 {
				return fmt.Errorf("%s.%s: linked field requires children", path, name)
			}
			if err := validateChildren(path+"."+name, node.Children); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s.%s: unknown node type %T", path, name, child)
		}
	}
	return nil
}

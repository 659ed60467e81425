package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/normgraph/internal/payload"
)

func TestValidate_Singular(t *testing.T) {
	root := &Root{
		Call: "me",
		Children: []Node{
			Scalar{Name: "id"},
			Link{Name: "address", Children: []Node{Scalar{Name: "city"}}},
		},
	}
	assert.NoError(t, Validate(root))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		root *Root
		want string
	}{
		{
			"nil root",
			nil,
			"query root is nil",
		},
		{
			"empty call",
			&Root{},
			"empty call name",
		},
		{
			"plural without array arg",
			&Root{Call: "users", Shape: ShapePlural, Arg: payload.String("123")},
			"requires an array argument",
		},
		{
			"ref without ids",
			&Root{Call: "nodes", Shape: ShapeRef},
			"requires resolved target ids",
		},
		{
			"singular with ref ids",
			&Root{Call: "me", Shape: ShapeSingular, RefIDs: []string{"1"}},
			"must not carry ref ids",
		},
		{
			"duplicate children",
			&Root{Call: "me", Children: []Node{Scalar{Name: "id"}, Scalar{Name: "id"}}},
			`duplicate field "id"`,
		},
		{
			"link without children",
			&Root{Call: "me", Children: []Node{Link{Name: "address"}}},
			"requires children",
		},
		{
			"nested empty name",
			&Root{Call: "me", Children: []Node{
				Link{Name: "address", Children: []Node{Scalar{}}},
			}},
			"empty field name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.root)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_PluralAndRef(t *testing.T) {
	plural := &Root{
		Call:     "usernames",
		Shape:    ShapePlural,
		Arg:      payload.Array{payload.String("a"), payload.String("b")},
		Children: []Node{Scalar{Name: "id"}},
	}
	assert.NoError(t, Validate(plural))

	ref := &Root{
		Call:     "nodes",
		Shape:    ShapeRef,
		RefIDs:   []string{"123", "456"},
		Children: []Node{Scalar{Name: "id"}},
	}
	assert.NoError(t, Validate(ref))
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "singular", ShapeSingular.String())
	assert.Equal(t, "plural", ShapePlural.String())
	assert.Equal(t, "ref", ShapeRef.String())
}

package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ScalarKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"string", `"hello"`, String("hello")},
		{"int", `42`, Int(42)},
		{"negative int", `-7`, Int(-7)},
		{"float", `3.25`, Float(3.25)},
		{"exponent is float", `1e3`, Float(1000)},
		{"bool true", `true`, Bool(true)},
		{"bool false", `false`, Bool(false)},
		{"null", `null`, Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Nested(t *testing.T) {
	got, err := Decode([]byte(`{"id":"123","tags":["a","b"],"meta":{"count":2}}`))
	require.NoError(t, err)

	obj, ok := got.(Object)
	require.True(t, ok)
	assert.Equal(t, String("123"), obj.Field("id"))
	assert.Equal(t, Array{String("a"), String("b")}, obj.Field("tags"))

	meta, ok := obj.Field("meta").(Object)
	require.True(t, ok)
	assert.Equal(t, Int(2), meta.Field("count"))
}

func TestDecode_TrailingData(t *testing.T) {
	_, err := Decode([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestObjectField_AbsentVersusNull(t *testing.T) {
	obj := MustDecode(`{"present":null}`).(Object)

	assert.Equal(t, Null{}, obj.Field("present"))
	assert.Equal(t, Undefined{}, obj.Field("absent"))
	assert.False(t, Equal(obj.Field("present"), obj.Field("absent")),
		"null and undefined must never compare equal")
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same strings", String("x"), String("x"), true},
		{"different strings", String("x"), String("y"), false},
		{"int vs float never equal", Int(1), Float(1), false},
		{"nulls", Null{}, Null{}, true},
		{"null vs undefined", Null{}, Undefined{}, false},
		{"arrays element-wise", Array{Int(1), Int(2)}, Array{Int(1), Int(2)}, true},
		{"arrays length differs", Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{"arrays order matters", Array{Int(1), Int(2)}, Array{Int(2), Int(1)}, false},
		{"objects key-wise", Object{"a": Int(1)}, Object{"a": Int(1)}, true},
		{"objects value differs", Object{"a": Int(1)}, Object{"a": Int(2)}, false},
		{"objects extra key", Object{"a": Int(1)}, Object{"a": Int(1), "b": Int(2)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar(String("x")))
	assert.True(t, IsScalar(Null{}))
	assert.True(t, IsScalar(Array{Int(1), String("a")}))
	assert.False(t, IsScalar(Object{}))
	assert.False(t, IsScalar(Array{Object{"id": String("1")}}))
}

func TestFromGo_YAMLShapes(t *testing.T) {
	// yaml.v3 decodes mappings to map[string]any with int values
	v, err := FromGo(map[string]any{"count": 3, "name": "cart"})
	require.NoError(t, err)
	obj := v.(Object)
	assert.Equal(t, Int(3), obj.Field("count"))
	assert.Equal(t, String("cart"), obj.Field("name"))
}

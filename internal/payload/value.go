package payload

// Value is a sealed interface representing a decoded payload value.
// Only Null, Undefined, String, Int, Float, Bool, Array, and Object
// implement this. The marker method prevents external implementations and
// enables exhaustive type switches in the writer.
type Value interface {
	payloadValue() // Sealed - only these types implement it
}

// Null represents an explicit JSON null.
//
// Null at a record position means "delete this record"; Null at a scalar
// field position is stored as a field value like any other scalar.
type Null struct{}

func (Null) payloadValue() {}

// Undefined marks an absent value. Object.Field returns Undefined for a
// missing key; Array elements are never Undefined after Decode, but the
// writer checks anyway and fails loudly at record positions.
type Undefined struct{}

func (Undefined) payloadValue() {}

// String represents a string scalar.
type String string

func (String) payloadValue() {}

// Int represents an integral number scalar. JSON numbers without a
// fractional part or exponent decode to Int, everything else to Float.
type Int int64

func (Int) payloadValue() {}

// Float represents a non-integral number scalar.
type Float float64

func (Float) payloadValue() {}

// Bool represents a boolean scalar.
type Bool bool

func (Bool) payloadValue() {}

// Array represents an ordered sequence of values.
type Array []Value

func (Array) payloadValue() {}

// Object represents a JSON object keyed by field name.
type Object map[string]Value

func (Object) payloadValue() {}

// Field returns the value stored under name, or Undefined if the key is
// absent. An explicit null is returned as Null, never as Undefined.
func (o Object) Field(name string) Value {
	v, ok := o[name]
	if !ok {
		return Undefined{}
	}
	return v
}

// IsScalar reports whether v is a scalar in the store's sense: a string,
// number, boolean, null, or an array of scalars. Objects are never scalars;
// they normalize into their own records.
func IsScalar(v Value) bool {
	switch val := v.(type) {
	case Null, String, Int, Float, Bool:
		return true
	case Array:
		for _, elem := range val {
			if !IsScalar(elem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal reports deep equality of two values. This is the comparator the
// writer uses for field diffing: identity compare for primitives,
// element-wise compare for arrays, key-wise compare for objects.
// Undefined equals only Undefined.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

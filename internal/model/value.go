package model

import "strconv"

// Type discriminates the JSON value kinds a Value can hold.
type Type int

const (
	NullType Type = iota
	BoolType
	NumberType
	StringType
	ArrayType
	ObjectType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a single JSON value. Exactly one representation is populated,
// selected by Type. Numbers keep the integer/float distinction from the
// source text: Int64 is set for integer literals, Float64 otherwise.
// Objects preserve insertion order via the parallel Keys/Fields slices.
type Value struct {
	Type Type

	Bool    bool
	Str     string
	Int64   *int64
	Float64 *float64

	Elems []*Value

	Keys   []string
	Fields []*Value
}

func Null() *Value {
	return &Value{Type: NullType}
}

func FromBool(b bool) *Value {
	return &Value{Type: BoolType, Bool: b}
}

func FromInt(i int64) *Value {
	return &Value{Type: NumberType, Int64: &i}
}

func FromFloat(f float64) *Value {
	return &Value{Type: NumberType, Float64: &f}
}

func FromString(s string) *Value {
	return &Value{Type: StringType, Str: s}
}

func NewArray(elems ...*Value) *Value {
	return &Value{Type: ArrayType, Elems: elems}
}

func NewObject() *Value {
	return &Value{Type: ObjectType}
}

// ObjectSet appends the field, or replaces its value if the key is present.
func (v *Value) ObjectSet(key string, field *Value) {
	for i, k := range v.Keys {
		if k == key {
			v.Fields[i] = field
			return
		}
	}
	v.Keys = append(v.Keys, key)
	v.Fields = append(v.Fields, field)
}

// ObjectGet returns the field for key, or false if the key is absent.
func (v *Value) ObjectGet(key string) (*Value, bool) {
	for i, k := range v.Keys {
		if k == key {
			return v.Fields[i], true
		}
	}
	return nil, false
}

// IsNumber reports whether v is a JSON number.
func (v *Value) IsNumber() bool {
	return v != nil && v.Type == NumberType
}

// Float returns the numeric value of v coerced to float64.
// The second result is false if v is not a number.
func (v *Value) Float() (float64, bool) {
	if v == nil || v.Type != NumberType {
		return 0, false
	}
	if v.Int64 != nil {
		return float64(*v.Int64), true
	}
	return *v.Float64, true
}

// Clone returns a deep copy of v sharing no structure with the original.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	dst := &Value{Type: v.Type, Bool: v.Bool, Str: v.Str}
	if v.Int64 != nil {
		i := *v.Int64
		dst.Int64 = &i
	}
	if v.Float64 != nil {
		f := *v.Float64
		dst.Float64 = &f
	}
	if v.Elems != nil {
		dst.Elems = make([]*Value, len(v.Elems))
		for i, e := range v.Elems {
			dst.Elems[i] = e.Clone()
		}
	}
	if v.Keys != nil {
		dst.Keys = make([]string, len(v.Keys))
		copy(dst.Keys, v.Keys)
		dst.Fields = make([]*Value, len(v.Fields))
		for i, f := range v.Fields {
			dst.Fields[i] = f.Clone()
		}
	}
	return dst
}

// Equal reports structural equality. Numbers compare numerically, so the
// integer 1 equals the float 1.0. Object fields must match in insertion
// order as well as content.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Type == NumberType && o.Type == NumberType {
		a, _ := v.Float()
		b, _ := o.Float()
		return a == b
	}
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case NullType:
		return true
	case BoolType:
		return v.Bool == o.Bool
	case StringType:
		return v.Str == o.Str
	case ArrayType:
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	case ObjectType:
		if len(v.Keys) != len(o.Keys) {
			return false
		}
		for i := range v.Keys {
			if v.Keys[i] != o.Keys[i] || !v.Fields[i].Equal(o.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// NumberString renders a number the way it will be serialized.
func (v *Value) NumberString() string {
	if v.Int64 != nil {
		return strconv.FormatInt(*v.Int64, 10)
	}
	return formatFloat(*v.Float64)
}

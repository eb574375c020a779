package query

import (
	"fmt"
	"math"

	"jsondb/internal/model"
)

// Arithmetic verbs take a 2-element array [lhs, rhs]; each side is
// evaluated recursively, so {"+": [{"get":"x"}, {"get":"y"}]} works.
// Numbers combine to numbers; a scalar broadcasts over an array; two
// arrays combine elementwise and must have the same length. "+" also
// concatenates strings and broadcasts a string over a string array.
// Results are floats.

func opAdd(a, b float64) float64 { return a + b }
func opSub(a, b float64) float64 { return a - b }
func opMul(a, b float64) float64 { return a * b }
func opDiv(a, b float64) float64 { return a / b }

func arithmetic(verb string, op func(a, b float64) float64, strings bool) verbFunc {
	return func(arg *model.Value, db Backend) (*model.Value, error) {
		arg, err := resolve(arg, db)
		if err != nil {
			return nil, err
		}
		if arg == nil || arg.Type != model.ArrayType || len(arg.Elems) != 2 {
			return nil, fmt.Errorf("%s: %w: want [lhs, rhs]", verb, ErrArity)
		}
		lhs, err := resolve(arg.Elems[0], db)
		if err != nil {
			return nil, err
		}
		rhs, err := resolve(arg.Elems[1], db)
		if err != nil {
			return nil, err
		}
		return combine(verb, op, strings, lhs, rhs)
	}
}

func combine(verb string, op func(a, b float64) float64, strings bool, lhs, rhs *model.Value) (*model.Value, error) {
	la, _ := lhs.Float()
	ra, _ := rhs.Float()
	switch {
	case lhs.IsNumber() && rhs.IsNumber():
		return finite(verb, op(la, ra))

	case lhs.IsNumber() && rhs.Type == model.ArrayType:
		return mapElems(verb, rhs, func(e float64) float64 { return op(la, e) })

	case lhs.Type == model.ArrayType && rhs.IsNumber():
		return mapElems(verb, lhs, func(e float64) float64 { return op(e, ra) })

	case lhs.Type == model.ArrayType && rhs.Type == model.ArrayType:
		if len(lhs.Elems) != len(rhs.Elems) {
			return nil, fmt.Errorf("%s: %w: arrays of different length", verb, ErrBadType)
		}
		out := make([]*model.Value, len(lhs.Elems))
		for i := range lhs.Elems {
			a, aok := lhs.Elems[i].Float()
			b, bok := rhs.Elems[i].Float()
			if !aok || !bok {
				return stringElems(verb, strings, lhs, rhs)
			}
			v, err := finite(verb, op(a, b))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return model.NewArray(out...), nil

	case strings && lhs.Type == model.StringType && rhs.Type == model.StringType:
		return model.FromString(lhs.Str + rhs.Str), nil

	case strings && lhs.Type == model.StringType && rhs.Type == model.ArrayType:
		return mapStrings(verb, rhs, func(s string) string { return lhs.Str + s })

	case strings && lhs.Type == model.ArrayType && rhs.Type == model.StringType:
		return mapStrings(verb, lhs, func(s string) string { return s + rhs.Str })

	default:
		return nil, fmt.Errorf("%s: %w: cannot combine %s and %s", verb, ErrBadType, lhs.Type, rhs.Type)
	}
}

func finite(verb string, f float64) (*model.Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%s: %w: result is not a finite number", verb, ErrBadType)
	}
	return model.FromFloat(f), nil
}

func mapElems(verb string, arr *model.Value, fn func(float64) float64) (*model.Value, error) {
	out := make([]*model.Value, len(arr.Elems))
	for i, e := range arr.Elems {
		f, ok := e.Float()
		if !ok {
			return nil, fmt.Errorf("%s: %w: element %d is %s", verb, ErrBadType, i, e.Type)
		}
		v, err := finite(verb, fn(f))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return model.NewArray(out...), nil
}

func mapStrings(verb string, arr *model.Value, fn func(string) string) (*model.Value, error) {
	out := make([]*model.Value, len(arr.Elems))
	for i, e := range arr.Elems {
		if e.Type != model.StringType {
			return nil, fmt.Errorf("%s: %w: element %d is %s", verb, ErrBadType, i, e.Type)
		}
		out[i] = model.FromString(fn(e.Str))
	}
	return model.NewArray(out...), nil
}

// stringElems retries an array/array combination as string concatenation
// when numeric pairing failed. Only "+" allows it.
func stringElems(verb string, strings bool, lhs, rhs *model.Value) (*model.Value, error) {
	if !strings {
		return nil, fmt.Errorf("%s: %w: arrays are not numeric", verb, ErrBadType)
	}
	out := make([]*model.Value, len(lhs.Elems))
	for i := range lhs.Elems {
		a, b := lhs.Elems[i], rhs.Elems[i]
		if a.Type != model.StringType || b.Type != model.StringType {
			return nil, fmt.Errorf("%s: %w: cannot combine %s and %s", verb, ErrBadType, a.Type, b.Type)
		}
		out[i] = model.FromString(a.Str + b.Str)
	}
	return model.NewArray(out...), nil
}

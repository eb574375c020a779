package query

import (
	"fmt"
	"math"

	"jsondb/internal/model"
)

// Backend is the store surface the evaluator mutates and reads through.
// Set must apply the value and record it durably as one atomic unit; it
// returns the previous value at key, or nil if the key was absent.
type Backend interface {
	Get(key string) (*model.Value, error)
	Set(key string, v *model.Value) (*model.Value, error)
}

type verbFunc func(arg *model.Value, db Backend) (*model.Value, error)

// verbs is the fixed dispatch table. Populated in init to break the
// reference cycle between the table and the recursive resolve step.
var verbs map[string]verbFunc

func init() {
	verbs = map[string]verbFunc{
		"set":   evalSet,
		"get":   evalGet,
		"sum":   aggregate("sum", aggSum),
		"avg":   aggregate("avg", aggAvg),
		"max":   extremal("max", func(a, b float64) bool { return a > b }),
		"min":   extremal("min", func(a, b float64) bool { return a < b }),
		"var":   aggregate("var", aggVar),
		"dev":   aggregate("dev", aggDev),
		"first": positional("first", 0),
		"last":  positional("last", -1),
		"+":     arithmetic("+", opAdd, true),
		"-":     arithmetic("-", opSub, false),
		"*":     arithmetic("*", opMul, false),
		"/":     arithmetic("/", opDiv, false),
	}
}

// Eval interprets cmd against db. cmd must be a JSON object with exactly
// one key naming a verb; the argument is evaluated recursively first when
// it is itself such an object. Errors never leave db in a partial state.
func Eval(cmd *model.Value, db Backend) (*model.Value, error) {
	verb, arg, err := splitCommand(cmd)
	if err != nil {
		return nil, err
	}
	return verbs[verb](arg, db)
}

// IsCommand reports whether v parses as a command: a single-key object
// whose key is a recognized verb. A literal object that happens to have
// this shape is indistinguishable from a command; that ambiguity is part
// of the grammar.
func IsCommand(v *model.Value) bool {
	if v == nil || v.Type != model.ObjectType || len(v.Keys) != 1 {
		return false
	}
	_, ok := verbs[v.Keys[0]]
	return ok
}

// SetCommand builds the {"set": [key, value]} form, shared by the engine
// when writing commit log records.
func SetCommand(key string, value *model.Value) *model.Value {
	obj := model.NewObject()
	obj.ObjectSet("set", model.NewArray(model.FromString(key), value))
	return obj
}

func splitCommand(cmd *model.Value) (string, *model.Value, error) {
	if cmd == nil || cmd.Type != model.ObjectType {
		return "", nil, fmt.Errorf("%w: not an object", ErrMalformedCommand)
	}
	if len(cmd.Keys) != 1 {
		return "", nil, fmt.Errorf("%w: object has %d keys, want 1", ErrMalformedCommand, len(cmd.Keys))
	}
	verb := cmd.Keys[0]
	if _, ok := verbs[verb]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownVerb, verb)
	}
	return verb, cmd.Fields[0], nil
}

// resolve evaluates arg when it is a nested command, otherwise returns it
// as a literal. This is the post-order step: arguments become plain values
// before the enclosing verb runs.
func resolve(arg *model.Value, db Backend) (*model.Value, error) {
	if IsCommand(arg) {
		return Eval(arg, db)
	}
	return arg, nil
}

func evalSet(arg *model.Value, db Backend) (*model.Value, error) {
	arg, err := resolve(arg, db)
	if err != nil {
		return nil, err
	}
	if arg == nil || arg.Type != model.ArrayType || len(arg.Elems) != 2 {
		return nil, fmt.Errorf("set: %w: want [key, value]", ErrArity)
	}
	if arg.Elems[0].Type != model.StringType {
		return nil, fmt.Errorf("set: %w: key must be a string", ErrArity)
	}
	value, err := resolve(arg.Elems[1], db)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = model.Null()
	}
	prev, err := db.Set(arg.Elems[0].Str, value)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return model.Null(), nil
	}
	return prev, nil
}

func evalGet(arg *model.Value, db Backend) (*model.Value, error) {
	arg, err := resolve(arg, db)
	if err != nil {
		return nil, err
	}
	if arg == nil || arg.Type != model.StringType {
		return nil, fmt.Errorf("get: %w: key must be a string", ErrArity)
	}
	v, err := db.Get(arg.Str)
	if err != nil {
		return nil, err
	}
	if v == nil {
		// Absent keys are not an error: null means "was not there".
		return model.Null(), nil
	}
	return v, nil
}

func aggregate(verb string, fn func(nums []float64, allInt bool) (*model.Value, error)) verbFunc {
	return func(arg *model.Value, db Backend) (*model.Value, error) {
		arg, err := resolve(arg, db)
		if err != nil {
			return nil, err
		}
		nums, allInt, err := numericElems(verb, arg)
		if err != nil {
			return nil, err
		}
		return fn(nums, allInt)
	}
}

// extremal builds max/min. Unlike the other aggregates these return a
// clone of the winning element itself, so an integer stays an integer.
func extremal(verb string, better func(a, b float64) bool) verbFunc {
	return func(arg *model.Value, db Backend) (*model.Value, error) {
		arg, err := resolve(arg, db)
		if err != nil {
			return nil, err
		}
		nums, _, err := numericElems(verb, arg)
		if err != nil {
			return nil, err
		}
		if len(nums) == 0 {
			return nil, fmt.Errorf("%s: %w", verb, ErrEmptyAggregate)
		}
		best := 0
		for i := 1; i < len(nums); i++ {
			if better(nums[i], nums[best]) {
				best = i
			}
		}
		return arg.Elems[best].Clone(), nil
	}
}

func numericElems(verb string, arg *model.Value) ([]float64, bool, error) {
	if arg == nil || arg.Type != model.ArrayType {
		return nil, false, fmt.Errorf("%s: %w", verb, ErrNotNumericArray)
	}
	nums := make([]float64, len(arg.Elems))
	allInt := true
	for i, e := range arg.Elems {
		f, ok := e.Float()
		if !ok {
			return nil, false, fmt.Errorf("%s: %w: element %d is %s", verb, ErrNotNumericArray, i, e.Type)
		}
		if e.Int64 == nil {
			allInt = false
		}
		nums[i] = f
	}
	return nums, allInt, nil
}

// aggSum: the sum of an empty array is 0. All-integer input yields an
// integer sum; any float element makes the result a float.
func aggSum(nums []float64, allInt bool) (*model.Value, error) {
	var total float64
	for _, f := range nums {
		total += f
	}
	if allInt {
		return model.FromInt(int64(total)), nil
	}
	return model.FromFloat(total), nil
}

// aggAvg: the mean of an empty array is undefined, so it is an error
// rather than a NaN smuggled through the wire.
func aggAvg(nums []float64, _ bool) (*model.Value, error) {
	if len(nums) == 0 {
		return nil, fmt.Errorf("avg: %w", ErrEmptyAggregate)
	}
	var total float64
	for _, f := range nums {
		total += f
	}
	return model.FromFloat(total / float64(len(nums))), nil
}

// variance is the population variance (divide by N): a single element has
// variance 0, an empty array has none at all.
func variance(nums []float64) (float64, error) {
	if len(nums) == 0 {
		return 0, ErrEmptyAggregate
	}
	var mean float64
	for _, f := range nums {
		mean += f
	}
	mean /= float64(len(nums))
	var sq float64
	for _, f := range nums {
		d := f - mean
		sq += d * d
	}
	return sq / float64(len(nums)), nil
}

func aggVar(nums []float64, _ bool) (*model.Value, error) {
	v, err := variance(nums)
	if err != nil {
		return nil, fmt.Errorf("var: %w", err)
	}
	return model.FromFloat(v), nil
}

func aggDev(nums []float64, _ bool) (*model.Value, error) {
	v, err := variance(nums)
	if err != nil {
		return nil, fmt.Errorf("dev: %w", err)
	}
	return model.FromFloat(math.Sqrt(v)), nil
}

func positional(verb string, pos int) verbFunc {
	return func(arg *model.Value, db Backend) (*model.Value, error) {
		arg, err := resolve(arg, db)
		if err != nil {
			return nil, err
		}
		if arg == nil || arg.Type != model.ArrayType {
			return nil, fmt.Errorf("%s: %w", verb, ErrNotArray)
		}
		if len(arg.Elems) == 0 {
			return nil, fmt.Errorf("%s: %w", verb, ErrEmptyAggregate)
		}
		i := pos
		if i < 0 {
			i = len(arg.Elems) - 1
		}
		return arg.Elems[i].Clone(), nil
	}
}

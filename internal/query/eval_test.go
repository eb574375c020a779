package query

import (
	"errors"
	"testing"

	"jsondb/internal/model"
)

// fakeBackend is a plain map with set/get, no durability.
type fakeBackend struct {
	data map[string]*model.Value
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string]*model.Value)}
}

func (f *fakeBackend) Get(key string) (*model.Value, error) {
	return f.data[key], nil
}

func (f *fakeBackend) Set(key string, v *model.Value) (*model.Value, error) {
	prev := f.data[key]
	f.data[key] = v
	return prev, nil
}

func eval(t *testing.T, db Backend, src string) (*model.Value, error) {
	t.Helper()
	cmd, err := model.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return Eval(cmd, db)
}

func evalOK(t *testing.T, db Backend, src string) *model.Value {
	t.Helper()
	v, err := eval(t, db, src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return v
}

func wantResult(t *testing.T, db Backend, src, want string) {
	t.Helper()
	if got := evalOK(t, db, src).String(); got != want {
		t.Errorf("eval %s = %s, want %s", src, got, want)
	}
}

func wantErr(t *testing.T, db Backend, src string, kind error) {
	t.Helper()
	_, err := eval(t, db, src)
	if !errors.Is(err, kind) {
		t.Errorf("eval %s: got error %v, want %v", src, err, kind)
	}
}

func TestSetReturnsPrevious(t *testing.T) {
	db := newFakeBackend()
	wantResult(t, db, `{"set": ["k1", 1]}`, `null`)
	wantResult(t, db, `{"get": "k1"}`, `1`)
	wantResult(t, db, `{"set": ["k1", "hello"]}`, `1`)
	wantResult(t, db, `{"get": "k1"}`, `"hello"`)
}

func TestGetMissingIsNull(t *testing.T) {
	wantResult(t, newFakeBackend(), `{"get": "missing"}`, `null`)
}

func TestAggregates(t *testing.T) {
	db := newFakeBackend()
	wantResult(t, db, `{"sum": [1,2,3,4]}`, `10`)
	wantResult(t, db, `{"avg": [1,2,3,4]}`, `2.5`)
	wantResult(t, db, `{"max": [1,2,3,4]}`, `4`)
	wantResult(t, db, `{"min": [1,2,3,4]}`, `1`)
	wantResult(t, db, `{"first": [1,2,3,4]}`, `1`)
	wantResult(t, db, `{"last": [1,2,3,4]}`, `4`)
}

func TestVarianceAndDeviationArePopulation(t *testing.T) {
	db := newFakeBackend()
	wantResult(t, db, `{"var": [2,4,4,4,5,5,7,9]}`, `4.0`)
	wantResult(t, db, `{"dev": [2,4,4,4,5,5,7,9]}`, `2.0`)
	// A single element deviates from its own mean by nothing.
	wantResult(t, db, `{"var": [42]}`, `0.0`)
}

func TestSumPreservesIntegers(t *testing.T) {
	db := newFakeBackend()
	wantResult(t, db, `{"sum": [1,2.5]}`, `3.5`)
	wantResult(t, db, `{"sum": []}`, `0`)
	wantResult(t, db, `{"sum": [1.0,2.0]}`, `3.0`)
}

func TestMaxMinPreserveElementForm(t *testing.T) {
	db := newFakeBackend()
	wantResult(t, db, `{"max": [1,2.5,2]}`, `2.5`)
	wantResult(t, db, `{"min": [1.0,2,3]}`, `1.0`)
}

func TestNestedEvaluation(t *testing.T) {
	db := newFakeBackend()
	evalOK(t, db, `{"set": ["k1", [1,2,3,4]]}`)
	wantResult(t, db, `{"max": {"get": "k1"}}`, `4`)
	wantResult(t, db, `{"sum": {"get": "k1"}}`, `10`)
	// Three levels: set the value produced by evaluating a get.
	evalOK(t, db, `{"set": ["k2", {"get": "k1"}]}`)
	wantResult(t, db, `{"get": "k2"}`, `[1,2,3,4]`)
}

func TestLiteralObjectValues(t *testing.T) {
	db := newFakeBackend()
	// A multi-key object is unambiguously a literal.
	evalOK(t, db, `{"set": ["obj", {"a":1,"b":2}]}`)
	wantResult(t, db, `{"get": "obj"}`, `{"a":1,"b":2}`)
	// A single-key object whose key is no verb is a literal too.
	evalOK(t, db, `{"set": ["one", {"a":1}]}`)
	wantResult(t, db, `{"get": "one"}`, `{"a":1}`)
}

func TestMalformedCommands(t *testing.T) {
	db := newFakeBackend()
	wantErr(t, db, `{}`, ErrMalformedCommand)
	wantErr(t, db, `{"foo":1,"bar":2}`, ErrMalformedCommand)
	wantErr(t, db, `[1,2,3]`, ErrMalformedCommand)
	wantErr(t, db, `"just a string"`, ErrMalformedCommand)
	wantErr(t, db, `42`, ErrMalformedCommand)
	wantErr(t, db, `null`, ErrMalformedCommand)
}

func TestUnknownVerb(t *testing.T) {
	wantErr(t, newFakeBackend(), `{"frobnicate": 1}`, ErrUnknownVerb)
}

func TestArityErrors(t *testing.T) {
	db := newFakeBackend()
	wantErr(t, db, `{"set": "k1"}`, ErrArity)
	wantErr(t, db, `{"set": ["k1"]}`, ErrArity)
	wantErr(t, db, `{"set": ["k1", 1, 2]}`, ErrArity)
	wantErr(t, db, `{"set": [1, "not a string key"]}`, ErrArity)
	wantErr(t, db, `{"get": 42}`, ErrArity)
	wantErr(t, db, `{"+": [1,2,3]}`, ErrArity)
}

func TestAggregateErrors(t *testing.T) {
	db := newFakeBackend()
	wantErr(t, db, `{"max": []}`, ErrEmptyAggregate)
	wantErr(t, db, `{"min": []}`, ErrEmptyAggregate)
	wantErr(t, db, `{"avg": []}`, ErrEmptyAggregate)
	wantErr(t, db, `{"var": []}`, ErrEmptyAggregate)
	wantErr(t, db, `{"first": []}`, ErrEmptyAggregate)
	wantErr(t, db, `{"last": []}`, ErrEmptyAggregate)
	wantErr(t, db, `{"sum": ["a","b"]}`, ErrNotNumericArray)
	wantErr(t, db, `{"max": [1,"mixed"]}`, ErrNotNumericArray)
	wantErr(t, db, `{"sum": "not an array"}`, ErrNotNumericArray)
	wantErr(t, db, `{"first": "not an array"}`, ErrNotArray)
	wantErr(t, db, `{"last": 42}`, ErrNotArray)
}

func TestNestedErrorPropagates(t *testing.T) {
	db := newFakeBackend()
	evalOK(t, db, `{"set": ["s", "hello"]}`)
	// The inner get succeeds; the outer aggregate rejects the value.
	wantErr(t, db, `{"max": {"get": "s"}}`, ErrNotNumericArray)
	// A single-key object whose key is no verb is a literal, so the outer
	// aggregate sees an object, not a failed nested command.
	wantErr(t, db, `{"max": {"frobnicate": 1}}`, ErrNotNumericArray)
	// The inner command fails; the outer verb never runs.
	wantErr(t, db, `{"max": {"get": 42}}`, ErrArity)
}

// arithFixture mirrors the store the original arithmetic behavior was
// specified against.
func arithFixture(t *testing.T) *fakeBackend {
	t.Helper()
	db := newFakeBackend()
	evalOK(t, db, `{"set": ["x", 4]}`)
	evalOK(t, db, `{"set": ["y", 5]}`)
	evalOK(t, db, `{"set": ["z", 2.0]}`)
	evalOK(t, db, `{"set": ["ia", [1,2,3,4,5]]}`)
	evalOK(t, db, `{"set": ["s", "hello"]}`)
	evalOK(t, db, `{"set": ["sa", ["a","b","c","d"]]}`)
	return db
}

func TestAdd(t *testing.T) {
	db := arithFixture(t)
	wantResult(t, db, `{"+": [{"get":"x"}, {"get":"y"}]}`, `9.0`)
	wantResult(t, db, `{"+": [{"get":"x"}, {"get":"ia"}]}`, `[5.0,6.0,7.0,8.0,9.0]`)
	wantResult(t, db, `{"+": [{"get":"ia"}, {"get":"y"}]}`, `[6.0,7.0,8.0,9.0,10.0]`)
	wantResult(t, db, `{"+": [{"get":"ia"}, {"get":"ia"}]}`, `[2.0,4.0,6.0,8.0,10.0]`)
	wantResult(t, db, `{"+": [{"get":"sa"}, {"get":"s"}]}`, `["ahello","bhello","chello","dhello"]`)
	wantResult(t, db, `{"+": [{"get":"s"}, {"get":"sa"}]}`, `["helloa","hellob","helloc","hellod"]`)
	wantResult(t, db, `{"+": [{"get":"s"}, {"get":"s"}]}`, `"hellohello"`)
	wantErr(t, db, `{"+": [{"get":"s"}, {"get":"x"}]}`, ErrBadType)
	wantErr(t, db, `{"+": [{"get":"x"}, {"get":"s"}]}`, ErrBadType)
}

func TestSub(t *testing.T) {
	db := arithFixture(t)
	wantResult(t, db, `{"-": [{"get":"x"}, {"get":"y"}]}`, `-1.0`)
	wantResult(t, db, `{"-": [{"get":"y"}, {"get":"x"}]}`, `1.0`)
	wantResult(t, db, `{"-": [{"get":"x"}, {"get":"ia"}]}`, `[3.0,2.0,1.0,0.0,-1.0]`)
	wantResult(t, db, `{"-": [{"get":"ia"}, {"get":"y"}]}`, `[-4.0,-3.0,-2.0,-1.0,0.0]`)
	wantResult(t, db, `{"-": [{"get":"ia"}, {"get":"ia"}]}`, `[0.0,0.0,0.0,0.0,0.0]`)
	wantErr(t, db, `{"-": [{"get":"s"}, {"get":"s"}]}`, ErrBadType)
	wantErr(t, db, `{"-": [{"get":"sa"}, {"get":"s"}]}`, ErrBadType)
}

func TestMul(t *testing.T) {
	db := arithFixture(t)
	wantResult(t, db, `{"*": [{"get":"x"}, {"get":"y"}]}`, `20.0`)
	wantResult(t, db, `{"*": [{"get":"ia"}, {"get":"y"}]}`, `[5.0,10.0,15.0,20.0,25.0]`)
	wantResult(t, db, `{"*": [{"get":"y"}, {"get":"ia"}]}`, `[5.0,10.0,15.0,20.0,25.0]`)
	wantResult(t, db, `{"*": [{"get":"ia"}, {"get":"ia"}]}`, `[1.0,4.0,9.0,16.0,25.0]`)
	wantErr(t, db, `{"*": [{"get":"s"}, {"get":"x"}]}`, ErrBadType)
}

func TestDiv(t *testing.T) {
	db := arithFixture(t)
	wantResult(t, db, `{"/": [{"get":"x"}, {"get":"x"}]}`, `1.0`)
	wantResult(t, db, `{"/": [{"get":"ia"}, {"get":"ia"}]}`, `[1.0,1.0,1.0,1.0,1.0]`)
	wantResult(t, db, `{"/": [{"get":"ia"}, {"get":"z"}]}`, `[0.5,1.0,1.5,2.0,2.5]`)
	wantResult(t, db, `{"/": [{"get":"z"}, {"get":"ia"}]}`, `[2.0,1.0,0.6666666666666666,0.5,0.4]`)
	wantErr(t, db, `{"/": [1, 0]}`, ErrBadType)
	wantErr(t, db, `{"/": [{"get":"s"}, {"get":"x"}]}`, ErrBadType)
}

func TestArithArrayLengthMismatch(t *testing.T) {
	wantErr(t, newFakeBackend(), `{"+": [[1,2], [1,2,3]]}`, ErrBadType)
}

func TestSetCommandShape(t *testing.T) {
	cmd := SetCommand("k", model.FromInt(7))
	if got := cmd.String(); got != `{"set":["k",7]}` {
		t.Fatalf("SetCommand rendered %s", got)
	}
	if !IsCommand(cmd) {
		t.Fatal("SetCommand output should parse as a command")
	}
}

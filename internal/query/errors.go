package query

import "errors"

// Evaluation failure categories. Verb implementations wrap these with
// context via fmt.Errorf and %w, so callers test with errors.Is.
var (
	// ErrMalformedCommand: the input is not a JSON object with exactly one key.
	ErrMalformedCommand = errors.New("malformed command")
	// ErrUnknownVerb: the single key is not in the verb table.
	ErrUnknownVerb = errors.New("unknown verb")
	// ErrArity: the argument does not have the shape the verb requires.
	ErrArity = errors.New("wrong argument shape")
	// ErrNotArray: a positional verb was given a non-array.
	ErrNotArray = errors.New("not an array")
	// ErrNotNumericArray: an aggregation verb was given something other than
	// an array of numbers.
	ErrNotNumericArray = errors.New("not a numeric array")
	// ErrEmptyAggregate: max/min/avg/var/dev/first/last on an empty array.
	ErrEmptyAggregate = errors.New("empty aggregate")
	// ErrBadType: operand types an arithmetic verb cannot combine, or a
	// non-finite arithmetic result.
	ErrBadType = errors.New("bad type")
)

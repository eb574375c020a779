package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Parse decodes exactly one JSON value from data. Trailing non-whitespace
// input is an error: the wire contract is one value per request.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := Decode(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// Decode reads the next JSON value from dec. The decoder must have
// UseNumber set so integer literals survive without a float round-trip.
func Decode(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return FromBool(t), nil
	case string:
		return FromString(t), nil
	case json.Number:
		return fromNumber(t)
	case json.Delim:
		switch t {
		case '[':
			arr := &Value{Type: ArrayType}
			for dec.More() {
				el, err := Decode(dec)
				if err != nil {
					return nil, err
				}
				arr.Elems = append(arr.Elems, el)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := &Value{Type: ObjectType}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				if _, dup := obj.ObjectGet(key); dup {
					return nil, fmt.Errorf("duplicate object key %q", key)
				}
				field, err := Decode(dec)
				if err != nil {
					return nil, err
				}
				obj.Keys = append(obj.Keys, key)
				obj.Fields = append(obj.Fields, field)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func fromNumber(n json.Number) (*Value, error) {
	if i, err := n.Int64(); err == nil {
		return FromInt(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("bad number %q: %w", n.String(), err)
	}
	return FromFloat(f), nil
}

// MarshalJSON serializes v in compact form, keeping object field order and
// the integer/float distinction.
func (v *Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil), nil
}

// AppendJSON appends the compact JSON form of v to dst.
func (v *Value) AppendJSON(dst []byte) []byte {
	if v == nil {
		return append(dst, "null"...)
	}
	switch v.Type {
	case NullType:
		return append(dst, "null"...)
	case BoolType:
		return strconv.AppendBool(dst, v.Bool)
	case NumberType:
		return append(dst, v.NumberString()...)
	case StringType:
		return appendQuoted(dst, v.Str)
	case ArrayType:
		dst = append(dst, '[')
		for i, e := range v.Elems {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = e.AppendJSON(dst)
		}
		return append(dst, ']')
	case ObjectType:
		dst = append(dst, '{')
		for i, k := range v.Keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendQuoted(dst, k)
			dst = append(dst, ':')
			dst = v.Fields[i].AppendJSON(dst)
		}
		return append(dst, '}')
	default:
		return append(dst, "null"...)
	}
}

// String renders v as compact JSON.
func (v *Value) String() string {
	return string(v.AppendJSON(nil))
}

func appendQuoted(dst []byte, s string) []byte {
	// encoding/json handles all escaping rules for strings.
	b, _ := json.Marshal(s)
	return append(dst, b...)
}

// formatFloat renders f so that it re-parses as a float: integral values
// keep a trailing ".0" instead of collapsing to an integer literal.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

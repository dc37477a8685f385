// Package fields converts raw attribute strings into typed values.
//
// Every output column has a fixed type. Conversion is strict: a value that
// does not parse as its declared type, or a field without a declared type,
// fails the whole conversion.
package fields

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Type int

const (
	String Type = iota
	Int
	Float
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Types maps each known field name to its type.
var Types = map[string]Type{
	"id":        Int,
	"lat":       Float,
	"lon":       Float,
	"user":      String,
	"uid":       Int,
	"version":   Int,
	"changeset": Int,
	"timestamp": String,
	"key":       String,
	"value":     String,
	"type":      String,
	"node_id":   Int,
	"position":  Int,
}

// Raw maps field names to raw values. A nil value marks an absent attribute.
type Raw map[string]*string

// Values maps field names to converted values: string, int64 or float64.
type Values map[string]interface{}

// Str returns a pointer to s, for building Raw maps.
func Str(s string) *string {
	return &s
}

// ConversionError is returned if a field is unknown or if its value
// cannot be converted to the declared type.
type ConversionError struct {
	Field string
	// Value is nil if the attribute was absent.
	Value *string
	Type  Type
	Err   error
}

func (e *ConversionError) Error() string {
	if e.Err == errUnknownField {
		return fmt.Sprintf("field %q: %s", e.Field, e.Err)
	}
	if e.Value == nil {
		return fmt.Sprintf("field %q: missing %s value", e.Field, e.Type)
	}
	return fmt.Sprintf("field %q: cannot convert %q to %s: %s", e.Field, *e.Value, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

var errUnknownField = errors.New("unknown field")

// Convert converts all fields of raw. Absent string fields convert to the
// empty string, absent numeric fields are an error.
func Convert(raw Raw) (Values, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	// stable error reporting for rows with more than one bad field
	sort.Strings(names)

	converted := make(Values, len(raw))
	for _, name := range names {
		v := raw[name]
		typ, ok := Types[name]
		if !ok {
			return nil, &ConversionError{Field: name, Value: v, Err: errUnknownField}
		}
		switch typ {
		case String:
			if v == nil {
				converted[name] = ""
			} else {
				converted[name] = *v
			}
		case Int:
			if v == nil {
				return nil, &ConversionError{Field: name, Type: typ}
			}
			i, err := strconv.ParseInt(strings.TrimSpace(*v), 10, 64)
			if err != nil {
				return nil, &ConversionError{Field: name, Value: v, Type: typ, Err: err}
			}
			converted[name] = i
		case Float:
			if v == nil {
				return nil, &ConversionError{Field: name, Type: typ}
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
			if err != nil {
				return nil, &ConversionError{Field: name, Value: v, Type: typ, Err: err}
			}
			converted[name] = f
		}
	}
	return converted, nil
}

// The accessors below expect values produced by Convert and return the zero
// value for missing fields.

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int64 {
	i, _ := v[name].(int64)
	return i
}

func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

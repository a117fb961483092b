/*
Copyright 2026 The Aidb Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package types defines the column data types and row values shared across
// the codec, schema, planner and executor packages.
package types

import "fmt"

// DataType is the declared type of a table column.
type DataType uint8

const (
	Integer DataType = 1
	Real    DataType = 2
	Text    DataType = 3
)

func (d DataType) String() string {
	switch d {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the known data types.
func (d DataType) Valid() bool {
	switch d {
	case Integer, Real, Text:
		return true
	default:
		return false
	}
}

// Kind distinguishes the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
)

// Value is a tagged union over the column value types: Null, Integer, Real
// or Text. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	r    float64
	s    string
}

// Null is the null value.
var Null = Value{kind: KindNull}

// NewInteger wraps an int64 as an Integer value.
func NewInteger(v int64) Value { return Value{kind: KindInteger, i: v} }

// NewReal wraps a float64 as a Real value.
func NewReal(v float64) Value { return Value{kind: KindReal, r: v} }

// NewText wraps a string as a Text value.
func NewText(v string) Value { return Value{kind: KindText, s: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Integer returns the wrapped int64; valid only when Kind() == KindInteger.
func (v Value) Integer() int64 { return v.i }

// Real returns the wrapped float64; valid only when Kind() == KindReal.
func (v Value) Real() float64 { return v.r }

// Text returns the wrapped string; valid only when Kind() == KindText.
func (v Value) Text() string { return v.s }

// DataType returns the value's data type, or (_, false) for Null.
func (v Value) DataType() (DataType, bool) {
	switch v.kind {
	case KindInteger:
		return Integer, true
	case KindReal:
		return Real, true
	case KindText:
		return Text, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindReal:
		return fmt.Sprintf("%g", v.r)
	case KindText:
		return fmt.Sprintf("%q", v.s)
	default:
		return "?"
	}
}

// Equal implements type-respecting equality. Null is never equal to Null,
// per SQL's three-valued logic: Selection predicates treat any comparison
// involving Null as not matching.
func (v Value) Equal(other Value) bool {
	if v.kind == KindNull || other.kind == KindNull {
		return false
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == other.i
	case KindReal:
		return v.r == other.r
	case KindText:
		return v.s == other.s
	default:
		return false
	}
}

// LessEqual reports whether v <= other under the natural ordering of
// their shared type. A Null on either side, or a type mismatch, is never
// less-equal, matching Equal's three-valued-logic treatment of Null.
func (v Value) LessEqual(other Value) bool {
	if v.kind == KindNull || other.kind == KindNull {
		return false
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i <= other.i
	case KindReal:
		return v.r <= other.r
	case KindText:
		return v.s <= other.s
	default:
		return false
	}
}

// DefaultValue returns the zero value for d (0, 0.0 or "").
func (d DataType) DefaultValue() Value {
	switch d {
	case Integer:
		return NewInteger(0)
	case Real:
		return NewReal(0)
	case Text:
		return NewText("")
	default:
		return Null
	}
}

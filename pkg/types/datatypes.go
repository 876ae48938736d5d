package types

import (
	"errors"
	"fmt"
)

// DataType is a primitive column type. Its numeric value is the on-disk type id.
type DataType uint8

const (
	TextType DataType = iota
	BooleanType
	DateType
	TimestampType
	BigintType
	IntegerType
	SmallintType
	TinyintType
	RealType
)

// VariableWidth is returned by Width for types without a fixed storage width.
const VariableWidth = -1

var ErrUnknownType = errors.New("unknown type id")

var typeNames = [...]string{
	"Text", "Boolean", "Date", "Timestamp",
	"Bigint", "Integer", "Smallint", "Tinyint", "Real",
}

var typeWidths = [...]int{
	VariableWidth, 1, 4, 8, 8, 4, 2, 1, 4,
}

func (d DataType) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DataType(%d)", uint8(d))
	}
	return typeNames[d]
}

// Valid reports whether d belongs to the fixed catalog.
func (d DataType) Valid() bool {
	return int(d) < len(typeNames)
}

// Width returns the fixed storage width in bytes, or VariableWidth for text.
func (d DataType) Width() int {
	if !d.Valid() {
		return VariableWidth
	}
	return typeWidths[d]
}

// FixedWidth reports whether values of d occupy a constant number of bytes.
func (d DataType) FixedWidth() bool {
	return d.Width() != VariableWidth
}

// IntegerFamily reports whether min/max statistics for d are raw 64-bit integers.
func (d DataType) IntegerFamily() bool {
	switch d {
	case BooleanType, DateType, TimestampType, BigintType, IntegerType, SmallintType, TinyintType:
		return true
	}
	return false
}

// IDOf returns the on-disk id of d.
func IDOf(d DataType) (byte, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownType, uint8(d))
	}
	return byte(d), nil
}

// TypeOf is the inverse of IDOf. Unknown ids are an error.
func TypeOf(id byte) (DataType, error) {
	d := DataType(id)
	if !d.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return d, nil
}

// AllTypes returns the catalog in id order.
func AllTypes() []DataType {
	out := make([]DataType, len(typeNames))
	for i := range out {
		out[i] = DataType(i)
	}
	return out
}

type Column struct {
	Name string
	Type DataType
	// EnumValues is the sorted file-scoped dictionary of a bounded-cardinality
	// text column. Nil for every other column.
	EnumValues []string
}

// HasEnum reports whether the column is encoded through its enum dictionary.
func (c Column) HasEnum() bool {
	return c.Type == TextType && len(c.EnumValues) > 0
}

type Schema struct {
	Columns []Column
}

// NumColumns returns the number of columns.
func (s Schema) NumColumns() int {
	return len(s.Columns)
}

// Types returns the column types in declaration order.
func (s Schema) Types() []DataType {
	out := make([]DataType, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Type
	}
	return out
}

// EnumValues returns the per-column enum dictionaries, nil where absent.
func (s Schema) EnumValues() [][]string {
	out := make([][]string, len(s.Columns))
	for i, c := range s.Columns {
		if c.HasEnum() {
			out[i] = c.EnumValues
		}
	}
	return out
}

// NullableValue is one decoded cell. Value holds int64 for integer-family
// columns (days for DATE, milliseconds for TIMESTAMP), bool for BOOLEAN,
// float32 for REAL and string for TEXT.
type NullableValue struct {
	Value interface{}
	Valid bool
}

// Null is the decoded form of a null cell.
var Null = NullableValue{}

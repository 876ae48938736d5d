package schema

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// MaxColumns is bounded by the single-byte column count in the file header.
const MaxColumns = math.MaxUint8

// MaxEnumValues is bounded by the signed 2-byte enum count and index.
const MaxEnumValues = math.MaxInt16

var (
	ErrEmptySchema     = errors.New("schema must have at least one column")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrTooManyColumns  = errors.New("too many columns")
	ErrInvalidEnum     = errors.New("invalid enum dictionary")
	ErrColumnNotFound  = errors.New("column not found")
)

type ColumnSchema struct {
	Name       string         `json:"name" yaml:"name"`
	Type       types.DataType `json:"type" yaml:"type"`
	EnumValues []string       `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
}

type FileSchema struct {
	Columns []ColumnSchema `json:"columns" yaml:"columns"`
}

func New() *FileSchema {
	return &FileSchema{
		Columns: make([]ColumnSchema, 0),
	}
}

func (s *FileSchema) AddColumn(name string, dataType types.DataType) error {
	if !dataType.Valid() {
		return fmt.Errorf("column %s: %w", name, types.ErrUnknownType)
	}
	if err := s.checkName(name); err != nil {
		return err
	}

	s.Columns = append(s.Columns, ColumnSchema{
		Name: name,
		Type: dataType,
	})
	return nil
}

// AddEnumColumn adds a text column whose values are drawn from a bounded set.
// The set is deduplicated and sorted before it is stored.
func (s *FileSchema) AddEnumColumn(name string, values []string) error {
	if err := s.checkName(name); err != nil {
		return err
	}
	sorted, err := normalizeEnum(values)
	if err != nil {
		return fmt.Errorf("column %s: %w", name, err)
	}

	s.Columns = append(s.Columns, ColumnSchema{
		Name:       name,
		Type:       types.TextType,
		EnumValues: sorted,
	})
	return nil
}

func (s *FileSchema) checkName(name string) error {
	for _, col := range s.Columns {
		if col.Name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
	}
	if len(s.Columns) >= MaxColumns {
		return fmt.Errorf("%w: limit is %d", ErrTooManyColumns, MaxColumns)
	}
	return nil
}

// GetColumn returns the position and definition of the named column.
func (s *FileSchema) GetColumn(name string) (int, *ColumnSchema, error) {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return i, &s.Columns[i], nil
		}
	}
	return -1, nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

func (s *FileSchema) Validate() error {
	return Validate(s.ToSchema())
}

// Validate checks a schema against the limits of the on-disk format.
func Validate(s types.Schema) error {
	if len(s.Columns) == 0 {
		return ErrEmptySchema
	}
	if len(s.Columns) > MaxColumns {
		return fmt.Errorf("%w: %d > %d", ErrTooManyColumns, len(s.Columns), MaxColumns)
	}

	names := make(map[string]bool)
	for _, col := range s.Columns {
		if names[col.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		names[col.Name] = true

		if !col.Type.Valid() {
			return fmt.Errorf("column %s: %w", col.Name, types.ErrUnknownType)
		}
		if len(col.Name) > math.MaxUint16 {
			return fmt.Errorf("column name too long: %d bytes", len(col.Name))
		}
		if len(col.EnumValues) == 0 {
			continue
		}
		if col.Type != types.TextType {
			return fmt.Errorf("column %s: %w: enum on %s column", col.Name, ErrInvalidEnum, col.Type)
		}
		if len(col.EnumValues) > MaxEnumValues {
			return fmt.Errorf("column %s: %w: %d values", col.Name, ErrInvalidEnum, len(col.EnumValues))
		}
		if !sort.StringsAreSorted(col.EnumValues) {
			return fmt.Errorf("column %s: %w: values not sorted", col.Name, ErrInvalidEnum)
		}
	}

	return nil
}

func normalizeEnum(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values", ErrInvalidEnum)
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if len(v) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: value of %d bytes", ErrInvalidEnum, len(v))
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) > MaxEnumValues {
		return nil, fmt.Errorf("%w: %d values", ErrInvalidEnum, len(out))
	}
	sort.Strings(out)
	return out, nil
}

// Convert to/from types.Schema
func (s *FileSchema) ToSchema() types.Schema {
	columns := make([]types.Column, len(s.Columns))
	for i, col := range s.Columns {
		columns[i] = types.Column{
			Name:       col.Name,
			Type:       col.Type,
			EnumValues: col.EnumValues,
		}
	}
	return types.Schema{Columns: columns}
}

func FromSchema(schema types.Schema) *FileSchema {
	fs := New()
	for _, col := range schema.Columns {
		fs.Columns = append(fs.Columns, ColumnSchema{
			Name:       col.Name,
			Type:       col.Type,
			EnumValues: col.EnumValues,
		})
	}
	return fs
}

package encoding

import (
	"fmt"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// FileHeader is everything that precedes the first row group.
type FileHeader struct {
	Version        uint8
	MetadataOffset uint32
	Schema         types.Schema
}

// WriteHeader writes magic, version, a zero metadata pointer, the column
// catalog and the enum dictionaries.
func WriteHeader(e *Encoder, schema types.Schema) error {
	e.WriteBytes(Magic[:])
	e.WriteU8(Version)
	e.WriteU32(0)

	e.WriteU8(uint8(len(schema.Columns)))
	for _, col := range schema.Columns {
		id, err := types.IDOf(col.Type)
		if err != nil {
			return fmt.Errorf("column %s: %w", col.Name, err)
		}
		e.WriteU8(id)
	}
	for _, col := range schema.Columns {
		e.WriteString(col.Name)
	}
	for _, col := range schema.Columns {
		if !col.HasEnum() {
			e.WriteU16(0)
			continue
		}
		e.WriteU16(uint16(len(col.EnumValues)))
		for _, v := range col.EnumValues {
			e.WriteString(v)
		}
	}

	if err := e.Err(); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// ReadHeader parses the header from the start of s.
func ReadHeader(s *kaitai.Stream) (FileHeader, error) {
	var h FileHeader

	magic, err := s.ReadBytes(len(Magic))
	if err != nil {
		return h, Errorf(0, err, "magic")
	}
	if string(magic) != string(Magic[:]) {
		return h, Errorf(0, ErrInvalidMagic, "got %q", magic)
	}

	if h.Version, err = s.ReadU1(); err != nil {
		return h, Errorf(4, err, "version")
	}
	if h.Version != Version {
		return h, Errorf(4, ErrUnsupportedVersion, "version %d", h.Version)
	}

	if h.MetadataOffset, err = s.ReadU4be(); err != nil {
		return h, Errorf(MetadataPointerOffset, err, "metadata pointer")
	}

	count, err := s.ReadU1()
	if err != nil {
		return h, Errorf(pos(s), err, "column count")
	}

	columns := make([]types.Column, count)
	for i := range columns {
		id, err := s.ReadU1()
		if err != nil {
			return h, Errorf(pos(s), err, "type of column %d", i)
		}
		if columns[i].Type, err = types.TypeOf(id); err != nil {
			return h, Errorf(pos(s)-1, err, "type of column %d", i)
		}
	}
	for i := range columns {
		if columns[i].Name, err = ReadString(s); err != nil {
			return h, Errorf(pos(s), err, "name of column %d", i)
		}
	}
	for i := range columns {
		n, err := s.ReadS2be()
		if err != nil {
			return h, Errorf(pos(s), err, "enum count of column %d", i)
		}
		if n < 0 {
			return h, Errorf(pos(s)-2, nil, "negative enum count %d for column %d", n, i)
		}
		if n == 0 {
			continue
		}
		values := make([]string, n)
		for j := range values {
			if values[j], err = ReadString(s); err != nil {
				return h, Errorf(pos(s), err, "enum value %d of column %d", j, i)
			}
		}
		columns[i].EnumValues = values
	}

	h.Schema = types.Schema{Columns: columns}
	return h, nil
}

// ReadString reads a 2-byte length-prefixed UTF-8 string.
func ReadString(s *kaitai.Stream) (string, error) {
	n, err := s.ReadU2be()
	if err != nil {
		return "", err
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func pos(s *kaitai.Stream) int64 {
	p, _ := s.Pos()
	return p
}

package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/ivan-cunha/aspic-format/internal/encoding"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// WriteRecord writes s in the on-disk statistics layout. Text min/max values
// are stored as indexes into a string table that precedes the columns.
func WriteRecord(e *encoding.Encoder, s Stats, columnTypes []types.DataType) error {
	if s.NumColumns() != len(columnTypes) {
		return fmt.Errorf("stats have %d columns, schema has %d", s.NumColumns(), len(columnTypes))
	}

	table := stringTable(s, columnTypes)
	index := make(map[string]int64, len(table))
	size := 2
	for i, str := range table {
		index[str] = int64(i)
		size += encoding.StringSize(str)
	}
	if size > math.MaxUint16 {
		// readers walk the table by count; the size field is advisory
		size = math.MaxUint16
	}

	e.WriteI32(int32(s.Rows()))
	e.WriteU16(uint16(size))
	e.WriteU16(uint16(len(table)))
	for _, str := range table {
		e.WriteString(str)
	}

	for col, dt := range columnTypes {
		e.WriteI32(int32(s.Nulls(col)))
		e.WriteI32(int32(s.Unique(col)))
		switch {
		case dt == types.TextType:
			e.WriteI64(index[s.MinString(col)])
			e.WriteI64(index[s.MaxString(col)])
		case dt == types.RealType:
			e.WriteI64(int64(int32(math.Float32bits(s.MinFloat(col)))))
			e.WriteI64(int64(int32(math.Float32bits(s.MaxFloat(col)))))
		case dt.IntegerFamily():
			e.WriteI64(s.MinLong(col))
			e.WriteI64(s.MaxLong(col))
		default:
			return fmt.Errorf("column %d: %w", col, types.ErrUnknownType)
		}
	}
	return e.Err()
}

// ReadRecord decodes one statistics record from s.
func ReadRecord(s *kaitai.Stream, columnTypes []types.DataType) (*Snapshot, error) {
	start, _ := s.Pos()

	rows, err := s.ReadS4be()
	if err != nil {
		return nil, encoding.Errorf(start, err, "stats row count")
	}
	if _, err := s.ReadU2be(); err != nil {
		return nil, encoding.Errorf(start, err, "stats string table size")
	}
	count, err := s.ReadU2be()
	if err != nil {
		return nil, encoding.Errorf(start, err, "stats string count")
	}
	table := make([]string, count)
	for i := range table {
		if table[i], err = encoding.ReadString(s); err != nil {
			return nil, encoding.Errorf(start, err, "stats string %d", i)
		}
	}
	lookup := func(ref int64, col int) (string, error) {
		if ref < 0 || ref >= int64(len(table)) {
			return "", encoding.Errorf(start, nil, "column %d: string reference %d out of range", col, ref)
		}
		return table[ref], nil
	}

	columns := make([]ColumnStats, len(columnTypes))
	for col, dt := range columnTypes {
		nulls, err := s.ReadS4be()
		if err != nil {
			return nil, encoding.Errorf(start, err, "column %d nulls", col)
		}
		unique, err := s.ReadS4be()
		if err != nil {
			return nil, encoding.Errorf(start, err, "column %d unique", col)
		}
		minRef, err := s.ReadS8be()
		if err != nil {
			return nil, encoding.Errorf(start, err, "column %d min", col)
		}
		maxRef, err := s.ReadS8be()
		if err != nil {
			return nil, encoding.Errorf(start, err, "column %d max", col)
		}

		cs := ColumnStats{
			Nulls:    int(nulls),
			Unique:   int(unique),
			MinLong:  math.MaxInt64,
			MaxLong:  math.MinInt64,
			MinFloat: InitialMinFloat,
			MaxFloat: InitialMaxFloat,
		}
		switch {
		case dt == types.TextType:
			if cs.MinString, err = lookup(minRef, col); err != nil {
				return nil, err
			}
			if cs.MaxString, err = lookup(maxRef, col); err != nil {
				return nil, err
			}
		case dt == types.RealType:
			cs.MinFloat = math.Float32frombits(uint32(minRef))
			cs.MaxFloat = math.Float32frombits(uint32(maxRef))
		case dt.IntegerFamily():
			cs.MinLong, cs.MaxLong = minRef, maxRef
		default:
			return nil, encoding.Errorf(start, types.ErrUnknownType, "column %d", col)
		}
		columns[col] = cs
	}

	return NewSnapshot(int(rows), columns), nil
}

func stringTable(s Stats, columnTypes []types.DataType) []string {
	seen := make(map[string]struct{})
	for col, dt := range columnTypes {
		if dt != types.TextType {
			continue
		}
		seen[s.MinString(col)] = struct{}{}
		seen[s.MaxString(col)] = struct{}{}
	}
	table := make([]string, 0, len(seen))
	for str := range seen {
		table = append(table, str)
	}
	sort.Strings(table)
	return table
}

package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/encoding"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// rowGroupPrefix is the two int32 lengths stored ahead of the compressed bytes.
const rowGroupPrefix = 8

// RowGroupDecoder gives random access to the rows of one row group. It owns
// a row cursor, so it must not be shared between goroutines; open one
// decoder per goroutine instead.
type RowGroupDecoder struct {
	schema     types.Schema
	layouts    []ColumnLayout
	offsets    []columnOffset
	rowStarts  []uint32
	data       []byte
	bitmapSize int

	rawLength        int
	onceLength       int
	compressedLength int

	gen   uint64
	start int
	nulls *bitset.BitSet
	shift []int
}

// DecodeRowGroup reverses both compression stages of a stored row group and
// parses its metadata. block starts at the row group's length prefix.
func DecodeRowGroup(block []byte, schema types.Schema, pipeline compression.Pipeline) (*RowGroupDecoder, error) {
	if len(block) < rowGroupPrefix {
		return nil, encoding.Errorf(0, encoding.ErrTruncated, "row group shorter than its length prefix")
	}
	b := compression.Block{
		RawLength:  int(int32(binary.BigEndian.Uint32(block[0:4]))),
		OnceLength: int(int32(binary.BigEndian.Uint32(block[4:8]))),
		Data:       block[rowGroupPrefix:],
	}
	if b.RawLength < 4 || b.OnceLength < 0 {
		return nil, encoding.Errorf(0, nil, "invalid row group lengths raw=%d once=%d", b.RawLength, b.OnceLength)
	}
	raw, err := pipeline.Decompress(b)
	if err != nil {
		return nil, encoding.Errorf(rowGroupPrefix, err, "decompress row group")
	}

	d := &RowGroupDecoder{
		schema:     schema,
		bitmapSize: nullBitmapSize(schema.NumColumns()),
		nulls:      bitset.New(uint(schema.NumColumns())),
		shift:      make([]int, schema.NumColumns()),

		rawLength:        b.RawLength,
		onceLength:       b.OnceLength,
		compressedLength: len(b.Data),
	}
	if err := d.parse(raw); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *RowGroupDecoder) parse(raw []byte) error {
	n := d.schema.NumColumns()
	s := kaitai.NewStream(bytes.NewReader(raw))

	rows, err := s.ReadS4be()
	if err != nil {
		return encoding.Errorf(0, err, "row count")
	}
	if rows < 0 || int64(rows)*4 > int64(len(raw)) {
		return encoding.Errorf(0, nil, "invalid row count %d", rows)
	}
	d.rowStarts = make([]uint32, rows)
	for i := range d.rowStarts {
		if d.rowStarts[i], err = s.ReadU4be(); err != nil {
			return encoding.Errorf(pos(s), err, "offset of row %d", i)
		}
	}

	if _, err := s.ReadBytes(n); err != nil {
		return encoding.Errorf(pos(s), err, "column order")
	}

	d.layouts = make([]ColumnLayout, n)
	for col, column := range d.schema.Columns {
		size, err := s.ReadU1()
		if err != nil {
			return encoding.Errorf(pos(s), err, "dictionary size of column %d", col)
		}
		var dict []int64
		if size > 0 {
			if !fixedLength(column) {
				return encoding.Errorf(pos(s)-1, nil, "dictionary on free text column %d", col)
			}
			dict = make([]int64, size)
			for i := range dict {
				if dict[i], err = s.ReadS8be(); err != nil {
					return encoding.Errorf(pos(s), err, "dictionary entry %d of column %d", i, col)
				}
			}
		}
		d.layouts[col] = layoutFor(column, dict)
	}
	d.offsets = resolveOffsets(d.layouts)

	start := pos(s)
	d.data = raw[start:]
	for i, off := range d.rowStarts {
		if int64(off)+int64(d.bitmapSize) > int64(len(d.data)) {
			return encoding.Errorf(start, nil, "row %d starts at %d beyond %d data bytes", i, off, len(d.data))
		}
	}
	return nil
}

func pos(s *kaitai.Stream) int64 {
	p, _ := s.Pos()
	return p
}

func (d *RowGroupDecoder) NumRows() int         { return len(d.rowStarts) }
func (d *RowGroupDecoder) Schema() types.Schema { return d.schema }

// RawLength and OnceLength are the block sizes before and after the first
// compression stage; CompressedLength is the stored size.
func (d *RowGroupDecoder) RawLength() int        { return d.rawLength }
func (d *RowGroupDecoder) OnceLength() int       { return d.onceLength }
func (d *RowGroupDecoder) CompressedLength() int { return d.compressedLength }

// Layout returns the encoding chosen for col in this row group.
func (d *RowGroupDecoder) Layout(col int) ColumnLayout { return d.layouts[col] }

// Addressable reports whether the direct accessors can reach col.
func (d *RowGroupDecoder) Addressable(col int) bool {
	return col >= 0 && col < len(d.offsets) && d.offsets[col].Fixed
}

// SelectRow moves the cursor to row i. Views returned by earlier calls stop
// working.
func (d *RowGroupDecoder) SelectRow(i int) (RowView, error) {
	if i < 0 || i >= len(d.rowStarts) {
		return RowView{}, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(d.rowStarts))
	}
	d.gen++

	p := int(d.rowStarts[i])
	bitmap := d.data[p : p+d.bitmapSize]
	d.nulls.ClearAll()
	for col := 0; col < d.schema.NumColumns(); col++ {
		if bitmap[col/8]>>(col%8)&1 == 1 {
			d.nulls.Set(uint(col))
		}
	}
	d.start = p + d.bitmapSize

	// Null columns take no bytes, so later fixed offsets move back by
	// their widths.
	skipped := 0
	for col, off := range d.offsets {
		if !off.Fixed {
			break
		}
		d.shift[col] = skipped
		if d.nulls.Test(uint(col)) {
			skipped += d.layouts[col].Width()
		}
	}

	return RowView{d: d, gen: d.gen, row: i}, nil
}

func (d *RowGroupDecoder) slice(p, n int) ([]byte, error) {
	if p < 0 || n < 0 || p+n > len(d.data) {
		return nil, encoding.Errorf(int64(p), encoding.ErrTruncated, "read of %d bytes past row data", n)
	}
	return d.data[p : p+n], nil
}

// readNumeric decodes a non-text value at p. REAL values come back as
// sign-extended float bits.
func (d *RowGroupDecoder) readNumeric(col, p int) (int64, int, error) {
	l := d.layouts[col]
	if l.Encoding == EncodingDictionary {
		b, err := d.slice(p, 1)
		if err != nil {
			return 0, 0, err
		}
		idx := int(b[0])
		if idx >= len(l.Dictionary) {
			return 0, 0, encoding.Errorf(int64(p), nil, "dictionary index %d of column %d out of range", idx, col)
		}
		return l.Dictionary[idx], p + 1, nil
	}

	w := l.Width()
	b, err := d.slice(p, w)
	if err != nil {
		return 0, 0, err
	}
	switch w {
	case 1:
		return int64(int8(b[0])), p + 1, nil
	case 2:
		return int64(int16(binary.BigEndian.Uint16(b))), p + 2, nil
	case 4:
		return int64(int32(binary.BigEndian.Uint32(b))), p + 4, nil
	case 8:
		return int64(binary.BigEndian.Uint64(b)), p + 8, nil
	}
	return 0, 0, fmt.Errorf("column %d: unexpected width %d", col, w)
}

func (d *RowGroupDecoder) readText(col, p int) (string, int, error) {
	l := d.layouts[col]
	if l.Encoding == EncodingText {
		b, err := d.slice(p, 2)
		if err != nil {
			return "", 0, err
		}
		n := int(binary.BigEndian.Uint16(b))
		s, err := d.slice(p+2, n)
		if err != nil {
			return "", 0, err
		}
		return string(s), p + 2 + n, nil
	}

	var (
		id   int64
		next int
	)
	if l.Encoding == EncodingEnum {
		b, err := d.slice(p, 2)
		if err != nil {
			return "", 0, err
		}
		id, next = int64(binary.BigEndian.Uint16(b)), p+2
	} else {
		var err error
		if id, next, err = d.readNumeric(col, p); err != nil {
			return "", 0, err
		}
	}
	values := d.schema.Columns[col].EnumValues
	if id < 0 || id >= int64(len(values)) {
		return "", 0, encoding.Errorf(int64(p), nil, "enum id %d of column %d out of range", id, col)
	}
	return values[id], next, nil
}

func (d *RowGroupDecoder) readValue(col, p int) (interface{}, int, error) {
	dt := d.layouts[col].Type
	if dt == types.TextType {
		return d.readText(col, p)
	}
	v, next, err := d.readNumeric(col, p)
	if err != nil {
		return nil, 0, err
	}
	switch dt {
	case types.BooleanType:
		return v != 0, next, nil
	case types.RealType:
		return bitsFloat(v), next, nil
	}
	return v, next, nil
}

// RowView reads the row chosen by SelectRow. It is valid until the next
// SelectRow on the same decoder; after that every method returns
// ErrStaleRow.
type RowView struct {
	d   *RowGroupDecoder
	gen uint64
	row int
}

func (v RowView) Row() int { return v.row }

func (v RowView) check(col int) error {
	if v.d == nil || v.gen != v.d.gen {
		return ErrStaleRow
	}
	if col < 0 || col >= v.d.schema.NumColumns() {
		return fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	return nil
}

func (v RowView) IsNull(col int) (bool, error) {
	if err := v.check(col); err != nil {
		return false, err
	}
	return v.d.nulls.Test(uint(col)), nil
}

// locate returns the byte position of col using its fixed offset.
func (v RowView) locate(col int, accept func(types.DataType) bool) (int, error) {
	if err := v.check(col); err != nil {
		return 0, err
	}
	d := v.d
	if !accept(d.layouts[col].Type) {
		return 0, fmt.Errorf("%w: column %d is %s", ErrTypeMismatch, col, d.layouts[col].Type)
	}
	off := d.offsets[col]
	if !off.Fixed {
		return 0, &AddressError{Column: col, Reason: "follows a variable-width column"}
	}
	if d.nulls.Test(uint(col)) {
		return 0, fmt.Errorf("column %d: %w", col, ErrNullCell)
	}
	return d.start + off.Offset - d.shift[col], nil
}

func isType(want ...types.DataType) func(types.DataType) bool {
	return func(dt types.DataType) bool {
		for _, w := range want {
			if dt == w {
				return true
			}
		}
		return false
	}
}

// Long reads an integer-family column: BOOLEAN as 0/1, DATE as days and
// TIMESTAMP as milliseconds since the epoch.
func (v RowView) Long(col int) (int64, error) {
	p, err := v.locate(col, types.DataType.IntegerFamily)
	if err != nil {
		return 0, err
	}
	n, _, err := v.d.readNumeric(col, p)
	return n, err
}

func (v RowView) Float(col int) (float32, error) {
	p, err := v.locate(col, isType(types.RealType))
	if err != nil {
		return 0, err
	}
	n, _, err := v.d.readNumeric(col, p)
	return bitsFloat(n), err
}

func (v RowView) Bool(col int) (bool, error) {
	p, err := v.locate(col, isType(types.BooleanType))
	if err != nil {
		return false, err
	}
	n, _, err := v.d.readNumeric(col, p)
	return n != 0, err
}

func (v RowView) Text(col int) (string, error) {
	p, err := v.locate(col, isType(types.TextType))
	if err != nil {
		return "", err
	}
	s, _, err := v.d.readText(col, p)
	return s, err
}

// Time reads a DATE or TIMESTAMP column as UTC.
func (v RowView) Time(col int) (time.Time, error) {
	p, err := v.locate(col, isType(types.DateType, types.TimestampType))
	if err != nil {
		return time.Time{}, err
	}
	n, _, err := v.d.readNumeric(col, p)
	if err != nil {
		return time.Time{}, err
	}
	if v.d.layouts[col].Type == types.DateType {
		return types.DaysToTime(n), nil
	}
	return types.MillisToTime(n), nil
}

// Values decodes every column of the row by walking it from the start, so
// it also reaches columns that are not directly addressable.
func (v RowView) Values() ([]types.NullableValue, error) {
	if err := v.check(0); err != nil {
		return nil, err
	}
	d := v.d
	out := make([]types.NullableValue, d.schema.NumColumns())
	p := d.start
	for col := range out {
		if d.nulls.Test(uint(col)) {
			out[col] = types.Null
			continue
		}
		val, next, err := d.readValue(col, p)
		if err != nil {
			return nil, fmt.Errorf("row %d column %d: %w", v.row, col, err)
		}
		out[col] = types.NullableValue{Value: val, Valid: true}
		p = next
	}
	return out, nil
}

package storage

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/bits-and-blooms/bitset"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/encoding"
	"github.com/ivan-cunha/aspic-format/internal/stats"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// cell is one parsed field. long holds integers, booleans, days, millis,
// sign-extended float bits or an enum id; text holds free text.
type cell struct {
	long int64
	text string
}

// parseCell interprets a raw field. ok is false for an empty field and for
// a value that does not parse as the column type; both are stored as null.
func parseCell(col types.Column, enumIDs map[string]int64, raw string) (c cell, ok bool) {
	if raw == "" {
		return c, false
	}

	switch col.Type {
	case types.TextType:
		if enumIDs != nil {
			id, found := enumIDs[raw]
			return cell{long: id}, found
		}
		return cell{text: raw}, true
	case types.BooleanType:
		if types.ParseBool(raw) {
			return cell{long: 1}, true
		}
		return cell{long: 0}, true
	case types.DateType:
		days, ok := types.ParseDate(raw)
		return cell{long: int64(days)}, ok
	case types.TimestampType:
		ms, ok := types.ParseTimestamp(raw)
		return cell{long: ms}, ok
	case types.BigintType, types.IntegerType, types.SmallintType, types.TinyintType:
		v, err := strconv.ParseInt(raw, 10, col.Type.Width()*8)
		return cell{long: v}, err == nil
	case types.RealType:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return c, false
		}
		return cell{long: floatBits(float32(f))}, true
	}
	return c, false
}

func floatBits(f float32) int64 {
	return int64(int32(math.Float32bits(f)))
}

func bitsFloat(v int64) float32 {
	return math.Float32frombits(uint32(v))
}

// observe feeds a parsed, non-null cell to an accumulator.
func observe(acc *stats.Accumulator, col int, column types.Column, raw string, c cell) {
	switch column.Type {
	case types.TextType:
		acc.AddString(col, raw)
		if column.HasEnum() {
			acc.AddLong(col, c.long)
		}
	case types.RealType:
		acc.AddFloat(col, bitsFloat(c.long))
	default:
		acc.AddLong(col, c.long)
	}
}

type encodedRowGroup struct {
	block   compression.Block
	rows    int
	layouts []ColumnLayout
	stats   *stats.Snapshot
}

func (g encodedRowGroup) dictionaryColumns() int {
	n := 0
	for _, l := range g.layouts {
		if l.Encoding == EncodingDictionary {
			n++
		}
	}
	return n
}

// rowGroupEncoder buffers up to capacity rows and turns them into one
// compressed row group. It is reused across row groups.
type rowGroupEncoder struct {
	schema   types.Schema
	enumIDs  []map[string]int64
	textSlot []int
	numText  int
	pipeline compression.Pipeline
	capacity int

	rows       int
	values     []int64
	texts      []string
	nulls      *bitset.BitSet
	hasNulls   *bitset.BitSet
	overflow   *bitset.BitSet
	dicts      []map[int64]uint8
	dictValues [][]int64
	stats      *stats.Accumulator
}

func newRowGroupEncoder(schema types.Schema, pipeline compression.Pipeline, capacity int) *rowGroupEncoder {
	n := schema.NumColumns()
	e := &rowGroupEncoder{
		schema:     schema,
		enumIDs:    make([]map[string]int64, n),
		textSlot:   make([]int, n),
		pipeline:   pipeline,
		capacity:   capacity,
		nulls:      bitset.New(uint(capacity * n)),
		hasNulls:   bitset.New(uint(n)),
		overflow:   bitset.New(uint(n)),
		dicts:      make([]map[int64]uint8, n),
		dictValues: make([][]int64, n),
	}
	for i, col := range schema.Columns {
		e.textSlot[i] = -1
		if col.HasEnum() {
			ids := make(map[string]int64, len(col.EnumValues))
			for id, v := range col.EnumValues {
				ids[v] = int64(id)
			}
			e.enumIDs[i] = ids
		} else if col.Type == types.TextType {
			e.textSlot[i] = e.numText
			e.numText++
		}
		e.dicts[i] = make(map[int64]uint8)
	}
	e.reset()
	return e
}

func (e *rowGroupEncoder) reset() {
	e.rows = 0
	e.values = e.values[:0]
	e.texts = e.texts[:0]
	e.nulls.ClearAll()
	e.hasNulls.ClearAll()
	e.overflow.ClearAll()
	for i := range e.dicts {
		clear(e.dicts[i])
		e.dictValues[i] = e.dictValues[i][:0]
	}
	e.stats = stats.NewAccumulator(e.schema.NumColumns())
}

func (e *rowGroupEncoder) buffered() int { return e.rows }
func (e *rowGroupEncoder) full() bool    { return e.rows >= e.capacity }

// add buffers one row and updates both the row group's and the file's
// statistics. A rejected row leaves all state untouched.
func (e *rowGroupEncoder) add(fields []string, doc *stats.Accumulator) error {
	n := e.schema.NumColumns()
	if len(fields) != n {
		return fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), n)
	}
	for col, raw := range fields {
		if e.textSlot[col] >= 0 && len(raw) > math.MaxUint16 {
			return fmt.Errorf("column %s: %w: %d bytes", e.schema.Columns[col].Name, ErrValueTooLong, len(raw))
		}
	}

	e.stats.AddRow()
	doc.AddRow()

	for col, raw := range fields {
		column := e.schema.Columns[col]
		e.stats.CountUnique(col, raw)
		doc.CountUnique(col, raw)

		c, ok := parseCell(column, e.enumIDs[col], raw)
		e.values = append(e.values, c.long)
		if e.textSlot[col] >= 0 {
			e.texts = append(e.texts, c.text)
		}

		if !ok {
			e.nulls.Set(uint(e.rows*n + col))
			e.hasNulls.Set(uint(col))
			e.stats.AddNull(col)
			doc.AddNull(col)
			continue
		}

		observe(e.stats, col, column, raw, c)
		observe(doc, col, column, raw, c)
		if column.Type != types.TextType {
			e.track(col, c.long)
		}
	}

	e.rows++
	return nil
}

// track records v in the column's candidate dictionary until it outgrows
// a 1-byte index. Text columns never get a local dictionary; enum columns
// already store a small index.
func (e *rowGroupEncoder) track(col int, v int64) {
	if e.overflow.Test(uint(col)) {
		return
	}
	if _, ok := e.dicts[col][v]; ok {
		return
	}
	if len(e.dictValues[col]) == maxDictionarySize {
		e.overflow.Set(uint(col))
		clear(e.dicts[col])
		e.dictValues[col] = e.dictValues[col][:0]
		return
	}
	e.dicts[col][v] = uint8(len(e.dictValues[col]))
	e.dictValues[col] = append(e.dictValues[col], v)
}

func (e *rowGroupEncoder) layouts() []ColumnLayout {
	out := make([]ColumnLayout, e.schema.NumColumns())
	for col, column := range e.schema.Columns {
		var dict []int64
		if !e.overflow.Test(uint(col)) && len(e.dictValues[col]) > 0 {
			dict = append([]int64(nil), e.dictValues[col]...)
		}
		out[col] = layoutFor(column, dict)
	}
	return out
}

// columnOrder puts non-null fixed-width columns first. It is stored with
// the row group but rows are always laid out in declaration order.
func (e *rowGroupEncoder) columnOrder() []byte {
	order := make([]byte, 0, e.schema.NumColumns())
	for col, column := range e.schema.Columns {
		if !e.hasNulls.Test(uint(col)) && fixedLength(column) {
			order = append(order, byte(col))
		}
	}
	for col, column := range e.schema.Columns {
		if e.hasNulls.Test(uint(col)) || !fixedLength(column) {
			order = append(order, byte(col))
		}
	}
	return order
}

// encode serializes the buffered rows and compresses the block twice.
func (e *rowGroupEncoder) encode() (encodedRowGroup, error) {
	n := e.schema.NumColumns()
	layouts := e.layouts()

	var data bytes.Buffer
	de := encoding.NewEncoder(&data)
	offsets := make([]uint32, e.rows)
	bitmap := make([]byte, nullBitmapSize(n))

	for row := 0; row < e.rows; row++ {
		off, err := encoding.Offset32(de.Pos())
		if err != nil {
			return encodedRowGroup{}, fmt.Errorf("%w: %v", ErrFileTooLarge, err)
		}
		offsets[row] = off

		clear(bitmap)
		for col := 0; col < n; col++ {
			if e.nulls.Test(uint(row*n + col)) {
				bitmap[col/8] |= 1 << (col % 8)
			}
		}
		de.WriteBytes(bitmap)

		for col := 0; col < n; col++ {
			if e.nulls.Test(uint(row*n + col)) {
				continue
			}
			e.writeValue(de, layouts[col], row, col)
		}
	}
	if err := de.Err(); err != nil {
		return encodedRowGroup{}, fmt.Errorf("failed to encode rows: %w", err)
	}

	var block bytes.Buffer
	block.Grow(4 + 4*e.rows + n + data.Len())
	me := encoding.NewEncoder(&block)
	me.WriteI32(int32(e.rows))
	for _, off := range offsets {
		me.WriteU32(off)
	}
	me.WriteBytes(e.columnOrder())
	for _, l := range layouts {
		me.WriteU8(uint8(len(l.Dictionary)))
		for _, v := range l.Dictionary {
			me.WriteI64(v)
		}
	}
	me.WriteBytes(data.Bytes())
	if err := me.Err(); err != nil {
		return encodedRowGroup{}, fmt.Errorf("failed to encode row group metadata: %w", err)
	}
	if block.Len() > math.MaxInt32 {
		return encodedRowGroup{}, fmt.Errorf("%w: row group of %d bytes", ErrFileTooLarge, block.Len())
	}

	compressed, err := e.pipeline.Compress(block.Bytes())
	if err != nil {
		return encodedRowGroup{}, fmt.Errorf("failed to compress row group: %w", err)
	}

	return encodedRowGroup{
		block:   compressed,
		rows:    e.rows,
		layouts: layouts,
		stats:   e.stats.Snapshot(),
	}, nil
}

func (e *rowGroupEncoder) writeValue(de *encoding.Encoder, l ColumnLayout, row, col int) {
	v := e.values[row*e.schema.NumColumns()+col]
	switch l.Encoding {
	case EncodingDictionary:
		de.WriteU8(e.dicts[col][v])
	case EncodingEnum:
		de.WriteU16(uint16(v))
	case EncodingText:
		de.WriteString(e.texts[row*e.numText+e.textSlot[col]])
	default:
		switch l.Type.Width() {
		case 1:
			de.WriteU8(uint8(v))
		case 2:
			de.WriteU16(uint16(v))
		case 4:
			de.WriteU32(uint32(v))
		case 8:
			de.WriteU64(uint64(v))
		}
	}
}

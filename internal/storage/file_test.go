package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/encoding"
	"github.com/ivan-cunha/aspic-format/internal/metrics"
	"github.com/ivan-cunha/aspic-format/internal/mmap"
	"github.com/ivan-cunha/aspic-format/internal/schema"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

func writeFile(t *testing.T, schema types.Schema, rows [][]string, opts ...Option) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.aspc")
	w, err := Create(path, schema, opts...)
	require.NoError(t, err)
	n, err := w.WriteFrom(NewSliceSource(rows))
	require.NoError(t, err)
	require.Equal(t, len(rows), n)
	require.NoError(t, w.Close())
	return path
}

func openFile(t *testing.T, path string, opts ...Option) *Reader {
	t.Helper()
	r, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func exampleSchema() types.Schema {
	return types.Schema{Columns: []types.Column{
		{Name: "a", Type: types.TinyintType},
		{Name: "b", Type: types.RealType},
		{Name: "c", Type: types.BigintType},
		{Name: "d", Type: types.TextType, EnumValues: []string{"x", "y"}},
		{Name: "e", Type: types.TextType},
	}}
}

var exampleRows = [][]string{
	{"1", "1.5", "100", "x", "hello"},
	{"", "-2.5", "", "y", ""},
}

func TestEndToEnd(t *testing.T) {
	path := writeFile(t, exampleSchema(), exampleRows, WithRowGroupSize(1))
	r := openFile(t, path)

	assert.Equal(t, uint8(encoding.Version), r.Version())
	assert.Equal(t, exampleSchema(), r.Schema())
	require.Equal(t, 2, r.NumRowGroups())
	assert.Equal(t, 2, r.NumRows())

	first, err := r.RowGroup(0)
	require.NoError(t, err)
	require.Equal(t, 1, first.NumRows())
	for col := 0; col < 5; col++ {
		assert.True(t, first.Addressable(col), col)
	}
	assert.Equal(t, EncodingDictionary, first.Layout(0).Encoding)
	assert.Equal(t, EncodingEnum, first.Layout(3).Encoding)
	assert.Equal(t, EncodingText, first.Layout(4).Encoding)

	v, err := first.SelectRow(0)
	require.NoError(t, err)
	a, err := v.Long(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a)
	b, err := v.Float(1)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), b)
	c, err := v.Long(2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), c)
	d, err := v.Text(3)
	require.NoError(t, err)
	assert.Equal(t, "x", d)
	e, err := v.Text(4)
	require.NoError(t, err)
	assert.Equal(t, "hello", e)

	second, err := r.RowGroup(1)
	require.NoError(t, err)
	assert.Equal(t, EncodingNative, second.Layout(0).Encoding)
	assert.Equal(t, EncodingNative, second.Layout(2).Encoding)
	assert.Equal(t, EncodingEnum, second.Layout(3).Encoding)
	assert.Equal(t, 2, second.Layout(3).Width())

	v, err = second.SelectRow(0)
	require.NoError(t, err)
	for col, want := range []bool{true, false, true, false, true} {
		null, err := v.IsNull(col)
		require.NoError(t, err)
		assert.Equal(t, want, null, col)
	}
	_, err = v.Long(0)
	assert.ErrorIs(t, err, ErrNullCell)
	b, err = v.Float(1)
	require.NoError(t, err)
	assert.Equal(t, float32(-2.5), b)
	d, err = v.Text(3)
	require.NoError(t, err)
	assert.Equal(t, "y", d)
	_, err = v.Text(4)
	assert.ErrorIs(t, err, ErrNullCell)

	doc := r.DocumentStats()
	assert.Equal(t, 2, doc.Rows())
	assert.Equal(t, []int{1, 0, 1, 0, 1}, []int{doc.Nulls(0), doc.Nulls(1), doc.Nulls(2), doc.Nulls(3), doc.Nulls(4)})
	assert.Equal(t, int64(1), doc.MinLong(0))
	assert.Equal(t, int64(1), doc.MaxLong(0))
	assert.Equal(t, float32(-2.5), doc.MinFloat(1))
	assert.Equal(t, float32(1.5), doc.MaxFloat(1))
	assert.Equal(t, "x", doc.MinString(3))
	assert.Equal(t, "y", doc.MaxString(3))
	assert.Equal(t, "hello", doc.MinString(4))
	assert.Equal(t, 2, doc.Unique(4))

	rg, err := r.RowGroupStats(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rg.Rows())
	assert.Equal(t, 1, rg.Nulls(0))
	_, err = r.RowGroupStats(2)
	assert.ErrorIs(t, err, ErrRowGroupNotFound)
	_, err = r.RowGroup(-1)
	assert.ErrorIs(t, err, ErrRowGroupNotFound)
}

func TestFileLayout(t *testing.T) {
	path := writeFile(t, exampleSchema(), exampleRows, WithRowGroupSize(1))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []byte("ASPC"), data[:4])
	assert.Equal(t, byte(encoding.Version), data[4])

	meta := binary.BigEndian.Uint32(data[encoding.MetadataPointerOffset:])
	require.Less(t, int(meta), len(data))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(data[meta:]))

	r := openFile(t, path)
	for i, g := range r.RowGroups() {
		assert.Equal(t, int64(binary.BigEndian.Uint32(data[meta+4+uint32(i)*4:])), g.Offset)

		d, err := r.RowGroup(i)
		require.NoError(t, err)
		assert.Equal(t, d.RawLength(), int(binary.BigEndian.Uint32(data[g.Offset:])))
		assert.Equal(t, d.OnceLength(), int(binary.BigEndian.Uint32(data[g.Offset+4:])))
		assert.Equal(t, int(g.Length)-rowGroupPrefix, d.CompressedLength())
	}
	groups := r.RowGroups()
	assert.Equal(t, int64(meta), groups[1].Offset+groups[1].Length)
}

// cellPool returns a generator of raw fields for col. Pools stay small for
// some types so that local dictionaries are exercised.
func cellPool(rng *rand.Rand, col types.Column) func() string {
	switch col.Type {
	case types.BooleanType:
		return func() string { return []string{"true", "false", "1", "no"}[rng.Intn(4)] }
	case types.DateType:
		return func() string {
			return time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.Intn(40000)).Format("2006-01-02")
		}
	case types.TimestampType:
		return func() string {
			return time.UnixMilli(rng.Int63n(4e12) - 1e12).UTC().Format("2006-01-02T15:04:05.000Z07:00")
		}
	case types.BigintType:
		return func() string { return strconv.FormatInt(rng.Int63()-rng.Int63(), 10) }
	case types.IntegerType:
		return func() string { return strconv.Itoa(rng.Intn(200) - 100) }
	case types.SmallintType:
		return func() string { return strconv.Itoa(rng.Intn(65536) - 32768) }
	case types.TinyintType:
		return func() string { return strconv.Itoa(rng.Intn(256) - 128) }
	case types.RealType:
		return func() string { return strconv.FormatFloat(float64(rng.Intn(1000))/8-60, 'f', -1, 32) }
	}
	if col.HasEnum() {
		return func() string { return col.EnumValues[rng.Intn(len(col.EnumValues))] }
	}
	return func() string {
		b := make([]byte, rng.Intn(20)+1)
		for i := range b {
			b[i] = byte('a' + rng.Intn(26))
		}
		return string(b)
	}
}

// expected decodes a raw field the way the writer stores it.
func expected(col types.Column, raw string) types.NullableValue {
	if raw == "" {
		return types.Null
	}
	switch col.Type {
	case types.TextType:
		return types.NullableValue{Value: raw, Valid: true}
	case types.BooleanType:
		return types.NullableValue{Value: types.ParseBool(raw), Valid: true}
	case types.DateType:
		days, _ := types.ParseDate(raw)
		return types.NullableValue{Value: int64(days), Valid: true}
	case types.TimestampType:
		ms, _ := types.ParseTimestamp(raw)
		return types.NullableValue{Value: ms, Valid: true}
	case types.RealType:
		f, _ := strconv.ParseFloat(raw, 32)
		return types.NullableValue{Value: float32(f), Valid: true}
	}
	v, _ := strconv.ParseInt(raw, 10, 64)
	return types.NullableValue{Value: v, Valid: true}
}

func randomSchema(rng *rand.Rand) types.Schema {
	var s types.Schema
	for i := 0; i < 14; i++ {
		col := types.Column{Name: "c" + strconv.Itoa(i), Type: types.AllTypes()[rng.Intn(9)]}
		if col.Type == types.TextType && rng.Intn(2) == 0 {
			col.EnumValues = []string{"alpha", "beta", "delta", "gamma"}
		}
		s.Columns = append(s.Columns, col)
	}
	return s
}

func TestRandomRoundTrip(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4} {
		t.Run(strconv.FormatInt(seed, 10), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			schema := randomSchema(rng)
			if seed == 1 {
				schema.Columns = nil
				for i, dt := range types.AllTypes() {
					schema.Columns = append(schema.Columns, types.Column{Name: dt.String() + strconv.Itoa(i), Type: dt})
				}
				schema.Columns = append(schema.Columns, types.Column{Name: "enum", Type: types.TextType, EnumValues: []string{"a", "b"}})
			}

			pools := make([]func() string, schema.NumColumns())
			for i, col := range schema.Columns {
				pools[i] = cellPool(rng, col)
			}
			rows := make([][]string, 1000)
			for i := range rows {
				rows[i] = make([]string, schema.NumColumns())
				for col := range rows[i] {
					if rng.Intn(10) > 0 {
						rows[i][col] = pools[col]()
					}
				}
			}

			r := openFile(t, writeFile(t, schema, rows, WithRowGroupSize(97)))
			require.Equal(t, 11, r.NumRowGroups())
			require.Equal(t, len(rows), r.NumRows())

			next := 0
			for g := 0; g < r.NumRowGroups(); g++ {
				d, err := r.RowGroup(g)
				require.NoError(t, err)

				forward := make([][]types.NullableValue, d.NumRows())
				for i := 0; i < d.NumRows(); i++ {
					v, err := d.SelectRow(i)
					require.NoError(t, err)
					forward[i], err = v.Values()
					require.NoError(t, err)

					raw := rows[next+i]
					for col, column := range schema.Columns {
						require.Equal(t, expected(column, raw[col]), forward[i][col], "row %d column %d", next+i, col)
					}
				}
				for i := d.NumRows() - 1; i >= 0; i-- {
					v, err := d.SelectRow(i)
					require.NoError(t, err)
					values, err := v.Values()
					require.NoError(t, err)
					require.Equal(t, forward[i], values)
				}
				next += d.NumRows()
			}

			doc := r.DocumentStats()
			for col, column := range schema.Columns {
				nulls := 0
				lo, hi := int64(0), int64(0)
				seen := false
				for _, row := range rows {
					if row[col] == "" {
						nulls++
						continue
					}
					if !column.Type.IntegerFamily() {
						continue
					}
					v := expected(column, row[col]).Value
					n, ok := v.(int64)
					if !ok {
						if v.(bool) {
							n = 1
						} else {
							n = 0
						}
					}
					if !seen || n < lo {
						lo = n
					}
					if !seen || n > hi {
						hi = n
					}
					seen = true
				}
				assert.Equal(t, nulls, doc.Nulls(col), col)
				if seen {
					assert.Equal(t, lo, doc.MinLong(col), col)
					assert.Equal(t, hi, doc.MaxLong(col), col)
				}
			}
		})
	}
}

func TestEnumValueOutsideDictionaryIsNull(t *testing.T) {
	schema := types.Schema{Columns: []types.Column{{Name: "d", Type: types.TextType, EnumValues: []string{"x", "y"}}}}
	r := openFile(t, writeFile(t, schema, [][]string{{"x"}, {"z"}}))

	d, err := r.RowGroup(0)
	require.NoError(t, err)
	v, err := d.SelectRow(1)
	require.NoError(t, err)
	null, err := v.IsNull(0)
	require.NoError(t, err)
	assert.True(t, null)
	assert.Equal(t, 1, r.DocumentStats().Nulls(0))
}

func TestZeroRows(t *testing.T) {
	schema := exampleSchema()
	r := openFile(t, writeFile(t, schema, nil))

	assert.Equal(t, 0, r.NumRowGroups())
	assert.Equal(t, 0, r.NumRows())
	assert.Empty(t, r.RowGroups())
	require.NoError(t, r.Scan(context.Background(), func(context.Context, int, *RowGroupDecoder) error {
		t.Fatal("no row groups expected")
		return nil
	}))

	s := r.Summary()
	assert.Nil(t, s.Columns[0].Min)
	assert.Empty(t, s.RowGroups)
}

func TestCodecs(t *testing.T) {
	for _, name := range []string{compression.NameNone, compression.NameLZ4, compression.NameSnappy, compression.NameZstd, compression.NameS2} {
		t.Run(name, func(t *testing.T) {
			codec, err := compression.ByName(name)
			require.NoError(t, err)

			path := writeFile(t, exampleSchema(), exampleRows, WithCodec(codec))
			r := openFile(t, path, WithCodec(codec))
			assert.Equal(t, name, r.Summary().Codec)

			d, err := r.RowGroup(0)
			require.NoError(t, err)
			v, err := d.SelectRow(0)
			require.NoError(t, err)
			s, err := v.Text(4)
			require.NoError(t, err)
			assert.Equal(t, "hello", s)
		})
	}
}

func TestCorruptFiles(t *testing.T) {
	path := writeFile(t, exampleSchema(), exampleRows, WithRowGroupSize(1))
	good, err := os.ReadFile(path)
	require.NoError(t, err)
	meta := binary.BigEndian.Uint32(good[encoding.MetadataPointerOffset:])

	open := func(data []byte) (*Reader, error) {
		return NewReader(mmap.FromBytes(data))
	}

	t.Run("magic", func(t *testing.T) {
		data := append([]byte(nil), good...)
		data[0] = 'X'
		_, err := open(data)
		assert.ErrorIs(t, err, encoding.ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		data := append([]byte(nil), good...)
		data[4] = 9
		_, err := open(data)
		assert.ErrorIs(t, err, encoding.ErrUnsupportedVersion)
	})

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{0, 3, 9, 20, int(meta) + 2, len(good) - 1} {
			_, err := open(good[:n])
			assert.Error(t, err, n)
		}
	})

	t.Run("metadata pointer", func(t *testing.T) {
		data := append([]byte(nil), good...)
		binary.BigEndian.PutUint32(data[encoding.MetadataPointerOffset:], uint32(len(data)+10))
		_, err := open(data)
		var fe *encoding.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, int64(encoding.MetadataPointerOffset), fe.Offset)
	})

	t.Run("unpatched", func(t *testing.T) {
		data := append([]byte(nil), good...)
		binary.BigEndian.PutUint32(data[encoding.MetadataPointerOffset:], 0)
		_, err := open(data)
		assert.Error(t, err)
	})

	t.Run("row group", func(t *testing.T) {
		data := append([]byte(nil), good...)
		r, err := open(data)
		require.NoError(t, err)
		g := r.RowGroups()[1]
		for i := g.Offset + rowGroupPrefix; i < g.Offset+g.Length; i++ {
			data[i] ^= 0xA5
		}
		binary.BigEndian.PutUint32(data[g.Offset:], 1<<20)

		_, err = r.RowGroup(0)
		require.NoError(t, err)
		_, err = r.RowGroup(1)
		assert.Error(t, err)
	})
}

func TestReaderAfterClose(t *testing.T) {
	r, err := Open(writeFile(t, exampleSchema(), exampleRows))
	require.NoError(t, err)

	d, err := r.RowGroup(0)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.RowGroup(0)
	assert.ErrorIs(t, err, ErrClosed)

	v, err := d.SelectRow(0)
	require.NoError(t, err)
	s, err := v.Text(4)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestScan(t *testing.T) {
	schema := types.Schema{Columns: []types.Column{{Name: "n", Type: types.IntegerType}}}
	rows := make([][]string, 1000)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i)}
	}
	path := writeFile(t, schema, rows, WithRowGroupSize(64))

	r := openFile(t, path, WithParallelism(3))
	var sum, groups atomic.Int64
	err := r.Scan(context.Background(), func(_ context.Context, _ int, d *RowGroupDecoder) error {
		groups.Add(1)
		for i := 0; i < d.NumRows(); i++ {
			v, err := d.SelectRow(i)
			if err != nil {
				return err
			}
			n, err := v.Long(0)
			if err != nil {
				return err
			}
			sum.Add(n)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), groups.Load())
	assert.Equal(t, int64(999*1000/2), sum.Load())

	boom := errors.New("boom")
	err = r.Scan(context.Background(), func(_ context.Context, i int, _ *RowGroupDecoder) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.Scan(ctx, func(context.Context, int, *RowGroupDecoder) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummaryJSON(t *testing.T) {
	schema := types.Schema{Columns: []types.Column{
		{Name: "flag", Type: types.BooleanType},
		{Name: "day", Type: types.DateType},
		{Name: "score", Type: types.RealType},
		{Name: "kind", Type: types.TextType, EnumValues: []string{"x", "y"}},
		{Name: "empty", Type: types.IntegerType},
	}}
	rows := [][]string{
		{"true", "2020-01-02", "1.5", "y", ""},
		{"false", "2019-12-31", "-3", "x", ""},
	}
	r := openFile(t, writeFile(t, schema, rows, WithRowGroupSize(1)))

	out, err := r.Summary().JSON()
	require.NoError(t, err)

	var got struct {
		Version   int                      `json:"version"`
		Codec     string                   `json:"codec"`
		Rows      int                      `json:"rows"`
		Columns   []map[string]interface{} `json:"columns"`
		RowGroups []map[string]interface{} `json:"row_groups"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, 1, got.Version)
	assert.Equal(t, compression.NameLZ4, got.Codec)
	assert.Equal(t, 2, got.Rows)
	require.Len(t, got.Columns, 5)
	assert.Equal(t, false, got.Columns[0]["min"])
	assert.Equal(t, true, got.Columns[0]["max"])
	assert.Equal(t, "2019-12-31", got.Columns[1]["min"])
	assert.Equal(t, "2020-01-02", got.Columns[1]["max"])
	assert.Equal(t, -3.0, got.Columns[2]["min"])
	assert.Equal(t, 1.5, got.Columns[2]["max"])
	assert.Equal(t, "Text", got.Columns[3]["type"])
	assert.Equal(t, 2.0, got.Columns[3]["enum_values"])
	assert.Nil(t, got.Columns[4]["min"])
	assert.Equal(t, 2.0, got.Columns[4]["nulls"])
	assert.Len(t, got.RowGroups, 2)
}

func TestWriterErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Create(filepath.Join(dir, "empty.aspc"), types.Schema{})
	assert.Error(t, err)

	_, err = Create(filepath.Join(dir, "size.aspc"), exampleSchema(), WithRowGroupSize(0))
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = Open(filepath.Join(dir, "missing.aspc"), WithParallelism(-1))
	assert.Error(t, err)

	w, err := Create(filepath.Join(dir, "w.aspc"), exampleSchema())
	require.NoError(t, err)
	assert.ErrorIs(t, w.WriteRow([]string{"1"}), ErrFieldCount)
	assert.ErrorIs(t, w.WriteRow([]string{"1", "2", "3", "x", string(make([]byte, 70000))}), ErrValueTooLong)
	require.NoError(t, w.WriteRow(exampleRows[0]))
	assert.Equal(t, 1, w.Rows())

	n, err := w.WriteFrom(NewSliceSource([][]string{exampleRows[1], {"short"}}))
	assert.ErrorIs(t, err, ErrFieldCount)
	assert.Equal(t, 1, n)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteRow(exampleRows[0]), ErrClosed)

	r := openFile(t, filepath.Join(dir, "w.aspc"))
	assert.Equal(t, 2, r.NumRows())
}

type failingSource struct{ err error }

func (s failingSource) Next() ([]string, error) { return nil, s.err }

func TestWriteFromSourceError(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "f.aspc"), exampleSchema())
	require.NoError(t, err)
	defer w.Close()

	boom := errors.New("read failed")
	_, err = w.WriteFrom(failingSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestMetricsAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	path := writeFile(t, exampleSchema(), exampleRows, WithRowGroupSize(1), WithMetrics(m), WithLogger(logger))
	r := openFile(t, path, WithMetrics(m), WithLogger(logger))
	for i := 0; i < r.NumRowGroups(); i++ {
		_, err := r.RowGroup(i)
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsWritten))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowGroupsWritten))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowGroupsDecoded))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RowGroupDecodeErrors))
	// a, b and c in the first group, b in the second.
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DictionaryColumns))
	assert.Greater(t, testutil.ToFloat64(m.RawBytes), 0.0)

	flushed := logs.FilterMessage("flushed row group").All()
	require.Len(t, flushed, 2)
	assert.Equal(t, int64(1), flushed[1].ContextMap()["index"])
	assert.Equal(t, 1, logs.FilterMessage("wrote file").FilterField(zap.Int("rows", 2)).Len())
	assert.Equal(t, 1, logs.FilterMessage("opened file").Len())
}

func TestDatesWithoutPadding(t *testing.T) {
	schema := types.Schema{Columns: []types.Column{{Name: "day", Type: types.DateType}}}
	rows := [][]string{{"2020-01-05"}, {"2020-1-5"}, {"2020-01-05 10:00:00"}}
	r := openFile(t, writeFile(t, schema, rows))

	assert.Equal(t, 1, r.DocumentStats().Nulls(0))
	d, err := r.RowGroup(0)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		v, err := d.SelectRow(i)
		require.NoError(t, err)
		day, err := v.Time(0)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), day)
	}
}

func TestColumnIndex(t *testing.T) {
	r := openFile(t, writeFile(t, exampleSchema(), exampleRows))

	i, err := r.ColumnIndex("d")
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = r.ColumnIndex("missing")
	assert.ErrorIs(t, err, schema.ErrColumnNotFound)
}

func TestAdviseFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := mmap.FromBytes([]byte("ASPC"))
	require.NoError(t, m.Close())

	adviseRandom(m, zap.New(core), "closed.aspc")

	entries := logs.FilterMessage("madvise failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "closed.aspc", entries[0].ContextMap()["path"])
	assert.Contains(t, entries[0].ContextMap()["error"], mmap.ErrClosed.Error())
}

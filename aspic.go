// Package aspic reads and writes ASPC files: row-oriented columnar files
// split into independently compressed row groups, with per-file and
// per-row-group column statistics.
//
// Writing:
//
//	b := aspic.NewSchema()
//	_ = b.AddColumn("id", aspic.Bigint)
//	_ = b.AddEnumColumn("level", []string{"info", "warn"})
//	w, err := aspic.Create("events.aspc", b.ToSchema())
//	...
//	err = w.WriteRow([]string{"1", "warn"})
//	err = w.Close()
//
// Reading:
//
//	r, err := aspic.Open("events.aspc")
//	d, err := r.RowGroup(0)
//	v, err := d.SelectRow(0)
//	id, err := v.Long(0)
package aspic

import (
	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/config"
	"github.com/ivan-cunha/aspic-format/internal/schema"
	"github.com/ivan-cunha/aspic-format/internal/storage"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

type (
	DataType      = types.DataType
	Column        = types.Column
	Schema        = types.Schema
	NullableValue = types.NullableValue
	SchemaBuilder = schema.FileSchema

	Writer          = storage.Writer
	Reader          = storage.Reader
	RowGroupDecoder = storage.RowGroupDecoder
	RowView         = storage.RowView
	RowSource       = storage.RowSource
	ScanFunc        = storage.ScanFunc
	Summary         = storage.Summary
	Option          = storage.Option
	AddressError    = storage.AddressError
	Codec           = compression.Codec
	Config          = config.Config
)

const (
	Text      = types.TextType
	Boolean   = types.BooleanType
	Date      = types.DateType
	Timestamp = types.TimestampType
	Bigint    = types.BigintType
	Integer   = types.IntegerType
	Smallint  = types.SmallintType
	Tinyint   = types.TinyintType
	Real      = types.RealType
)

var (
	ErrNullCell      = storage.ErrNullCell
	ErrStaleRow      = storage.ErrStaleRow
	ErrTypeMismatch  = storage.ErrTypeMismatch
	ErrFieldCount    = storage.ErrFieldCount
	ErrValueTooLong  = storage.ErrValueTooLong
	ErrClosed        = storage.ErrClosed
	ErrInvalidOption = storage.ErrInvalidOption
)

var (
	WithRowGroupSize = storage.WithRowGroupSize
	WithCodec        = storage.WithCodec
	WithLogger       = storage.WithLogger
	WithMetrics      = storage.WithMetrics
	WithParallelism  = storage.WithParallelism
)

func NewSchema() *SchemaBuilder { return schema.New() }

// Create starts a new file at path, replacing any existing one.
func Create(path string, s Schema, opts ...Option) (*Writer, error) {
	return storage.Create(path, s, opts...)
}

// Open maps an existing file. opts must name the codec the file was
// written with if it was not the default.
func Open(path string, opts ...Option) (*Reader, error) {
	return storage.Open(path, opts...)
}

// CodecByName returns one of "lz4", "snappy", "zstd", "s2" or "none".
func CodecByName(name string) (Codec, error) {
	return compression.ByName(name)
}

func NewSliceSource(rows [][]string) RowSource {
	return storage.NewSliceSource(rows)
}

// DefaultConfig and LoadConfig expose the YAML configuration; Config.Options
// turns it into options for Create and Open.
func DefaultConfig() Config { return config.Default() }

func LoadConfig(path string) (Config, error) { return config.Load(path) }

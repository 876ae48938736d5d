package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"go.uber.org/zap"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/encoding"
	"github.com/ivan-cunha/aspic-format/internal/mmap"
	"github.com/ivan-cunha/aspic-format/internal/schema"
	"github.com/ivan-cunha/aspic-format/internal/stats"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// RowGroupInfo locates one row group inside the file.
type RowGroupInfo struct {
	Offset int64
	Length int64
}

// Reader parses a file's header, row-group directory and statistics up
// front and decodes row groups on demand. A Reader may be shared between
// goroutines; the decoders it returns may not.
type Reader struct {
	mapping  *mmap.Mapping
	header   encoding.FileHeader
	schema   types.Schema
	catalog  *schema.FileSchema
	groups   []RowGroupInfo
	docStats *stats.Snapshot
	rgStats  []*stats.Snapshot
	pipeline compression.Pipeline
	opts     Options
}

// Open memory-maps path and parses it.
func Open(path string, opts ...Option) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	r, err := NewReader(m, opts...)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	adviseRandom(m, r.opts.Logger, path)
	return r, nil
}

// adviseRandom hints that row groups are read out of order. Failure only
// costs read-ahead tuning, so it is logged and ignored.
func adviseRandom(m *mmap.Mapping, logger *zap.Logger, path string) {
	if err := m.Advise(mmap.AccessRandom); err != nil {
		logger.Debug("madvise failed", zap.String("path", path), zap.Error(err))
	}
}

// NewReader parses a mapped file. The Reader takes ownership of m.
func NewReader(m *mmap.Mapping, opts ...Option) (*Reader, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		mapping:  m,
		pipeline: compression.NewPipeline(o.Codec),
		opts:     o,
	}
	if err := r.parse(m.Bytes()); err != nil {
		return nil, err
	}

	o.Logger.Debug("opened file",
		zap.Int("columns", r.schema.NumColumns()),
		zap.Int("row_groups", len(r.groups)),
		zap.Int("rows", r.docStats.Rows()),
		zap.Int("bytes", m.Size()),
	)
	return r, nil
}

func (r *Reader) parse(data []byte) error {
	s := kaitai.NewStream(bytes.NewReader(data))

	h, err := encoding.ReadHeader(s)
	if err != nil {
		return err
	}
	r.header = h
	r.schema = h.Schema
	r.catalog = schema.FromSchema(h.Schema)
	headerEnd := pos(s)

	meta := int64(h.MetadataOffset)
	if meta < headerEnd || meta > int64(len(data)) {
		return encoding.Errorf(encoding.MetadataPointerOffset, nil, "metadata offset %d outside [%d, %d]", meta, headerEnd, len(data))
	}
	if _, err := s.Seek(meta, io.SeekStart); err != nil {
		return encoding.Errorf(meta, err, "seek to metadata")
	}

	count, err := s.ReadS4be()
	if err != nil {
		return encoding.Errorf(meta, err, "row group count")
	}
	if count < 0 || int64(count)*4 > int64(len(data))-meta {
		return encoding.Errorf(meta, nil, "invalid row group count %d", count)
	}

	r.groups = make([]RowGroupInfo, count)
	for i := range r.groups {
		off, err := s.ReadS4be()
		if err != nil {
			return encoding.Errorf(pos(s), err, "offset of row group %d", i)
		}
		r.groups[i].Offset = int64(off)
	}
	for i := range r.groups {
		end := meta
		if i+1 < len(r.groups) {
			end = r.groups[i+1].Offset
		}
		g := &r.groups[i]
		g.Length = end - g.Offset
		if g.Offset < headerEnd || g.Length < rowGroupPrefix {
			return encoding.Errorf(meta, nil, "row group %d has offset %d and length %d", i, g.Offset, g.Length)
		}
	}

	columnTypes := r.schema.Types()
	if r.docStats, err = stats.ReadRecord(s, columnTypes); err != nil {
		return fmt.Errorf("document statistics: %w", err)
	}
	r.rgStats = make([]*stats.Snapshot, count)
	for i := range r.rgStats {
		if r.rgStats[i], err = stats.ReadRecord(s, columnTypes); err != nil {
			return fmt.Errorf("statistics of row group %d: %w", i, err)
		}
	}
	return nil
}

func (r *Reader) Schema() types.Schema { return r.schema }
func (r *Reader) Version() uint8       { return r.header.Version }
func (r *Reader) NumRowGroups() int    { return len(r.groups) }

// ColumnIndex returns the position of the named column.
func (r *Reader) ColumnIndex(name string) (int, error) {
	i, _, err := r.catalog.GetColumn(name)
	return i, err
}

// NumRows is the row count of the whole file.
func (r *Reader) NumRows() int { return r.docStats.Rows() }

func (r *Reader) RowGroups() []RowGroupInfo {
	return append([]RowGroupInfo(nil), r.groups...)
}

// DocumentStats covers every row in the file.
func (r *Reader) DocumentStats() *stats.Snapshot { return r.docStats }

func (r *Reader) RowGroupStats(i int) (*stats.Snapshot, error) {
	if i < 0 || i >= len(r.rgStats) {
		return nil, fmt.Errorf("%w: %d of %d", ErrRowGroupNotFound, i, len(r.rgStats))
	}
	return r.rgStats[i], nil
}

// RowGroup decompresses row group i and returns a decoder positioned
// before its first row.
func (r *Reader) RowGroup(i int) (*RowGroupDecoder, error) {
	if i < 0 || i >= len(r.groups) {
		return nil, fmt.Errorf("%w: %d of %d", ErrRowGroupNotFound, i, len(r.groups))
	}
	g := r.groups[i]
	region, err := r.mapping.Region(int(g.Offset), int(g.Length))
	if err != nil {
		if errors.Is(err, mmap.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("row group %d: %w", i, err)
	}

	d, err := DecodeRowGroup(region.Bytes(), r.schema, r.pipeline)
	r.opts.Metrics.RowGroupDecoded(err)
	if err != nil {
		return nil, fmt.Errorf("row group %d at offset %d: %w", i, g.Offset, err)
	}
	return d, nil
}

// Close unmaps the file. Decoders already returned keep their own
// decompressed copy and stay usable.
func (r *Reader) Close() error {
	return r.mapping.Close()
}

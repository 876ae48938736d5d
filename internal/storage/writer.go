package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/encoding"
	"github.com/ivan-cunha/aspic-format/internal/schema"
	"github.com/ivan-cunha/aspic-format/internal/stats"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

type writtenRowGroup struct {
	offset     int64
	rawLength  int
	onceLength int
	stats      *stats.Snapshot
}

// Writer streams rows into a file one row group at a time. It is not safe
// for concurrent use. Close must be called to produce a readable file.
type Writer struct {
	path    string
	f       *os.File
	buf     *bufio.Writer
	enc     *encoding.Encoder
	schema  types.Schema
	opts    Options
	encoder *rowGroupEncoder
	doc     *stats.Accumulator
	groups  []writtenRowGroup
	rows    int
	err     error
	closed  bool
}

// Create truncates path and writes the file header.
func Create(path string, s types.Schema, opts ...Option) (*Writer, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	buf := bufio.NewWriterSize(f, 1<<20)
	w := &Writer{
		path:    path,
		f:       f,
		buf:     buf,
		enc:     encoding.NewEncoder(buf),
		schema:  s,
		opts:    o,
		encoder: newRowGroupEncoder(s, compression.NewPipeline(o.Codec), o.RowGroupSize),
		doc:     stats.NewAccumulator(s.NumColumns()),
	}
	if err := encoding.WriteHeader(w.enc, s); err != nil {
		f.Close()
		return nil, err
	}

	o.Logger.Debug("created file",
		zap.String("path", path),
		zap.Int("columns", s.NumColumns()),
		zap.Int("row_group_size", o.RowGroupSize),
		zap.String("codec", o.Codec.Name()),
	)
	return w, nil
}

// WriteRow appends one row of raw fields. Empty fields and fields that do
// not parse as their column's type are stored as null.
func (w *Writer) WriteRow(fields []string) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if err := w.encoder.add(fields, w.doc); err != nil {
		return err
	}
	w.rows++
	w.opts.Metrics.RowWritten()

	if w.encoder.full() {
		if err := w.flush(); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// WriteFrom drains src and returns the number of rows written.
func (w *Writer) WriteFrom(src RowSource) (int, error) {
	n := 0
	for {
		fields, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("row source: %w", err)
		}
		if err := w.WriteRow(fields); err != nil {
			return n, fmt.Errorf("row %d: %w", w.rows, err)
		}
		n++
	}
}

// Rows returns the number of rows accepted so far.
func (w *Writer) Rows() int { return w.rows }

// flush writes the buffered rows as one row group. The two length fields
// are written as zero and patched by Close.
func (w *Writer) flush() error {
	g, err := w.encoder.encode()
	if err != nil {
		return err
	}

	offset := w.enc.Pos()
	if _, err := encoding.Offset32(offset + rowGroupPrefix + int64(len(g.block.Data))); err != nil {
		return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	}
	w.enc.WriteU32(0)
	w.enc.WriteU32(0)
	w.enc.WriteBytes(g.block.Data)
	if err := w.enc.Err(); err != nil {
		return fmt.Errorf("failed to write row group %d: %w", len(w.groups), err)
	}

	w.groups = append(w.groups, writtenRowGroup{
		offset:     offset,
		rawLength:  g.block.RawLength,
		onceLength: g.block.OnceLength,
		stats:      g.stats,
	})
	w.opts.Metrics.RowGroupWritten(g.block.RawLength, len(g.block.Data), g.dictionaryColumns())

	if ce := w.opts.Logger.Check(zap.DebugLevel, "flushed row group"); ce != nil {
		dicts := make([]int, len(g.layouts))
		for i, l := range g.layouts {
			dicts[i] = len(l.Dictionary)
		}
		ce.Write(
			zap.Int("index", len(w.groups)-1),
			zap.Int("rows", g.rows),
			zap.Int64("offset", offset),
			zap.Int("raw_length", g.block.RawLength),
			zap.Int("once_length", g.block.OnceLength),
			zap.Int("compressed_length", len(g.block.Data)),
			zap.Ints("dictionary_sizes", dicts),
		)
	}

	w.encoder.reset()
	return nil
}

// Close flushes the last row group, writes the metadata section and
// patches the forward pointer and row-group lengths.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.finish()
	if cerr := w.f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", w.path, cerr)
	}
	if err != nil {
		return err
	}

	w.opts.Logger.Info("wrote file",
		zap.String("path", w.path),
		zap.Int("rows", w.rows),
		zap.Int("row_groups", len(w.groups)),
		zap.Int64("bytes", w.enc.Pos()),
	)
	return nil
}

func (w *Writer) finish() error {
	if w.err != nil {
		return w.err
	}
	if w.encoder.buffered() > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}

	metadataPos, err := encoding.Offset32(w.enc.Pos())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	}

	w.enc.WriteI32(int32(len(w.groups)))
	for _, g := range w.groups {
		w.enc.WriteI32(int32(g.offset))
	}
	columnTypes := w.schema.Types()
	if err := stats.WriteRecord(w.enc, w.doc, columnTypes); err != nil {
		return fmt.Errorf("failed to write document statistics: %w", err)
	}
	for i, g := range w.groups {
		if err := stats.WriteRecord(w.enc, g.stats, columnTypes); err != nil {
			return fmt.Errorf("failed to write statistics of row group %d: %w", i, err)
		}
	}
	if err := w.enc.Err(); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	if _, err := encoding.Offset32(w.enc.Pos()); err != nil {
		return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	}

	if err := encoding.PatchU32(w.f, encoding.MetadataPointerOffset, metadataPos); err != nil {
		return err
	}
	for _, g := range w.groups {
		if err := encoding.PatchU32(w.f, g.offset, uint32(g.rawLength)); err != nil {
			return err
		}
		if err := encoding.PatchU32(w.f, g.offset+4, uint32(g.onceLength)); err != nil {
			return err
		}
	}
	return w.f.Sync()
}

// Package mmap exposes a file as a read-only byte slice backed by the page
// cache. Row groups are handed out as Regions of one shared Mapping.
package mmap

import (
	"errors"
	"os"
	"sync/atomic"
)

var (
	ErrClosed      = errors.New("mmap: mapping is closed")
	ErrInvalidSize = errors.New("mmap: invalid file size")
	ErrOutOfBounds = errors.New("mmap: range out of bounds")
)

// AccessPattern is a hint about how mapped bytes will be read.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	AccessSequential
	AccessRandom
	AccessWillNeed
)

// Mapping is a read-only view of a whole file. Concurrent reads are safe;
// nothing may touch Bytes after Close.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps path read-only. Empty files map to an empty slice.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Mapping{}, nil
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// FromBytes wraps an in-memory buffer so it can be read like a mapped file.
func FromBytes(data []byte) *Mapping {
	return &Mapping{data: data}
}

// Close releases the mapping. Calling it again is a no-op.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped contents, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

func (m *Mapping) Size() int {
	return len(m.data)
}

func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, pattern)
}

// Region is a window onto part of a Mapping. It does not own memory.
type Region struct {
	parent *Mapping
	offset int
	size   int
}

// Region returns the window [offset, offset+size).
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if offset < 0 || size < 0 || offset > len(m.data)-size {
		return nil, ErrOutOfBounds
	}
	return &Region{parent: m, offset: offset, size: size}, nil
}

// Bytes returns the window, or nil once the parent is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}
	return r.parent.data[r.offset : r.offset+r.size]
}

func (r *Region) Offset() int { return r.offset }
func (r *Region) Len() int    { return r.size }

func (r *Region) Advise(pattern AccessPattern) error {
	if r.parent.closed.Load() {
		return ErrClosed
	}
	return osAdvise(r.parent.data[r.offset:r.offset+r.size], pattern)
}

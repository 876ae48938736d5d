package compression

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCompressorNotFound = errors.New("compressor not found")
	ErrSizeMismatch       = errors.New("decompressed size mismatch")
	ErrInvalidFormat      = errors.New("invalid compressed data format")
)

// Codec compresses whole blocks. Decompress is told the exact inflated size,
// which the file format persists for every stage. MaxDecodedLen bounds the
// size data can inflate to, so a corrupt length is rejected before any
// buffer is allocated for it.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, size int) ([]byte, error)
	MaxDecodedLen(data []byte) int
	Name() string
}

// Codec names accepted by ByName.
const (
	NameNone   = "none"
	NameLZ4    = "lz4"
	NameSnappy = "snappy"
	NameZstd   = "zstd"
	NameS2     = "s2"
)

// Default returns the codec used when none is configured.
func Default() Codec {
	return NewLZ4Compressor()
}

// ByName builds a fresh codec for a configured name.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameLZ4:
		return NewLZ4Compressor(), nil
	case NameSnappy:
		return NewSnappyCompressor(), nil
	case NameZstd:
		return NewZstdCompressor(), nil
	case NameS2:
		return NewS2Compressor(), nil
	case NameNone:
		return NoneCompressor{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCompressorNotFound, name)
}

// NoneCompressor stores blocks as-is.
type NoneCompressor struct{}

func (NoneCompressor) Name() string {
	return NameNone
}

func (NoneCompressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (NoneCompressor) MaxDecodedLen(data []byte) int {
	return len(data)
}

func (NoneCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) != size {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrSizeMismatch, len(data), size)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func checkSize(out []byte, size int) ([]byte, error) {
	if len(out) != size {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrSizeMismatch, len(out), size)
	}
	return out, nil
}

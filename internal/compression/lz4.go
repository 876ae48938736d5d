package compression

import (
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

var errIncompressible = errors.New("lz4: block not emitted")

// LZ4Compressor produces raw LZ4 blocks (no frame header). Level lz4.Fast uses
// the fast compressor, any other level the high-compression one.
type LZ4Compressor struct {
	level lz4.CompressionLevel
}

func NewLZ4Compressor() *LZ4Compressor {
	return NewLZ4CompressorLevel(lz4.Level9)
}

func NewLZ4CompressorLevel(level lz4.CompressionLevel) *LZ4Compressor {
	return &LZ4Compressor{level: level}
}

func (c *LZ4Compressor) Name() string {
	return NameLZ4
}

func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	var (
		n   int
		err error
	)
	if c.level == lz4.Fast {
		n, err = lz4.CompressBlock(data, dst, nil)
	} else {
		n, err = lz4.CompressBlockHC(data, dst, c.level, nil, nil)
	}
	if err != nil {
		return nil, err
	}
	if n == 0 && len(data) > 0 {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

// MaxDecodedLen follows from the format: a literal-length or match-length
// byte of 255 is the densest encoding, so no block expands beyond 255x.
func (c *LZ4Compressor) MaxDecodedLen(data []byte) int {
	return 255*len(data) + 16
}

func (c *LZ4Compressor) Decompress(data []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return checkSize(out[:n], size)
}

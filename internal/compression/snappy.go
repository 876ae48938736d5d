package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

type SnappyCompressor struct{}

func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

func (c *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

// MaxDecodedLen reads the length stored in the block preamble.
func (c *SnappyCompressor) MaxDecodedLen(data []byte) int {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return 0
	}
	return n
}

func (c *SnappyCompressor) Decompress(data []byte, size int) ([]byte, error) {
	out, err := snappy.Decode(make([]byte, size), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return checkSize(out, size)
}

func (c *SnappyCompressor) Name() string {
	return NameSnappy
}

package compression

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

type S2Compressor struct{}

func NewS2Compressor() *S2Compressor {
	return &S2Compressor{}
}

func (c *S2Compressor) Name() string {
	return NameS2
}

func (c *S2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.EncodeBetter(nil, data), nil
}

func (c *S2Compressor) MaxDecodedLen(data []byte) int {
	n, err := s2.DecodedLen(data)
	if err != nil {
		return 0
	}
	return n
}

func (c *S2Compressor) Decompress(data []byte, size int) ([]byte, error) {
	out, err := s2.Decode(make([]byte, size), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return checkSize(out, size)
}

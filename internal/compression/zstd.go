package compression

import (
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor pools encoders and decoders; it is safe for concurrent use.
type ZstdCompressor struct {
	level    zstd.EncoderLevel
	encoders sync.Pool
	decoders sync.Pool
}

func NewZstdCompressor() *ZstdCompressor {
	return NewZstdCompressorLevel(zstd.SpeedDefault)
}

func NewZstdCompressorLevel(level zstd.EncoderLevel) *ZstdCompressor {
	return &ZstdCompressor{level: level}
}

func (c *ZstdCompressor) Name() string {
	return NameZstd
}

func (c *ZstdCompressor) getEncoder() (*zstd.Encoder, error) {
	if v := c.encoders.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level))
}

func (c *ZstdCompressor) getDecoder() (*zstd.Decoder, error) {
	if v := c.decoders.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	enc, err := c.getEncoder()
	if err != nil {
		return nil, err
	}
	defer c.encoders.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

// zstdMaxRatio is the expansion of an RLE block: a 3-byte header and one
// byte for up to 128 KiB of output.
const zstdMaxRatio = 128 << 10 / 4

// MaxDecodedLen uses the frame content size when the header records it and
// the densest possible block encoding otherwise.
func (c *ZstdCompressor) MaxDecodedLen(data []byte) int {
	limit := uint64(len(data)) * zstdMaxRatio
	var h zstd.Header
	if err := h.Decode(data); err != nil {
		return 0
	}
	if h.HasFCS && h.FrameContentSize < limit {
		limit = h.FrameContentSize
	}
	if limit > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(limit)
}

func (c *ZstdCompressor) Decompress(data []byte, size int) ([]byte, error) {
	dec, err := c.getDecoder()
	if err != nil {
		return nil, err
	}
	defer c.decoders.Put(dec)

	out, err := dec.DecodeAll(data, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return checkSize(out, size)
}

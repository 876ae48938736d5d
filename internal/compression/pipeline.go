package compression

import "fmt"

// Block is the result of running a raw row-group block through both stages.
// Both intermediate lengths are persisted so each stage can be reversed into
// an exactly sized buffer.
type Block struct {
	RawLength  int
	OnceLength int
	Data       []byte
}

// Pipeline applies the same codec twice. A second pass over already
// compressed log-like data still shrinks it noticeably.
type Pipeline struct {
	codec Codec
}

func NewPipeline(codec Codec) Pipeline {
	if codec == nil {
		codec = Default()
	}
	return Pipeline{codec: codec}
}

func (p Pipeline) Codec() Codec {
	return p.codec
}

func (p Pipeline) Compress(raw []byte) (Block, error) {
	once, err := p.codec.Compress(raw)
	if err != nil {
		return Block{}, fmt.Errorf("%s first stage: %w", p.codec.Name(), err)
	}
	twice, err := p.codec.Compress(once)
	if err != nil {
		return Block{}, fmt.Errorf("%s second stage: %w", p.codec.Name(), err)
	}
	return Block{RawLength: len(raw), OnceLength: len(once), Data: twice}, nil
}

// Decompress reverses the stages in order: outer first, then inner.
func (p Pipeline) Decompress(b Block) ([]byte, error) {
	if b.RawLength < 0 || b.OnceLength < 0 {
		return nil, fmt.Errorf("%w: negative length", ErrInvalidFormat)
	}
	if limit := p.codec.MaxDecodedLen(b.Data); b.OnceLength > limit {
		return nil, fmt.Errorf("%s outer stage: %w: %d bytes cannot inflate to %d", p.codec.Name(), ErrInvalidFormat, len(b.Data), b.OnceLength)
	}
	once, err := p.codec.Decompress(b.Data, b.OnceLength)
	if err != nil {
		return nil, fmt.Errorf("%s outer stage: %w", p.codec.Name(), err)
	}
	if limit := p.codec.MaxDecodedLen(once); b.RawLength > limit {
		return nil, fmt.Errorf("%s inner stage: %w: %d bytes cannot inflate to %d", p.codec.Name(), ErrInvalidFormat, len(once), b.RawLength)
	}
	raw, err := p.codec.Decompress(once, b.RawLength)
	if err != nil {
		return nil, fmt.Errorf("%s inner stage: %w", p.codec.Name(), err)
	}
	return raw, nil
}

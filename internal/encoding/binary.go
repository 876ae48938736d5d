package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	Version = 1

	// MetadataPointerOffset is where the forward pointer to the metadata
	// section lives. It is written as a placeholder and patched at close.
	MetadataPointerOffset = 5
)

// Magic opens every file.
var Magic = [4]byte{'A', 'S', 'P', 'C'}

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTruncated          = errors.New("truncated input")
	ErrStringTooLong      = errors.New("string longer than 65535 bytes")
	ErrOffsetOverflow     = errors.New("offset does not fit in 32 bits")
)

// FormatError reports malformed input at a byte offset.
type FormatError struct {
	Offset int64
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("format error at offset %d: %s: %v", e.Offset, e.Reason, e.cause)
	}
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

// Errorf wraps cause as a FormatError. Short reads become ErrTruncated.
func Errorf(offset int64, cause error, format string, args ...interface{}) error {
	if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) {
		cause = ErrTruncated
	}
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...), cause: cause}
}

// Encoder writes big-endian primitives and remembers the first error, so a
// run of writes can be checked once at the end.
type Encoder struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Pos returns the number of bytes written so far.
func (e *Encoder) Pos() int64 { return e.n }

// Err returns the first write error.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	e.err = err
}

func (e *Encoder) WriteU8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *Encoder) WriteU16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *Encoder) WriteU32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) WriteI32(v int32) { e.WriteU32(uint32(v)) }

func (e *Encoder) WriteU64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *Encoder) WriteI64(v int64) { e.WriteU64(uint64(v)) }

func (e *Encoder) WriteBytes(p []byte) { e.write(p) }

// WriteString writes a 2-byte length followed by the UTF-8 bytes.
func (e *Encoder) WriteString(s string) {
	if e.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		e.err = fmt.Errorf("%w: %d", ErrStringTooLong, len(s))
		return
	}
	e.WriteU16(uint16(len(s)))
	e.write([]byte(s))
}

// Offset32 narrows a file offset to the 4-byte on-disk form.
func Offset32(off int64) (uint32, error) {
	if off < 0 || off > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d", ErrOffsetOverflow, off)
	}
	return uint32(off), nil
}

// PatchU32 overwrites a previously written placeholder.
func PatchU32(w io.WriterAt, off int64, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	if _, err := w.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("patch at %d: %w", off, err)
	}
	return nil
}

// StringSize is the encoded size of s including its length prefix.
func StringSize(s string) int {
	return 2 + len(s)
}

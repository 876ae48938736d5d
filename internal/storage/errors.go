package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNullCell         = errors.New("cell is null")
	ErrStaleRow         = errors.New("row view invalidated by a later SelectRow")
	ErrRowOutOfRange    = errors.New("row index out of range")
	ErrColumnOutOfRange = errors.New("column index out of range")
	ErrRowGroupNotFound = errors.New("row group index out of range")
	ErrTypeMismatch     = errors.New("accessor does not match column type")
	ErrFieldCount       = errors.New("field count does not match schema")
	ErrValueTooLong     = errors.New("text value longer than 65535 bytes")
	ErrFileTooLarge     = errors.New("file exceeds 32-bit offsets")
	ErrClosed           = errors.New("file is closed")
	ErrInvalidOption    = errors.New("invalid option")
)

// AddressError is returned by the direct accessors for a column whose byte
// offset inside a row is not statically known: it follows a variable-width
// column somewhere earlier in the row.
type AddressError struct {
	Column int
	Reason string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("column %d is not directly addressable: %s", e.Column, e.Reason)
}

package storage

import (
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

// ColumnEncoding is how one column's values are laid out inside a row group.
type ColumnEncoding uint8

const (
	// EncodingNative stores the value at its type's fixed width.
	EncodingNative ColumnEncoding = iota
	// EncodingDictionary stores a 1-byte index into the row group's local
	// dictionary.
	EncodingDictionary
	// EncodingEnum stores a 2-byte index into the file's enum dictionary.
	EncodingEnum
	// EncodingText stores a 2-byte length followed by the UTF-8 bytes.
	EncodingText
)

func (e ColumnEncoding) String() string {
	switch e {
	case EncodingNative:
		return "native"
	case EncodingDictionary:
		return "dictionary"
	case EncodingEnum:
		return "enum"
	case EncodingText:
		return "text"
	}
	return "unknown"
}

// maxDictionarySize is the largest local dictionary a 1-byte index can address.
const maxDictionarySize = 255

// ColumnLayout describes one column of one row group.
type ColumnLayout struct {
	Type       types.DataType
	Encoding   ColumnEncoding
	Dictionary []int64
}

func layoutFor(col types.Column, dictionary []int64) ColumnLayout {
	l := ColumnLayout{Type: col.Type, Dictionary: dictionary}
	switch {
	case len(dictionary) > 0:
		l.Encoding = EncodingDictionary
	case col.HasEnum():
		l.Encoding = EncodingEnum
	case col.Type == types.TextType:
		l.Encoding = EncodingText
	default:
		l.Encoding = EncodingNative
	}
	return l
}

// Width is the encoded size of a non-null value, or types.VariableWidth.
func (l ColumnLayout) Width() int {
	switch l.Encoding {
	case EncodingDictionary:
		return 1
	case EncodingEnum:
		return 2
	case EncodingText:
		return types.VariableWidth
	}
	return l.Type.Width()
}

// fixedLength reports whether every non-null value of col has one width
// regardless of dictionary choice.
func fixedLength(col types.Column) bool {
	return col.HasEnum() || col.Type != types.TextType
}

// columnOffset is a column's byte offset from the start of a row's values.
// Fixed is false once any earlier column has a variable width.
type columnOffset struct {
	Offset int
	Fixed  bool
}

func resolveOffsets(layouts []ColumnLayout) []columnOffset {
	offsets := make([]columnOffset, len(layouts))
	for i := range layouts {
		if i == 0 {
			offsets[i] = columnOffset{Offset: 0, Fixed: true}
			continue
		}
		prev, width := offsets[i-1], layouts[i-1].Width()
		if !prev.Fixed || width == types.VariableWidth {
			continue
		}
		offsets[i] = columnOffset{Offset: prev.Offset + width, Fixed: true}
	}
	return offsets
}

// nullBitmapSize is the number of bytes prefixed to every row.
func nullBitmapSize(numColumns int) int {
	return (numColumns + 7) / 8
}

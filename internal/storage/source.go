package storage

import "io"

// RowSource yields rows of raw text fields, one per column. An empty field
// is a null. Next returns io.EOF after the last row.
type RowSource interface {
	Next() ([]string, error)
}

// SliceSource serves rows from memory.
type SliceSource struct {
	rows [][]string
	pos  int
}

func NewSliceSource(rows [][]string) *SliceSource {
	return &SliceSource{rows: rows}
}

func (s *SliceSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

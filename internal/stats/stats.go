// Package stats keeps per-column aggregates used for predicate pushdown.
// An Accumulator is fed while a file is written; a Snapshot is its frozen
// form, either taken from an Accumulator or decoded from a file.
package stats

import (
	"math"

	"github.com/axiomhq/hyperloglog"
)

// Stats is the read side shared by Accumulator and Snapshot.
type Stats interface {
	Rows() int
	NumColumns() int
	Nulls(col int) int
	Unique(col int) int
	MinLong(col int) int64
	MaxLong(col int) int64
	MinFloat(col int) float32
	MaxFloat(col int) float32
	MinString(col int) string
	MaxString(col int) string
}

// Initial float bounds. The max starts at the smallest positive value, so a
// column holding only negative values reports that value as its max.
const (
	InitialMinFloat = math.MaxFloat32
	InitialMaxFloat = math.SmallestNonzeroFloat32
)

type column struct {
	nulls     int
	minLong   int64
	maxLong   int64
	minFloat  float32
	maxFloat  float32
	minString string
	maxString string
	hasString bool
	sketch    *hyperloglog.Sketch
}

// Accumulator collects statistics in row order. Not safe for concurrent use.
type Accumulator struct {
	rows    int
	columns []column
}

func NewAccumulator(numColumns int) *Accumulator {
	a := &Accumulator{columns: make([]column, numColumns)}
	for i := range a.columns {
		a.columns[i] = column{
			minLong:  math.MaxInt64,
			maxLong:  math.MinInt64,
			minFloat: InitialMinFloat,
			maxFloat: InitialMaxFloat,
			sketch:   hyperloglog.New14(),
		}
	}
	return a
}

// AddRow counts one row, whatever its null columns.
func (a *Accumulator) AddRow() {
	a.rows++
}

// CountUnique feeds the raw field text, including the empty string, to the
// column's cardinality sketch.
func (a *Accumulator) CountUnique(col int, raw string) {
	a.columns[col].sketch.Insert([]byte(raw))
}

func (a *Accumulator) AddNull(col int) {
	a.columns[col].nulls++
}

func (a *Accumulator) AddLong(col int, v int64) {
	c := &a.columns[col]
	if v > c.maxLong {
		c.maxLong = v
	}
	if v < c.minLong {
		c.minLong = v
	}
}

func (a *Accumulator) AddFloat(col int, v float32) {
	c := &a.columns[col]
	if v > c.maxFloat {
		c.maxFloat = v
	}
	if v < c.minFloat {
		c.minFloat = v
	}
}

func (a *Accumulator) AddString(col int, s string) {
	c := &a.columns[col]
	if !c.hasString {
		c.minString, c.maxString, c.hasString = s, s, true
		return
	}
	if s < c.minString {
		c.minString = s
	}
	if s > c.maxString {
		c.maxString = s
	}
}

func (a *Accumulator) Rows() int       { return a.rows }
func (a *Accumulator) NumColumns() int { return len(a.columns) }

func (a *Accumulator) Nulls(col int) int { return a.columns[col].nulls }

func (a *Accumulator) Unique(col int) int {
	est := a.columns[col].sketch.Estimate()
	if est > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(est)
}

func (a *Accumulator) MinLong(col int) int64    { return a.columns[col].minLong }
func (a *Accumulator) MaxLong(col int) int64    { return a.columns[col].maxLong }
func (a *Accumulator) MinFloat(col int) float32 { return a.columns[col].minFloat }
func (a *Accumulator) MaxFloat(col int) float32 { return a.columns[col].maxFloat }
func (a *Accumulator) MinString(col int) string { return a.columns[col].minString }
func (a *Accumulator) MaxString(col int) string { return a.columns[col].maxString }

// Snapshot freezes the current values.
func (a *Accumulator) Snapshot() *Snapshot {
	return Freeze(a)
}

// ColumnStats is one column of a Snapshot.
type ColumnStats struct {
	Nulls     int     `json:"nulls"`
	Unique    int     `json:"unique"`
	MinLong   int64   `json:"min_long"`
	MaxLong   int64   `json:"max_long"`
	MinFloat  float32 `json:"min_float"`
	MaxFloat  float32 `json:"max_float"`
	MinString string  `json:"min_string"`
	MaxString string  `json:"max_string"`
}

// Snapshot is an immutable set of statistics.
type Snapshot struct {
	rows    int
	columns []ColumnStats
}

// Freeze copies any Stats into a Snapshot.
func Freeze(s Stats) *Snapshot {
	snap := &Snapshot{rows: s.Rows(), columns: make([]ColumnStats, s.NumColumns())}
	for i := range snap.columns {
		snap.columns[i] = ColumnStats{
			Nulls:     s.Nulls(i),
			Unique:    s.Unique(i),
			MinLong:   s.MinLong(i),
			MaxLong:   s.MaxLong(i),
			MinFloat:  s.MinFloat(i),
			MaxFloat:  s.MaxFloat(i),
			MinString: s.MinString(i),
			MaxString: s.MaxString(i),
		}
	}
	return snap
}

// NewSnapshot builds a Snapshot from decoded values. columns is retained.
func NewSnapshot(rows int, columns []ColumnStats) *Snapshot {
	return &Snapshot{rows: rows, columns: columns}
}

func (s *Snapshot) Rows() int       { return s.rows }
func (s *Snapshot) NumColumns() int { return len(s.columns) }

// Column returns a copy of the statistics of col.
func (s *Snapshot) Column(col int) ColumnStats { return s.columns[col] }

func (s *Snapshot) Nulls(col int) int        { return s.columns[col].Nulls }
func (s *Snapshot) Unique(col int) int       { return s.columns[col].Unique }
func (s *Snapshot) MinLong(col int) int64    { return s.columns[col].MinLong }
func (s *Snapshot) MaxLong(col int) int64    { return s.columns[col].MaxLong }
func (s *Snapshot) MinFloat(col int) float32 { return s.columns[col].MinFloat }
func (s *Snapshot) MaxFloat(col int) float32 { return s.columns[col].MaxFloat }
func (s *Snapshot) MinString(col int) string { return s.columns[col].MinString }
func (s *Snapshot) MaxString(col int) string { return s.columns[col].MaxString }

package storage

import (
	"math"

	"github.com/goccy/go-json"

	"github.com/ivan-cunha/aspic-format/internal/stats"
	"github.com/ivan-cunha/aspic-format/pkg/types"
)

type ColumnSummary struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	EnumValues int         `json:"enum_values,omitempty"`
	Nulls      int         `json:"nulls"`
	Unique     int         `json:"unique"`
	Min        interface{} `json:"min"`
	Max        interface{} `json:"max"`
}

type RowGroupSummary struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
	Rows   int   `json:"rows"`
}

// Summary describes a file without decoding any row group.
type Summary struct {
	Version   uint8             `json:"version"`
	Codec     string            `json:"codec"`
	Rows      int               `json:"rows"`
	Columns   []ColumnSummary   `json:"columns"`
	RowGroups []RowGroupSummary `json:"row_groups"`
}

func (r *Reader) Summary() Summary {
	s := Summary{
		Version:   r.header.Version,
		Codec:     r.pipeline.Codec().Name(),
		Rows:      r.docStats.Rows(),
		Columns:   make([]ColumnSummary, r.schema.NumColumns()),
		RowGroups: make([]RowGroupSummary, len(r.groups)),
	}
	for i, col := range r.catalog.Columns {
		cs := ColumnSummary{
			Name:       col.Name,
			Type:       col.Type.String(),
			EnumValues: len(col.EnumValues),
			Nulls:      r.docStats.Nulls(i),
			Unique:     r.docStats.Unique(i),
		}
		cs.Min, cs.Max = bounds(r.docStats, i, col.Type)
		s.Columns[i] = cs
	}
	for i, g := range r.groups {
		s.RowGroups[i] = RowGroupSummary{Offset: g.Offset, Length: g.Length, Rows: r.rgStats[i].Rows()}
	}
	return s
}

// bounds renders min/max for display. Columns without non-null values
// report nil.
func bounds(st stats.Stats, col int, dt types.DataType) (interface{}, interface{}) {
	if st.Rows() == st.Nulls(col) {
		return nil, nil
	}
	switch dt {
	case types.TextType:
		return st.MinString(col), st.MaxString(col)
	case types.RealType:
		lo, hi := st.MinFloat(col), st.MaxFloat(col)
		if !finite(lo) || !finite(hi) {
			return nil, nil
		}
		return lo, hi
	case types.BooleanType:
		return st.MinLong(col) != 0, st.MaxLong(col) != 0
	case types.DateType:
		return types.DaysToTime(st.MinLong(col)).Format("2006-01-02"), types.DaysToTime(st.MaxLong(col)).Format("2006-01-02")
	case types.TimestampType:
		return types.MillisToTime(st.MinLong(col)), types.MillisToTime(st.MaxLong(col))
	}
	return st.MinLong(col), st.MaxLong(col)
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// JSON renders the summary as indented JSON.
func (s Summary) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

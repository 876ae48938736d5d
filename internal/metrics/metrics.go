// Package metrics holds the Prometheus collectors for file writing and
// reading. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RowsWritten          prometheus.Counter
	RowGroupsWritten     prometheus.Counter
	RawBytes             prometheus.Counter
	CompressedBytes      prometheus.Counter
	RowGroupsDecoded     prometheus.Counter
	DictionaryColumns    prometheus.Counter
	RowGroupDecodeErrors prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_rows_written_total",
			Help: "Rows appended to files",
		}),
		RowGroupsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_row_groups_written_total",
			Help: "Row groups flushed to files",
		}),
		RawBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_row_group_raw_bytes_total",
			Help: "Uncompressed bytes of flushed row groups",
		}),
		CompressedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_row_group_compressed_bytes_total",
			Help: "Bytes of flushed row groups after both compression stages",
		}),
		RowGroupsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_row_groups_decoded_total",
			Help: "Row groups decompressed and parsed by readers",
		}),
		DictionaryColumns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_dictionary_columns_total",
			Help: "Row group columns encoded through a local dictionary",
		}),
		RowGroupDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aspic_row_group_decode_errors_total",
			Help: "Row groups that failed to decode",
		}),
	}

	reg.MustRegister(
		m.RowsWritten,
		m.RowGroupsWritten,
		m.RawBytes,
		m.CompressedBytes,
		m.RowGroupsDecoded,
		m.DictionaryColumns,
		m.RowGroupDecodeErrors,
	)
	return m
}

func (m *Metrics) RowWritten() {
	if m == nil {
		return
	}
	m.RowsWritten.Inc()
}

// RowGroupWritten records one flushed row group.
func (m *Metrics) RowGroupWritten(rawBytes, compressedBytes, dictionaryColumns int) {
	if m == nil {
		return
	}
	m.RowGroupsWritten.Inc()
	m.RawBytes.Add(float64(rawBytes))
	m.CompressedBytes.Add(float64(compressedBytes))
	m.DictionaryColumns.Add(float64(dictionaryColumns))
}

func (m *Metrics) RowGroupDecoded(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.RowGroupDecodeErrors.Inc()
		return
	}
	m.RowGroupsDecoded.Inc()
}

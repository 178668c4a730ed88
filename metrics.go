package rowfilter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row group outcomes reported by the row_groups_total metric.
const (
	resultPrunedStatistics  = "pruned_statistics"
	resultPrunedBloomFilter = "pruned_bloom_filter"
	resultPrunedPageIndex   = "pruned_page_index"
	resultFiltered          = "filtered"
	resultEmitted           = "emitted"
)

// Metrics groups the prometheus collectors updated by readers. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RowGroups      *prometheus.CounterVec
	PagesPruned    prometheus.Counter
	RowsFiltered   prometheus.Counter
	RowsEmitted    prometheus.Counter
	ColumnsDecoded prometheus.Counter
	Batches        prometheus.Counter
}

// NewMetrics creates the reader metrics and registers them with reg. When reg
// is nil the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowGroups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rowfilter",
			Name:      "row_groups_total",
			Help:      "Number of row groups read, by outcome",
		}, []string{"result"}),
		PagesPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rowfilter",
			Name:      "pages_pruned_total",
			Help:      "Number of pages skipped using the page index",
		}),
		RowsFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rowfilter",
			Name:      "rows_filtered_total",
			Help:      "Number of rows eliminated by predicates",
		}),
		RowsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rowfilter",
			Name:      "rows_emitted_total",
			Help:      "Number of rows returned in batches",
		}),
		ColumnsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rowfilter",
			Name:      "columns_decoded_total",
			Help:      "Number of column chunks decoded",
		}),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rowfilter",
			Name:      "batches_total",
			Help:      "Number of batches returned",
		}),
	}
}

func (m *Metrics) rowGroup(result string) {
	if m != nil {
		m.RowGroups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) pagesPruned(n int) {
	if m != nil && n > 0 {
		m.PagesPruned.Add(float64(n))
	}
}

func (m *Metrics) rowsFiltered(n int) {
	if m != nil && n > 0 {
		m.RowsFiltered.Add(float64(n))
	}
}

func (m *Metrics) columnDecoded() {
	if m != nil {
		m.ColumnsDecoded.Inc()
	}
}

func (m *Metrics) batch(rows int64) {
	if m != nil {
		m.Batches.Inc()
		m.RowsEmitted.Add(float64(rows))
	}
}

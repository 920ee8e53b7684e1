package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry 本进程的指标注册表
	Registry = prometheus.NewRegistry()

	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebook_ingestions_total",
			Help: "Price list ingestion runs by result",
		},
		[]string{"status"},
	)

	IngestedCellsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricebook_ingested_cells_total",
			Help: "Price cells written by successful ingestion runs",
		},
	)

	PriceCalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebook_price_calculations_total",
			Help: "Price calculations by result",
		},
		[]string{"status"},
	)

	QuoteRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebook_quote_rows_total",
			Help: "Bulk quotation import rows by classification",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		IngestionsTotal,
		IngestedCellsTotal,
		PriceCalculationsTotal,
		QuoteRowsTotal,
		prometheus.NewGoCollector(),
	)
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

package stats

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func MilisecondsElapsed(from time.Time) float64 {
	return float64(time.Since(from)) / float64(time.Millisecond)
}

var (
	prometheusMetricsFactory promauto.Factory            = promauto.With(prometheus.DefaultRegisterer)
	gauges                   map[string]prometheus.Gauge = map[string]prometheus.Gauge{
		"storedStreams": prometheusMetricsFactory.NewGauge(prometheus.GaugeOpts{
			Name: "journal_store_streams",
			Help: "The number of streams known by the store.",
		}),
		"storedRecords": prometheusMetricsFactory.NewGauge(prometheus.GaugeOpts{
			Name: "journal_store_records",
			Help: "The number of records held by the store.",
		}),
	}
	histograms map[string]prometheus.Histogram = map[string]prometheus.Histogram{
		"sequencerQueueWait": prometheusMetricsFactory.NewHistogram(prometheus.HistogramOpts{
			Name:    "journal_sequencer_queue_wait_milliseconds",
			Help:    "The time elapsed between a request submission and its pickup by the sequencer.",
			Buckets: []float64{0.05, 0.5, 1, 5, 50, 100},
		}),
	}
	histogramVecs map[string]*prometheus.HistogramVec = map[string]*prometheus.HistogramVec{
		"sequencerProcessing": prometheusMetricsFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journal_sequencer_processing_time_milliseconds",
			Help:    "The time elapsed processing a request inside the sequencer.",
			Buckets: []float64{0.01, 0.1, 1, 5, 50},
		}, []string{"operation"}),
		"journalCalls": prometheusMetricsFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journal_call_time_milliseconds",
			Help:    "The time elapsed serving a journal call, from validation to store reply.",
			Buckets: []float64{0.1, 1, 5, 50, 100},
		}, []string{"operation", "result"}),
	}
	counterVecs map[string]*prometheus.CounterVec = map[string]*prometheus.CounterVec{
		"appendedRecords": prometheusMetricsFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "journal_appended_records_total",
			Help: "The number of records submitted for append, by result.",
		}, []string{"result"}),
	}
)

func HistogramVec(name string) *prometheus.HistogramVec {
	return histogramVecs[name]
}

func CounterVec(name string) *prometheus.CounterVec {
	return counterVecs[name]
}

func Histogram(name string) prometheus.Histogram {
	return histograms[name]
}
func Gauge(name string) prometheus.Gauge {
	return gauges[name]
}

func ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
}

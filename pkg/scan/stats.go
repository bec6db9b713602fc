package scan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "scan_records_total",
		Help:      "Records produced by scans.",
	})
	metricBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "scan_batches_total",
		Help:      "Batches received from readers, including empty ones.",
	})
	metricSchemaChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "scan_schema_changes_total",
		Help:      "Batches that carried a new schema.",
	})
	metricReaders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "scan_readers_total",
		Help:      "Readers set up by scans.",
	})
	metricProcessingSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "scan_processing_seconds_total",
		Help:      "Time spent inside scan polls.",
	})
)

// Stats are the operator statistics of one scan.
type Stats struct {
	Batches        int64
	Records        int64
	SchemaChanges  int64
	Readers        int64
	ProcessingTime time.Duration
}

func (s *Stats) batchReceived(records int, newSchema bool) {
	s.Batches++
	s.Records += int64(records)
	metricBatches.Inc()
	metricRecords.Add(float64(records))
	if newSchema {
		s.SchemaChanges++
		metricSchemaChanges.Inc()
	}
}

func (s *Stats) readerStarted() {
	s.Readers++
	metricReaders.Inc()
}

func (s *Stats) processing(start time.Time) {
	d := time.Since(start)
	s.ProcessingTime += d
	metricProcessingSeconds.Add(d.Seconds())
}

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("acs_batches_ingested_total", 5)
	if got := testutil.ToFloat64(obs.counters["acs_batches_ingested_total"]); got != 5 {
		t.Fatalf("expected ingest counter 5, got %f", got)
	}

	obs.IncCounter("acs_sequence_gap_total", 1)
	if got := testutil.ToFloat64(obs.counters["acs_sequence_gap_total"]); got != 1 {
		t.Fatalf("expected gap counter 1, got %f", got)
	}

	obs.SetGauge("acs_buffer_samples", 4096)
	if got := testutil.ToFloat64(obs.gauges["acs_buffer_samples"]); got != 4096 {
		t.Fatalf("expected buffer gauge 4096, got %f", got)
	}

	obs.ObserveLatency("acs_decode_latency_seconds", 0.25)
	hCollector := obs.histos["acs_decode_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.RecordDroppedCapture(&domain.Capture{Start: 0, End: 10}, nil)
	if got := testutil.ToFloat64(obs.counters["acs_capture_dropped_total"]); got != 1 {
		t.Fatalf("expected dropped counter 1, got %f", got)
	}
}

package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_batches_ingested_total",
		Help: "Sample batches ingested into the sample buffer.",
	})
	captures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_captures_total",
		Help: "Finalized captures emitted to sinks.",
	})
	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_frames_decoded_total",
		Help: "Protocol frames decoded across all decoders.",
	})
	gaps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_sequence_gap_total",
		Help: "Acquisitions aborted due to dropped sample transfers.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_capture_dropped_total",
		Help: "Captures lost because the dispatch queue was full.",
	})
	stalled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_normal_search_stalled_total",
		Help: "Normal-mode searches that exceeded the configured timeout without a trigger.",
	})
	bufGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acs_buffer_samples",
		Help: "Current sample count per channel in the live buffer.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acs_capture_queue_length",
		Help: "Captures waiting for sink dispatch.",
	})
	archiveGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acs_archive_size_bytes",
		Help: "Size of the capture archive on disk.",
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "acs_sink_latency_seconds",
		Help:    "Latency of one sink consuming one finalized capture.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	decodeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "acs_decode_latency_seconds",
		Help:    "Latency of one protocol decode pass over a capture.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(batches, captures, frames, gaps, dropped, stalled,
		bufGauge, queueGauge, archiveGauge, sinkLatency, decodeLatency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"acs_batches_ingested_total":      batches,
			"acs_captures_total":              captures,
			"acs_frames_decoded_total":        frames,
			"acs_sequence_gap_total":          gaps,
			"acs_capture_dropped_total":       dropped,
			"acs_normal_search_stalled_total": stalled,
		},
		gauges: map[string]prometheus.Gauge{
			"acs_buffer_samples":       bufGauge,
			"acs_capture_queue_length": queueGauge,
			"acs_archive_size_bytes":   archiveGauge,
		},
		histos: map[string]prometheus.Observer{
			"acs_sink_latency_seconds":   sinkLatency,
			"acs_decode_latency_seconds": decodeLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDroppedCapture(c *domain.Capture, err error) {
	p.IncCounter("acs_capture_dropped_total", 1)
	if err != nil {
		log.Printf("dropped capture region=[%d,%d) err=%v", c.Start, c.End, err)
	}
}

var _ ports.Observability = (*PromObs)(nil)

package analyzer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/acquire"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/archive"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/device"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/filter"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/observability"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/queue"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/sink"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/decode"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	device  ports.DeviceAdapter
	queue   ports.CaptureQueue
	archive ports.CaptureArchive
	filter  ports.BatchFilter
	obs     ports.Observability
	sinks   []ports.CaptureSink
}

// WithDeviceAdapter injects a custom sample source (USB pods, replay files,
// simulators with bespoke waveforms).
func WithDeviceAdapter(d DeviceAdapter) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.device = d
	}
}

// WithCaptureQueue swaps the in-memory dispatch queue for a caller-provided
// implementation.
func WithCaptureQueue(q CaptureQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithArchive lets callers bring their own capture archive or reuse an
// existing instance.
func WithArchive(a CaptureArchive) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.archive = a
	}
}

// WithBatchFilter overrides the default analog front-end filter.
func WithBatchFilter(f BatchFilter) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.filter = f
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.obs = obs
	}
}

// WithCaptureSink registers an additional capture consumer alongside the
// built-in archive and results sinks. May be given multiple times.
func WithCaptureSink(s CaptureSink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sinks = append(o.sinks, s)
	}
}

// Runtime wires up the device → buffer/trigger → queue → sinks pipeline and
// exposes simple lifecycle hooks for embedding the analyzer in any Go service.
type Runtime struct {
	cfg        *Config
	controller *acquire.Controller
	adapter    ports.DeviceAdapter
	queue      ports.CaptureQueue
	archive    ports.CaptureArchive
	analysis   *sink.AnalysisSink
	obs        ports.Observability
	db         *sql.DB

	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewRuntime bootstraps the default adapters (configured device, file archive,
// in-memory queue, built-in analysis sink, optional Postgres results sink,
// Prometheus observability). Callers can use RuntimeOption values to override
// any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var (
		arc ports.CaptureArchive
		err error
	)
	if overrides.archive != nil {
		arc = overrides.archive
	} else {
		arc, err = archive.NewFileArchive(cfg.Archive.Dir)
		if err != nil {
			return nil, err
		}
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.CaptureQueueLen)
	}

	adapter := overrides.device
	if adapter == nil {
		adapter, err = buildDevice(cfg)
		if err != nil {
			return nil, err
		}
	}

	f := overrides.filter
	if f == nil {
		f = filter.NewFrontEnd()
	}

	decoders, err := buildDecoders(cfg)
	if err != nil {
		return nil, err
	}
	analysis, err := sink.NewAnalysisSink(cfg.Spectral.Window, obs, decoders...)
	if err != nil {
		return nil, err
	}
	sinks := []ports.CaptureSink{&archiveSink{archive: arc}, analysis}

	var db *sql.DB
	if cfg.Postgres.ConnString != "" {
		db, err = sql.Open("postgres", cfg.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink.NewPostgresSink(db, cfg.Postgres.MeasurementsTable, cfg.Postgres.FramesTable, decoders...))
	}
	sinks = append(sinks, overrides.sinks...)

	controller := acquire.New(adapter, q, cfg.Policy, obs)
	controller.SetFilter(f)
	for _, s := range sinks {
		controller.AddSink(s)
	}

	rt := &Runtime{
		cfg:        cfg,
		controller: controller,
		adapter:    adapter,
		queue:      q,
		archive:    arc,
		analysis:   analysis,
		obs:        obs,
		db:         db,
	}

	if err := rt.replayUncommitted(sinks); err != nil {
		_ = rt.closeResources()
		return nil, err
	}
	return rt, nil
}

// Controller exposes the acquisition controller for trigger state inspection
// and manual Stop/rearm control.
func (r *Runtime) Controller() *acquire.Controller { return r.controller }

// Archive exposes the capture archive for ad-hoc loads.
func (r *Runtime) Archive() CaptureArchive { return r.archive }

// Analysis exposes the built-in analysis sink; Analysis().Latest() holds the
// measurements, spectra and decoded frames of the most recent capture.
func (r *Runtime) Analysis() *AnalysisSink { return r.analysis }

// Start connects the device, begins acquisition with the configured channels
// and trigger, and launches the metrics endpoint. It returns immediately;
// call Run to block on a context instead.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if err := r.adapter.Connect(ctx); err != nil {
		return err
	}
	if err := r.controller.Start(ctx, r.cfg.Channels, r.cfg.Trigger, r.cfg.SampleRate); err != nil {
		_ = r.adapter.Disconnect()
		return err
	}
	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops acquisition, flushes the dispatch queue, and releases the
// device, metrics server, and database connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}

	r.controller.Stop()
	r.controller.Wait()

	// A drained dispatch queue means every sink has seen every capture.
	if stats := r.archive.Stats(); stats.LatestSaved > 0 {
		if err := r.archive.Commit(stats.LatestSaved); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runtime) closeResources() error {
	var errs []error
	if r.adapter != nil {
		if err := r.adapter.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := r.archive.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("acs_archive_size_bytes", float64(r.archive.Stats().SizeBytes))
			r.obs.SetGauge("acs_capture_queue_length", float64(r.queue.Len()))
			if buf := r.controller.Buffer(); buf != nil {
				r.obs.SetGauge("acs_buffer_samples", float64(buf.Len()))
			}
		}
	}
}

// replayUncommitted re-delivers archived captures that were never fully
// processed, so a crash between archive write and results write does not lose
// measurements. The archive sink is skipped because the records already exist.
func (r *Runtime) replayUncommitted(sinks []ports.CaptureSink) error {
	stats := r.archive.Stats()
	if stats.LatestSaved == 0 || stats.OldestUncommitted == 0 || stats.OldestUncommitted > stats.LatestSaved {
		return nil
	}

	var replayed int
	err := r.archive.Iterate(stats.OldestUncommitted, func(id ports.CaptureID, c *Capture) error {
		for _, s := range sinks {
			if _, isArchive := s.(*archiveSink); isArchive {
				continue
			}
			if err := s.Consume(c); err != nil {
				return fmt.Errorf("replay to sink %s: %w", s.Name(), err)
			}
		}
		replayed++
		return r.archive.Commit(id)
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		r.obs.LogInfo("archive_replay_complete",
			ports.Field{Key: "captures", Value: replayed},
			ports.Field{Key: "from_id", Value: stats.OldestUncommitted})
	}
	return nil
}

func buildDevice(cfg *Config) (ports.DeviceAdapter, error) {
	switch cfg.Device.Kind {
	case "simulator":
		return device.NewSimulator(cfg.Device.Seed, cfg.Policy.BatchSize, batchInterval(cfg)), nil
	case "opcua":
		return device.NewOPCUABridge(cfg.Device.OPCUA)
	default:
		return nil, fmt.Errorf("unknown device kind %q", cfg.Device.Kind)
	}
}

// batchInterval paces the simulator so one batch spans the wall time it would
// take real hardware to sample it.
func batchInterval(cfg *Config) time.Duration {
	if cfg.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(cfg.Policy.BatchSize) / cfg.SampleRate * float64(time.Second))
}

func buildDecoders(cfg *Config) ([]decode.Decoder, error) {
	decoders := make([]decode.Decoder, 0, len(cfg.Decoders))
	for i, dc := range cfg.Decoders {
		d, err := decode.New(dc)
		if err != nil {
			return nil, fmt.Errorf("decoder %d: %w", i, err)
		}
		decoders = append(decoders, d)
	}
	return decoders, nil
}

// archiveSink persists every finalized capture. Commits happen during replay
// once downstream sinks have seen the record.
type archiveSink struct {
	archive ports.CaptureArchive
}

func (s *archiveSink) Consume(c *Capture) error {
	_, err := s.archive.Save(c)
	return err
}

func (s *archiveSink) Name() string { return "archive" }

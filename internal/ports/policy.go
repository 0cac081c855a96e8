package ports

import "time"

// Policy carries the explicit acquisition constants the engine needs. The
// timeout values are expressed in samples scanned, not wall time, so every
// acquisition cycle is deterministic for a given input stream.
type Policy struct {
	BatchSize            int           `yaml:"batch_size"`
	BufferCapacity       int           `yaml:"buffer_capacity"`
	PostTriggerSamples   int           `yaml:"post_trigger_samples"`
	AutoTimeoutSamples   int           `yaml:"auto_timeout_samples"`
	NormalTimeoutSamples int           `yaml:"normal_timeout_samples"`
	CaptureQueueLen      int           `yaml:"capture_queue_len"`
	IdleSleep            time.Duration `yaml:"idle_sleep"`
}

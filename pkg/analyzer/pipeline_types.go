package analyzer

import (
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// Capture is the immutable record of one completed acquisition cycle. It is
// exported so custom sinks and archives can reference it directly.
type Capture = domain.Capture

// SampleBatch is one contiguous chunk of per-channel samples from a device.
type SampleBatch = domain.SampleBatch

// Channel is the per-input configuration active during a capture.
type Channel = domain.Channel

// TriggerSpec is the trigger condition for one capture run.
type TriggerSpec = domain.TriggerSpec

// DecodedFrame is one protocol frame recovered from a capture.
type DecodedFrame = domain.DecodedFrame

// MeasurementResult is one scalar measurement over a capture region.
type MeasurementResult = domain.MeasurementResult

// DeviceAdapter streams sample batches from any acquisition source into the
// engine (USB pods, OPC UA bridges, simulators).
type DeviceAdapter = ports.DeviceAdapter

// CaptureSink consumes finalized captures downstream of the dispatch queue.
type CaptureSink = ports.CaptureSink

// CaptureQueue is the bounded queue between acquisition and sinks.
type CaptureQueue = ports.CaptureQueue

// BatchFilter preprocesses raw batches before they reach the sample buffer.
type BatchFilter = ports.BatchFilter

// CaptureArchive persists finalized captures for later reload.
type CaptureArchive = ports.CaptureArchive

// CaptureID identifies one archived capture record.
type CaptureID = ports.CaptureID

// ArchiveStats exposes archive occupancy for observability.
type ArchiveStats = ports.ArchiveStats

// Observability emits metrics and logs about the acquisition pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

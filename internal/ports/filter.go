package ports

import "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"

// BatchFilter preprocesses raw batches between the device adapter and the
// sample buffer (bandwidth limiting, calibration offsets). Filters must keep
// sample counts and indices intact.
type BatchFilter interface {
	Apply(b *domain.SampleBatch, channels []domain.Channel) (*domain.SampleBatch, error)
	Version() uint16
}

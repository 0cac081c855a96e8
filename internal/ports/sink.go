package ports

import "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"

// CaptureSink receives each finalized capture exactly once per acquisition
// cycle. Sinks run off the acquisition goroutine and may take their time.
type CaptureSink interface {
	Consume(c *domain.Capture) error
	Name() string
}

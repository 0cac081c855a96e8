package ports

import (
	"context"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// DeviceAdapter is the hardware boundary of the engine. Concrete adapters
// (USB pods, OPC UA bridged instruments, simulators) are swappable behind it;
// the core never references a specific driver.
type DeviceAdapter interface {
	Connect(ctx context.Context) error
	Configure(channels []domain.Channel, sampleRate float64) error
	// ReadBatch blocks until the next batch is available. The returned batch
	// is owned by the caller; the adapter must not retain it.
	ReadBatch() (*domain.SampleBatch, error)
	Disconnect() error
}

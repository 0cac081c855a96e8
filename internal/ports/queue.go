package ports

import "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"

// CaptureQueue decouples the acquisition goroutine from capture consumers.
// Enqueue must never block; a false return means the queue is full and the
// capture is dropped (counted, never silently).
type CaptureQueue interface {
	Enqueue(c *domain.Capture) bool
	Dequeue() (*domain.Capture, bool)
	Len() int
}

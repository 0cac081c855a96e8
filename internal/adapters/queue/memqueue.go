package queue

import (
	"sync"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// MemQueue is a bounded in-memory capture queue preserving FIFO ordering. It
// sits between the acquisition goroutine and the capture sinks so acquisition
// never waits on analysis.
type MemQueue struct {
	mu   sync.Mutex
	data []*domain.Capture
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{
		data: make([]*domain.Capture, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(c *domain.Capture) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, c)
	return true
}

func (q *MemQueue) Dequeue() (*domain.Capture, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil, false
	}
	c := q.data[0]
	q.data = append(q.data[:0], q.data[1:]...)
	return c, true
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.CaptureQueue = (*MemQueue)(nil)

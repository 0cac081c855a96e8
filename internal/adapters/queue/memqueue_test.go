package queue

import (
	"testing"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

func TestMemQueueFIFO(t *testing.T) {
	q := NewMemQueue(4)

	c1 := &domain.Capture{Start: 0, End: 10}
	c2 := &domain.Capture{Start: 10, End: 20}

	if !q.Enqueue(c1) || !q.Enqueue(c2) {
		t.Fatalf("expected successful enqueue")
	}

	got, ok := q.Dequeue()
	if !ok || got.Start != 0 {
		t.Fatalf("unexpected first capture: %+v", got)
	}
	got, ok = q.Dequeue()
	if !ok || got.Start != 10 {
		t.Fatalf("unexpected second capture: %+v", got)
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("queue should be empty")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	c := &domain.Capture{}
	if !q.Enqueue(c) || !q.Enqueue(c) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(c) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.Dequeue()
	if !q.Enqueue(c) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
}

package ports

import "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"

// CaptureID identifies one archived capture record.
type CaptureID uint64

// CaptureArchive persists finalized captures in a self-describing format.
// Round-trip identity is required: a loaded capture carries the same channel
// configuration, trigger spec, sample rate and raw samples it was saved with.
type CaptureArchive interface {
	Save(c *domain.Capture) (CaptureID, error)
	Load(id CaptureID) (*domain.Capture, error)
	Iterate(from CaptureID, fn func(id CaptureID, c *domain.Capture) error) error
	Commit(upto CaptureID) error
	Stats() ArchiveStats
}

// ArchiveStats summarizes archive occupancy.
type ArchiveStats struct {
	OldestUncommitted CaptureID
	LatestSaved       CaptureID
	SizeBytes         int64
}

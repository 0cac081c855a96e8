package archive

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

const recordHeaderLen = 12

// ErrNotFound means no archived capture carries the requested id.
var ErrNotFound = errors.New("capture not in archive")

// FileArchive persists captures to an append-only log of self-describing JSON
// records, one file per archive directory. A partial trailing record from an
// interrupted write is truncated away on reopen.
type FileArchive struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.CaptureID
	committed ports.CaptureID
	sizeBytes int64
}

func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "captures.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	a := &FileArchive{
		path:     path,
		metaPath: filepath.Join(dir, "captures.meta"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 1<<20),
	}
	if err := a.bootstrap(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func (a *FileArchive) bootstrap() error {
	if err := a.scanExisting(); err != nil {
		return err
	}
	if err := a.loadCommitted(); err != nil {
		return err
	}
	if a.nextID < a.committed {
		a.nextID = a.committed
	}
	_, err := a.file.Seek(0, io.SeekEnd)
	return err
}

func (a *FileArchive) scanExisting() error {
	stat, err := os.Stat(a.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil || stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(a.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		lastID ports.CaptureID
	)

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if err := a.file.Truncate(offset); err != nil {
					return err
				}
				break
			}
			return fmt.Errorf("archive scan header: %w", err)
		}
		id := ports.CaptureID(binary.BigEndian.Uint64(hdr[0:8]))
		length := binary.BigEndian.Uint32(hdr[8:12])
		offset += recordHeaderLen

		if length > 0 {
			if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					if err := a.file.Truncate(offset); err != nil {
						return err
					}
					break
				}
				return fmt.Errorf("archive scan body: %w", err)
			}
			offset += int64(length)
		}
		lastID = id
	}

	if err := a.file.Truncate(offset); err != nil {
		return err
	}
	a.sizeBytes = offset
	a.nextID = lastID
	return nil
}

func (a *FileArchive) loadCommitted() error {
	data, err := os.ReadFile(a.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("archive meta parse: %w", err)
	}
	a.committed = ports.CaptureID(u)
	return nil
}

func (a *FileArchive) Save(c *domain.Capture) (ports.CaptureID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID + 1

	b, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}

	// record format: [8 bytes id][4 bytes len][len bytes json]
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := a.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := a.writer.Write(b); err != nil {
		return 0, err
	}

	a.nextID = id
	a.sizeBytes += int64(len(b) + len(hdr))
	return id, nil
}

func (a *FileArchive) Load(id ports.CaptureID) (*domain.Capture, error) {
	var found *domain.Capture
	err := a.Iterate(id, func(rid ports.CaptureID, c *domain.Capture) error {
		if rid == id {
			found = c
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return found, nil
}

var errStopIteration = errors.New("stop iteration")

func (a *FileArchive) Iterate(from ports.CaptureID, fn func(id ports.CaptureID, c *domain.Capture) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(a.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("archive iterate truncated header: %w", err)
		}
		id := ports.CaptureID(binary.BigEndian.Uint64(hdr[0:8]))
		l := binary.BigEndian.Uint32(hdr[8:12])

		b := make([]byte, l)
		if _, err := io.ReadFull(r, b); err != nil {
			return fmt.Errorf("corrupt archive record: %w", err)
		}
		if id < from {
			continue
		}

		var c domain.Capture
		if err := json.Unmarshal(b, &c); err != nil {
			return fmt.Errorf("corrupt archive record: %w", err)
		}
		if err := fn(id, &c); err != nil {
			return err
		}
	}
}

func (a *FileArchive) Commit(upto ports.CaptureID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if upto > a.committed {
		a.committed = upto
	}
	return a.persistMetaLocked()
}

func (a *FileArchive) Stats() ports.ArchiveStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ports.ArchiveStats{
		OldestUncommitted: a.committed + 1,
		LatestSaved:       a.nextID,
		SizeBytes:         a.sizeBytes,
	}
}

// Close flushes buffered records and closes the log file.
func (a *FileArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writer.Flush(); err != nil {
		a.file.Close()
		return err
	}
	return a.file.Close()
}

func (a *FileArchive) persistMetaLocked() error {
	data := []byte(fmt.Sprintf("%d\n", a.committed))
	return os.WriteFile(a.metaPath, data, 0o644)
}

var _ ports.CaptureArchive = (*FileArchive)(nil)

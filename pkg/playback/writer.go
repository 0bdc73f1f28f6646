package playback

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer appends captured messages to a recording file. The metadata
// header is written on creation with open end times and patched on
// Close, so a crash leaves a readable, truncation-tolerant file.
type Writer struct {
	mu    sync.Mutex
	file  *os.File
	start time.Time
	meta  Metadata
}

// DefaultFileName builds a unique recording name under dir.
func DefaultFileName(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("recording-%s.colraw", uuid.NewString()))
}

// NewWriter creates the recording file and writes its metadata
// header.
func NewWriter(path string, radarIP netip.Addr) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("playback: create recording: %w", err)
	}

	start := time.Now()
	w := &Writer{
		file:  file,
		start: start,
		meta: Metadata{
			StartWallMicros:  uint64(start.UnixMicro()),
			StartTicksMicros: uint64(start.UnixMicro()),
			RadarIP:          radarIP,
		},
	}
	if _, err := file.Write(w.meta.encode()); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("playback: write metadata: %w", err)
	}
	return w, nil
}

// Append records one message. The offset is taken from the monotonic
// clock relative to the writer's creation.
func (w *Writer) Append(transport Transport, message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := Record{
		OffsetMicros: uint64(time.Since(w.start).Microseconds()),
		Transport:    transport,
		Data:         message,
	}
	return writeRecord(w.file, rec)
}

// Close patches the end timestamps into the header and closes the
// file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := time.Since(w.start)
	w.meta.EndWallMicros = uint64(w.start.Add(elapsed).UnixMicro())
	w.meta.EndTicksMicros = w.meta.StartTicksMicros + uint64(elapsed.Microseconds())

	if _, err := w.file.WriteAt(w.meta.encode(), 0); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("playback: patch metadata: %w", err)
	}
	return w.file.Close()
}

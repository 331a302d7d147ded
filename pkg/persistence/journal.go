package persistence

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// SyncPolicy controls when appended records reach stable storage.
type SyncPolicy string

const (
	// SyncAlways fsyncs after every record.
	SyncAlways SyncPolicy = "always"
	// SyncInterval leaves durability to RunFlusher.
	SyncInterval SyncPolicy = "interval"
	// SyncNever only flushes on Close and Truncate.
	SyncNever SyncPolicy = "never"
)

// DefaultFlushInterval is the flusher period used when none is configured.
const DefaultFlushInterval = time.Second

// Journal is the append-only decision log of a proofreading session.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	fw     *FrameWriter
	path   string
	policy SyncPolicy
	size   int64
	dirty  bool
}

// OpenJournal opens or creates the journal at path. A torn tail left by a
// crash is cut off so that new records follow the last valid frame.
func OpenJournal(path string, policy SyncPolicy) (*Journal, error) {
	switch policy {
	case SyncAlways, SyncInterval, SyncNever:
	case "":
		policy = SyncInterval
	default:
		return nil, fmt.Errorf("unknown journal sync policy %q", policy)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// 1. Find the valid prefix.
	valid, _, err := Replay(bufio.NewReader(file), nil)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	// 2. Drop anything after it.
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.Size() > valid {
		slog.Warn("Truncating torn journal tail", "path", path, "valid_bytes", valid, "file_bytes", info.Size())
		if err := file.Truncate(valid); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to truncate journal tail: %w", err)
		}
	}

	buf := bufio.NewWriter(file)
	return &Journal{
		file:   file,
		buf:    buf,
		fw:     NewFrameWriter(buf),
		path:   path,
		policy: policy,
		size:   valid,
	}, nil
}

// Append writes a record. With SyncAlways the record is on disk when
// Append returns.
func (j *Journal) Append(r Record) error {
	payload, err := r.encode()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	n, err := j.fw.WriteFrame(r.Op, payload)
	j.size += int64(n)
	if err != nil {
		return fmt.Errorf("append %s record: %w", r.Op, err)
	}
	j.dirty = true

	if j.policy == SyncAlways {
		return j.syncLocked()
	}
	return nil
}

// Flush forces buffered frames to the os file descriptor.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.buf.Flush()
}

// Sync flushes and fsyncs the journal.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.syncLocked()
}

func (j *Journal) syncLocked() error {
	if err := j.buf.Flush(); err != nil {
		return err
	}
	if !j.dirty {
		return nil
	}
	j.dirty = false
	return j.file.Sync()
}

// Close flushes pending frames and closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.syncLocked(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}

// Truncate clears the journal. Used once the session state has been
// exported.
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.buf.Reset(j.file)
	if err := j.file.Truncate(0); err != nil {
		return err
	}
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	j.size = 0
	j.dirty = false
	return j.file.Sync()
}

// Size returns the journal length in bytes, including buffered frames.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Path returns the file path.
func (j *Journal) Path() string {
	return j.path
}

// Policy returns the sync policy.
func (j *Journal) Policy() SyncPolicy {
	return j.policy
}

// RunFlusher syncs the journal every interval until ctx is done, then
// performs a final sync. It is a no-op loop for SyncAlways journals.
func (j *Journal) RunFlusher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Journal flusher started", "path", j.path, "interval", interval, "policy", j.policy)

	for {
		select {
		case <-ticker.C:
			if j.policy == SyncAlways {
				continue
			}
			if err := j.Sync(); err != nil {
				slog.Error("Periodic journal sync failed", "error", err)
			}
		case <-ctx.Done():
			return j.Sync()
		}
	}
}

// Replay streams the records read from r to fn, which may be nil. It stops
// at a clean end of stream or at a torn final frame and returns the byte
// length of the valid prefix together with the number of records read.
// Corruption before the end and errors from fn are returned.
func Replay(r io.Reader, fn func(Record) error) (int64, int, error) {
	var valid int64
	count := 0

	for {
		op, payload, n, err := ReadFrame(r)
		switch {
		case err == io.EOF:
			return valid, count, nil
		case errors.Is(err, ErrIncompleteFrame):
			slog.Warn("Journal ends with a torn frame", "valid_bytes", valid, "records", count)
			return valid, count, nil
		case err != nil:
			return valid, count, fmt.Errorf("journal corrupt at byte %d: %w", valid, err)
		}

		if fn != nil {
			rec, err := decodeRecord(op, payload)
			if err != nil {
				return valid, count, err
			}
			if err := fn(rec); err != nil {
				return valid, count, err
			}
		}
		valid += int64(n)
		count++
	}
}

// ReplayFile replays the journal at path. A missing file replays nothing.
func ReplayFile(path string, fn func(Record) error) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	_, count, err := Replay(bufio.NewReader(f), fn)
	return count, err
}

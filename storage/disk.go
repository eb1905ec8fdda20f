package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const defaultChunkSize = 256 * 1024

// DiskObjectStore writes objects chunk by chunk under a root
// directory. The transfer goes to a ".part" file and is renamed into
// place only on completion, so a partial upload is never addressable;
// the partial file itself survives a failure and a retried upload
// resumes from it.
type DiskObjectStore struct {
	root      string
	chunkSize int
	log       *slog.Logger
}

func NewDiskObjectStore(root string, chunkSize int, log *slog.Logger) *DiskObjectStore {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &DiskObjectStore{root: root, chunkSize: chunkSize, log: log}
}

func (s *DiskObjectStore) Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress ProgressFunc) (string, error) {
	if onProgress == nil {
		onProgress = func(int) {}
	}
	final := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", err
	}
	part := final + ".part"

	// Resume: bytes already in the partial file count as transferred,
	// the reader is advanced past them. A partial larger than the new
	// payload is from a different transfer and cannot be resumed.
	var written int64
	if info, err := os.Stat(part); err == nil && info.Size() > 0 {
		if info.Size() > size {
			if err := os.Remove(part); err != nil {
				return "", err
			}
			s.log.Debug("discarding stale partial", "name", name, "size", info.Size())
		} else {
			written = info.Size()
			if _, err := io.CopyN(io.Discard, r, written); err != nil {
				return "", fmt.Errorf("resume skip failed: %w", err)
			}
			s.log.Debug("resuming upload", "name", name, "offset", written)
		}
	}

	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", err
	}

	lastPercent := -1
	report := func() {
		percent := 100
		if size > 0 {
			percent = int(written * 100 / size)
		}
		if percent > 100 {
			percent = 100
		}
		if percent > lastPercent {
			lastPercent = percent
			onProgress(percent)
		}
	}
	report()

	buf := make([]byte, s.chunkSize)
	for written < size {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return "", err
		}
		n, err := io.ReadFull(r, buf[:min64(int64(len(buf)), size-written)])
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				_ = f.Close()
				return "", werr
			}
			written += int64(n)
			report()
		}
		if err != nil {
			_ = f.Close()
			return "", fmt.Errorf("source read failed at byte %d: %w", written, err)
		}
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(part, final); err != nil {
		return "", err
	}

	if lastPercent < 100 {
		onProgress(100)
	}
	return final, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

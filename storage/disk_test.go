package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type flakyReader struct {
	data   []byte
	failAt int
	offset int
}

func (r *flakyReader) Read(p []byte) (int, error) {
	if r.offset >= r.failAt {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, r.data[r.offset:])
	if r.offset+n > r.failAt {
		n = r.failAt - r.offset
	}
	r.offset += n
	return n, nil
}

func Test_Upload_Reports_Monotone_Progress(t *testing.T) {
	req := require.New(t)
	store := NewDiskObjectStore(t.TempDir(), 16, slog.Default())
	payload := bytes.Repeat([]byte{0xAB}, 100)

	var progress []int
	address, err := store.Upload(context.Background(), "chat_media/a_b/pic.jpg",
		bytes.NewReader(payload), int64(len(payload)), func(p int) {
			progress = append(progress, p)
		})
	req.NoError(err)

	raw, err := os.ReadFile(address)
	req.NoError(err)
	req.Equal(payload, raw)

	req.NotEmpty(progress)
	req.Equal(100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		req.Greater(progress[i], progress[i-1])
	}
	for _, p := range progress {
		req.GreaterOrEqual(p, 0)
		req.LessOrEqual(p, 100)
	}
}

func Test_Failed_Upload_Is_Never_Addressable(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskObjectStore(root, 8, slog.Default())
	payload := bytes.Repeat([]byte{0xCD}, 64)

	_, err := store.Upload(context.Background(), "pic.jpg",
		&flakyReader{data: payload, failAt: 24}, int64(len(payload)), nil)
	req.Error(err)

	_, statErr := os.Stat(filepath.Join(root, "pic.jpg"))
	req.True(os.IsNotExist(statErr), "final object must not exist after failure")
}

func Test_Upload_Resumes_From_Partial(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskObjectStore(root, 8, slog.Default())
	payload := []byte("0123456789abcdef0123456789abcdef")

	_, err := store.Upload(context.Background(), "clip.mp4",
		&flakyReader{data: payload, failAt: 16}, int64(len(payload)), nil)
	req.Error(err)

	var first int
	address, err := store.Upload(context.Background(), "clip.mp4",
		bytes.NewReader(payload), int64(len(payload)), func(p int) {
			if first == 0 {
				first = p
			}
		})
	req.NoError(err)
	req.GreaterOrEqual(first, 50, "resume must start from the partial offset")

	raw, err := os.ReadFile(address)
	req.NoError(err)
	req.Equal(payload, raw)
}

func Test_Upload_Discards_Oversized_Stale_Partial(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskObjectStore(root, 8, slog.Default())

	// A leftover partial from a bigger, unrelated transfer.
	stale := bytes.Repeat([]byte{0xFF}, 96)
	req.NoError(os.WriteFile(filepath.Join(root, "clip.mp4.part"), stale, 0o644))

	payload := []byte("0123456789abcdef")
	address, err := store.Upload(context.Background(), "clip.mp4",
		bytes.NewReader(payload), int64(len(payload)), nil)
	req.NoError(err)

	raw, err := os.ReadFile(address)
	req.NoError(err)
	req.Equal(payload, raw, "stale bytes must not precede the new payload")
}

func Test_Upload_Honors_Cancellation(t *testing.T) {
	req := require.New(t)
	store := NewDiskObjectStore(t.TempDir(), 4, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Upload(ctx, "pic.jpg", bytes.NewReader(make([]byte, 64)), 64, nil)
	req.ErrorIs(err, context.Canceled)
}

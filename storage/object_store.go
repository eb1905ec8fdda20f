//go:generate go run go.uber.org/mock/mockgen -source=object_store.go -destination=../mocks/mock_object_store.go -package=mocks

// Package storage implements the object store collaborator: binary
// uploads under a path, yielding a durable retrieval address, with
// live progress reporting during a resumable chunked transfer.
package storage

import (
	"context"
	"io"
)

// ProgressFunc receives the transfer progress as a whole percentage.
// Values are monotonically increasing within one upload and stay in
// [0,100].
type ProgressFunc func(percent int)

type IObjectStore interface {
	// Upload stores size bytes from r under name and returns the
	// retrieval address of the durable object. onProgress may be nil.
	Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress ProgressFunc) (string, error)
}

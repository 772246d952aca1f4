package blobstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// Store keeps the raw bytes of uploaded media between upload and submission.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

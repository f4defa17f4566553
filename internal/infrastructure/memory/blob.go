package memory

import (
	"context"
	"sync"

	"github.com/exam-registration/internal/domain"
)

type blob struct {
	data        []byte
	contentType string
}

// BlobStore keeps uploaded images in memory. Puts to the same key overwrite.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string]blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

func (b *BlobStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (b *BlobStore) Get(_ context.Context, key string) ([]byte, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.blobs[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return append([]byte(nil), v.data...), v.contentType, nil
}

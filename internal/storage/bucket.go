package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Bucket is the device-local storage handle: one key, read and written whole.
type Bucket interface {
	// Load returns the stored bytes, or nil if nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileBucket keeps the bucket in a single file.
type FileBucket struct {
	path string
}

// NewFileBucket returns a bucket stored at path.
func NewFileBucket(path string) *FileBucket {
	return &FileBucket{path: path}
}

func (b *FileBucket) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket %s: %w", b.path, err)
	}
	return data, nil
}

// Save replaces the file atomically so a crash never leaves half a document.
func (b *FileBucket) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for bucket %s: %w", b.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write bucket %s: %w", b.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close bucket %s: %w", b.path, err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace bucket %s: %w", b.path, err)
	}
	return nil
}

// MemoryBucket keeps the bucket in memory.
type MemoryBucket struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBucket returns a bucket preloaded with data, which may be nil.
func NewMemoryBucket(data []byte) *MemoryBucket {
	return &MemoryBucket{data: append([]byte(nil), data...)}
}

func (b *MemoryBucket) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, nil
	}
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBucket) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}

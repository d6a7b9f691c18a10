package document

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"worklink/pkg/platform/sentinel"
)

// FSStore persists blobs on the local filesystem under a content-addressed
// layout: the ref is the BLAKE2b-256 digest of the content, sharded by its
// first byte. Identical uploads collapse to one file, and a ref can never
// point at content other than what was hashed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// Put writes the blob durably and returns its content digest as the ref.
// The write goes to a temp file first and is renamed into place, so a partial
// write is never visible under a valid ref.
func (s *FSStore) Put(ctx context.Context, data []byte) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}

	digest := blake2b.Sum256(data)
	ref := Ref(hex.EncodeToString(digest[:]))
	path := s.path(ref)

	if _, err := os.Stat(path); err == nil {
		// Same content already stored; the existing file serves the ref.
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("%w: create shard directory: %w", sentinel.ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp blob: %w", sentinel.ErrUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: write blob: %w", sentinel.ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: sync blob: %w", sentinel.ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: close blob: %w", sentinel.ErrUnavailable, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: place blob: %w", sentinel.ErrUnavailable, err)
	}

	return ref, nil
}

// Get reads the blob for a ref. Returns sentinel.ErrNotFound for unknown refs.
func (s *FSStore) Get(ctx context.Context, ref Ref) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	if len(ref) < 2 {
		return nil, sentinel.ErrNotFound
	}

	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: read blob: %w", sentinel.ErrUnavailable, err)
	}
	return data, nil
}

func (s *FSStore) path(ref Ref) string {
	return filepath.Join(s.baseDir, string(ref[:2]), string(ref))
}

package document

import (
	"context"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"

	"worklink/pkg/platform/sentinel"
)

// InMemory is a blob store for tests and dev setups without a data directory.
// Refs are content digests, matching FSStore semantics.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[Ref][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[Ref][]byte)}
}

func (s *InMemory) Put(_ context.Context, data []byte) (Ref, error) {
	digest := blake2b.Sum256(data)
	ref := Ref(hex.EncodeToString(digest[:]))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		s.blobs[ref] = append([]byte(nil), data...)
	}
	return ref, nil
}

func (s *InMemory) Get(_ context.Context, ref Ref) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len reports how many distinct blobs are stored. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

// MemoryStore is an in-memory ArtifactStore for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	sources map[domain.ScanID][]byte
	reports map[domain.ScanID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources: make(map[domain.ScanID][]byte),
		reports: make(map[domain.ScanID][]byte),
	}
}

func (s *MemoryStore) PutSource(ctx context.Context, id domain.ScanID, filename string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sources[id] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetSource(ctx context.Context, id domain.ScanID) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.sources[id]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) DeleteSource(ctx context.Context, id domain.ScanID) error {
	s.mu.Lock()
	delete(s.sources, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PutReport(ctx context.Context, id domain.ScanID, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.reports[id] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id domain.ScanID) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.reports[id]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// HasSource reports whether a source archive object is stored; test helper.
func (s *MemoryStore) HasSource(id domain.ScanID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[id]
	return ok
}

var _ domain.ArtifactStore = (*MemoryStore)(nil)

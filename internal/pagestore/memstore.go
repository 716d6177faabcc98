package pagestore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/xtxerr/tskv/internal/errors"
)

// MemStore is an in-memory PageStore, useful for tests and for
// short-lived engine instances that accept losing all data on process
// exit. It satisfies the same id-uniqueness and atomic-write contract
// as DiskStore.
type MemStore struct {
	mu    sync.Mutex
	pages map[PageID][]byte
}

// NewMemStore returns an empty in-memory page store.
func NewMemStore() *MemStore {
	return &MemStore{pages: make(map[PageID][]byte)}
}

func (s *MemStore) CreatePage() (PageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := PageID(uuid.NewString())
	s.pages[id] = nil
	return id, nil
}

func (s *MemStore) Read(id PageID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.pages[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrPageNotFound, "%s", id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemStore) Write(id PageID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[id]; !ok {
		return errors.Wrapf(errors.ErrPageNotFound, "%s", id)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.pages[id] = buf
	return nil
}

func (s *MemStore) DeletePage(id PageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[id]; !ok {
		return errors.Wrapf(errors.ErrPageNotFound, "%s", id)
	}
	delete(s.pages, id)
	return nil
}

package memory

import (
	"sort"

	"docrag/internal/domain"
	"docrag/internal/indexstore"
)

var _ indexstore.Storage = (*Storage)(nil)

// Storage is an in-memory index registry. It is not safe for concurrent use:
// the worker that owns it is its only reader and writer.
type Storage struct {
	indices map[string]*domain.Index
}

func NewStorage() *Storage {
	return &Storage{indices: make(map[string]*domain.Index)}
}

// Put registers index under its id, replacing any previous index.
func (s *Storage) Put(index *domain.Index) {
	s.indices[index.ID] = index
}

func (s *Storage) Get(id string) (*domain.Index, bool) {
	idx, ok := s.indices[id]
	return idx, ok
}

func (s *Storage) Delete(id string) bool {
	if _, ok := s.indices[id]; !ok {
		return false
	}
	delete(s.indices, id)
	return true
}

func (s *Storage) Clear() {
	s.indices = make(map[string]*domain.Index)
}

func (s *Storage) Len() int { return len(s.indices) }

// IDs returns the registered ids in sorted order.
func (s *Storage) IDs() []string {
	ids := make([]string, 0, len(s.indices))
	for id := range s.indices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Storage) TextBytes() int64 {
	var n int64
	for _, idx := range s.indices {
		n += int64(len(idx.OriginalText))
	}
	return n
}

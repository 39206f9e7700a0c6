package addressbook

import (
	"context"
	"sync"

	"adresboek/internal/domain"
)

// InMemoryStore keeps committed records in insertion order with an index by
// identifier. It intentionally favors clarity over performance.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   []domain.Record
	index     map[string]struct{}
	observers []Observer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{index: make(map[string]struct{})}
}

// Add appends the record unless its identifier already exists. Duplicates are
// suppressed silently: no error, no overwrite, order unchanged, and the
// return value is false.
func (s *InMemoryStore) Add(_ context.Context, record domain.Record) (bool, error) {
	s.mu.Lock()
	if _, exists := s.index[record.ID]; exists {
		s.mu.Unlock()
		return false, nil
	}
	s.records = append(s.records, record)
	s.index[record.ID] = struct{}{}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return true, nil
}

// Remove deletes the record with the given identifier; absent identifiers are
// a no-op and the return value is false.
func (s *InMemoryStore) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	if _, exists := s.index[id]; !exists {
		s.mu.Unlock()
		return false, nil
	}
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	delete(s.index, id)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return true, nil
}

// ReplaceAll discards the current sequence and installs records wholesale.
// Input is deduplicated defensively by identifier, first occurrence wins, so
// the uniqueness invariant holds even for callers that skip pre-deduplication.
func (s *InMemoryStore) ReplaceAll(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	s.records = s.records[:0]
	s.index = make(map[string]struct{}, len(records))
	for _, record := range records {
		if _, exists := s.index[record.ID]; exists {
			continue
		}
		s.records = append(s.records, record)
		s.index[record.ID] = struct{}{}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// List returns the records in insertion order. The returned slice is a copy.
func (s *InMemoryStore) List(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Subscribe registers an observer invoked with the record list after every
// mutation. Observers run outside the store lock.
func (s *InMemoryStore) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

func (s *InMemoryStore) snapshotLocked() []domain.Record {
	return append([]domain.Record{}, s.records...)
}

func (s *InMemoryStore) notify(snapshot []domain.Record) {
	s.mu.RLock()
	observers := append([]Observer{}, s.observers...)
	s.mu.RUnlock()
	for _, obs := range observers {
		obs(snapshot)
	}
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// StateStore keeps the latest snapshot in process, one encoded header and one
// encoded value per book, so callers never share slices with the store.
type StateStore struct {
	mu     sync.RWMutex
	header []byte
	books  [][]byte
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore() *StateStore {
	return &StateStore{}
}

func (s *StateStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.header == nil {
		return nil, domain.ErrStateNotFound
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(s.header, &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if snap.Current >= len(s.books) {
		return nil, fmt.Errorf("state names book %d, only %d stored", snap.Current, len(s.books))
	}

	snap.Books = make([]domain.BookSnapshot, snap.Current+1)
	for i := range snap.Books {
		if err := json.Unmarshal(s.books[i], &snap.Books[i]); err != nil {
			return nil, fmt.Errorf("decode book %d: %w", i, err)
		}
	}
	return &snap, nil
}

func (s *StateStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	header, err := json.Marshal(snapshot.Header())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	books := make([][]byte, len(snapshot.Books))
	for i, b := range snapshot.Books {
		if books[i], err = json.Marshal(b); err != nil {
			return fmt.Errorf("encode book %d: %w", snapshot.FirstBook+i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.FirstBook > len(s.books) {
		return fmt.Errorf("save starts at book %d, only %d stored", snapshot.FirstBook, len(s.books))
	}
	s.books = append(s.books[:snapshot.FirstBook], books...)
	s.header = header
	return nil
}

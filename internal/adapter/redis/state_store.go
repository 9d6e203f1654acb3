package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pscheid92/worldnovel/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// StateStore keeps the snapshot header as one JSON value and the books in a hash
// keyed by book index.
type StateStore struct {
	rdb goredis.Cmdable
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore(rdb goredis.Cmdable) *StateStore {
	return &StateStore{rdb: rdb}
}

func (s *StateStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.rdb.Get(ctx, stateKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	fields := make([]string, snap.Current+1)
	for i := range fields {
		fields[i] = strconv.Itoa(i)
	}
	values, err := s.rdb.HMGet(ctx, booksKey, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("get books: %w", err)
	}

	// Values written before books moved to their own hash carry them inline.
	if values[0] == nil && len(snap.Books) > 0 {
		return &snap, nil
	}

	snap.Books = make([]domain.BookSnapshot, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("book %d missing", i)
		}
		if err := json.Unmarshal([]byte(raw), &snap.Books[i]); err != nil {
			return nil, fmt.Errorf("decode book %d: %w", i, err)
		}
	}
	return &snap, nil
}

func (s *StateStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	header, books, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, stateKey, header, 0)
		if len(books) > 0 {
			pipe.HSet(ctx, booksKey, books...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// encodeSnapshot returns the header JSON and the books as alternating index/JSON pairs.
func encodeSnapshot(snapshot *domain.Snapshot) ([]byte, []any, error) {
	header, err := json.Marshal(snapshot.Header())
	if err != nil {
		return nil, nil, fmt.Errorf("encode state: %w", err)
	}

	books := make([]any, 0, 2*len(snapshot.Books))
	for i, b := range snapshot.Books {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, nil, fmt.Errorf("encode book %d: %w", snapshot.FirstBook+i, err)
		}
		books = append(books, strconv.Itoa(snapshot.FirstBook+i), data)
	}
	return header, books, nil
}

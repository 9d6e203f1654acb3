package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/worldnovel/internal/domain"
)

// StateStore keeps the snapshot header in the single-row novel_state table and
// one row per book in novel_books.
type StateStore struct {
	pool *pgxpool.Pool
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

func (s *StateStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM novel_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}

	books, err := s.loadBooks(ctx, snap.Current)
	if err != nil {
		return nil, err
	}
	// Rows written before books moved to their own table carry them inline.
	if len(books) > 0 {
		snap.Books = books
	}
	return &snap, nil
}

func (s *StateStore) loadBooks(ctx context.Context, current int) ([]domain.BookSnapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT idx, snapshot FROM novel_books WHERE idx <= $1 ORDER BY idx`, current)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []domain.BookSnapshot
	for rows.Next() {
		var idx int
		var data []byte
		if err := rows.Scan(&idx, &data); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if idx != len(books) {
			return nil, fmt.Errorf("book %d missing", len(books))
		}

		var b domain.BookSnapshot
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to decode book %d: %w", idx, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	return books, nil
}

func (s *StateStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return saveSnapshot(ctx, tx, snapshot)
	})
}

// saveSnapshot upserts the header and every book the snapshot carries.
func saveSnapshot(ctx context.Context, db execer, snapshot *domain.Snapshot) error {
	header, err := json.Marshal(snapshot.Header())
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO novel_state (id, snapshot, saved_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, saved_at = EXCLUDED.saved_at`,
		header, snapshot.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	for i, b := range snapshot.Books {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to encode book %d: %w", snapshot.FirstBook+i, err)
		}
		_, err = db.Exec(ctx, `
			INSERT INTO novel_books (idx, snapshot)
			VALUES ($1, $2)
			ON CONFLICT (idx) DO UPDATE
			SET snapshot = EXCLUDED.snapshot`,
			snapshot.FirstBook+i, data)
		if err != nil {
			return fmt.Errorf("failed to save book %d: %w", snapshot.FirstBook+i, err)
		}
	}
	return nil
}

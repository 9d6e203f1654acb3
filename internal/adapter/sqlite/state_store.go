package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// StateStore keeps the snapshot header in the single-row novel_state table and
// one row per book in novel_books.
type StateStore struct {
	db *sql.DB
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM novel_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
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
	rows, err := s.db.QueryContext(ctx, `SELECT idx, snapshot FROM novel_books WHERE idx <= ? ORDER BY idx`, current)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []domain.BookSnapshot
	for rows.Next() {
		var idx int
		var data string
		if err := rows.Scan(&idx, &data); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		if idx != len(books) {
			return nil, fmt.Errorf("book %d missing", len(books))
		}

		var b domain.BookSnapshot
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("decode book %d: %w", idx, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func (s *StateStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveSnapshot(ctx, tx, snapshot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// saveSnapshot upserts the header and every book the snapshot carries.
func saveSnapshot(ctx context.Context, db execer, snapshot *domain.Snapshot) error {
	header, err := json.Marshal(snapshot.Header())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO novel_state (id, snapshot, saved_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET snapshot = excluded.snapshot, saved_at = excluded.saved_at`,
		string(header), snapshot.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	for i, b := range snapshot.Books {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode book %d: %w", snapshot.FirstBook+i, err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO novel_books (idx, snapshot)
			VALUES (?, ?)
			ON CONFLICT (idx) DO UPDATE
			SET snapshot = excluded.snapshot`,
			snapshot.FirstBook+i, string(data))
		if err != nil {
			return fmt.Errorf("save book %d: %w", snapshot.FirstBook+i, err)
		}
	}
	return nil
}

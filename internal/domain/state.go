package domain

import (
	"context"
	"time"
)

// BookSnapshot holds a book's prompt and its written sentences only.
type BookSnapshot struct {
	Prompt    string     `json:"prompt"`
	Sentences []Sentence `json:"sentences"`
}

// CadenceSnapshot holds the cadence window, samples ordered oldest first.
type CadenceSnapshot struct {
	Previous int64   `json:"previous"`
	Samples  []int64 `json:"samples"`
}

// Snapshot is the durable form of the novel aggregate.
//
// Books[i] is book FirstBook+i. A loaded snapshot always starts at book 0; a
// saved one may start later, because books before the current one never change
// and a store keeps what it already holds of them.
type Snapshot struct {
	Period    Period          `json:"period"`
	Current   int             `json:"current"`
	FirstBook int             `json:"-"`
	Books     []BookSnapshot  `json:"books,omitempty"`
	Cadence   CadenceSnapshot `json:"cadence"`
	SavedAt   time.Time       `json:"saved_at"`
}

// Header is the snapshot without its books: the part rewritten on every save.
func (s *Snapshot) Header() *Snapshot {
	h := *s
	h.FirstBook = 0
	h.Books = nil
	return &h
}

// StateStore persists the novel aggregate: one header plus one record per book.
type StateStore interface {
	// Load returns ErrStateNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the header and books FirstBook onward, keeping earlier books.
	Save(ctx context.Context, snapshot *Snapshot) error
}

// Settlement makes a write durable. It debits amount from id and saves snapshot as
// one unit: either both take effect or neither does. An amount of zero only saves.
type Settlement interface {
	Settle(ctx context.Context, id Identity, amount int64, snapshot *Snapshot) error
}

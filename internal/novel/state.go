package novel

import (
	"fmt"

	"github.com/pscheid92/worldnovel/internal/domain"
)

const (
	DefaultMaxSentences      = 1000
	DefaultMaxSentenceLength = 160
)

// Limits bounds the size of every book.
type Limits struct {
	MaxSentences      int
	MaxSentenceLength int
}

// DefaultLimits matches the deployed novel: 1000 slots of up to 160 bytes.
func DefaultLimits() Limits {
	return Limits{
		MaxSentences:      DefaultMaxSentences,
		MaxSentenceLength: DefaultMaxSentenceLength,
	}
}

func (l Limits) validate() error {
	if l.MaxSentences < 1 {
		return fmt.Errorf("max sentences must be at least 1, got %d", l.MaxSentences)
	}
	if l.MaxSentenceLength < 1 {
		return fmt.Errorf("max sentence length must be at least 1, got %d", l.MaxSentenceLength)
	}
	return nil
}

// State is the whole novel aggregate: period, books and cadence.
type State struct {
	period  domain.Period
	books   *BookLedger
	cadence *Cadence
}

// New creates the genesis state: book 0 from prompt, period WRITING and a
// baseline cadence window anchored at genesis.
func New(prompt string, genesis int64, limits Limits) (*State, error) {
	if err := limits.validate(); err != nil {
		return nil, err
	}
	return &State{
		period:  domain.PeriodWriting,
		books:   NewBookLedger(prompt, limits.MaxSentences, limits.MaxSentenceLength),
		cadence: NewCadence(genesis),
	}, nil
}

// Restore rebuilds state from a snapshot, rejecting snapshots that do not fit limits.
func Restore(snap *domain.Snapshot, limits Limits) (*State, error) {
	if err := limits.validate(); err != nil {
		return nil, err
	}
	if snap.FirstBook != 0 {
		return nil, fmt.Errorf("restore: snapshot starts at book %d, need every book", snap.FirstBook)
	}
	if !snap.Period.Valid() {
		return nil, fmt.Errorf("restore: %w: %d", domain.ErrInvalidPeriod, int(snap.Period))
	}
	books, err := restoreBookLedger(snap.Books, limits.MaxSentences, limits.MaxSentenceLength)
	if err != nil {
		return nil, fmt.Errorf("restore books: %w", err)
	}
	if snap.Current != books.CurrentIndex() {
		return nil, fmt.Errorf("restore: current book %d does not match last book %d", snap.Current, books.CurrentIndex())
	}
	cadence, err := RestoreCadence(snap.Cadence.Previous, snap.Cadence.Samples)
	if err != nil {
		return nil, fmt.Errorf("restore cadence: %w", err)
	}
	return &State{period: snap.Period, books: books, cadence: cadence}, nil
}

// Snapshot captures the whole aggregate in its durable form.
func (s *State) Snapshot() *domain.Snapshot {
	return s.snapshotFrom(0)
}

func (s *State) snapshotFrom(first int) *domain.Snapshot {
	return &domain.Snapshot{
		Period:    s.period,
		Current:   s.books.CurrentIndex(),
		FirstBook: first,
		Books:     s.books.snapshotFrom(first),
		Cadence: domain.CadenceSnapshot{
			Previous: s.cadence.Previous(),
			Samples:  s.cadence.Samples(),
		},
	}
}

// Checkpoint records everything a single write can change.
type Checkpoint struct {
	period  domain.Period
	books   int
	cursor  int
	votes   []int64
	cadence Cadence
}

// Checkpoint captures the state ahead of a write so Rollback can undo it.
func (s *State) Checkpoint() Checkpoint {
	return Checkpoint{
		period:  s.period,
		books:   s.books.Len(),
		cursor:  s.books.current().cursor,
		votes:   s.books.currentVotes(),
		cadence: *s.cadence,
	}
}

// Rollback undoes every change made since cp was taken. It is only valid for
// the latest checkpoint.
func (s *State) Rollback(cp Checkpoint) {
	s.period = cp.period
	s.books.rewind(cp.books, cp.cursor, cp.votes)
	*s.cadence = cp.cadence
}

// Changes is the snapshot of what a write since cp can have touched: the header
// and every book from the one that was current at cp.
func (s *State) Changes(cp Checkpoint) *domain.Snapshot {
	return s.snapshotFrom(cp.books - 1)
}

func (s *State) Period() domain.Period {
	return s.period
}

// SetPeriod moves to any period; there are no transition constraints.
func (s *State) SetPeriod(p domain.Period) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidPeriod, int(p))
	}
	s.period = p
	return nil
}

// AddBook appends a book and makes it current. Requires INITIALIZING.
func (s *State) AddBook(prompt string) (int, error) {
	if err := requireInitializing(s.period); err != nil {
		return 0, err
	}
	return s.books.append(prompt), nil
}

func (s *State) CurrentBook() domain.Book {
	return s.books.CurrentBook()
}

func (s *State) CurrentBookIndex() int {
	return s.books.CurrentIndex()
}

func (s *State) CurrentPrompt() string {
	return s.books.CurrentPrompt()
}

func (s *State) CurrentSentences() []domain.Sentence {
	return s.books.CurrentSentences()
}

func (s *State) TotalVotes() int64 {
	return s.books.TotalVotes()
}

func (s *State) WriteCursor() int {
	return s.books.current().cursor
}

// CadenceAverage is the current rolling average interval.
func (s *State) CadenceAverage() int64 {
	return s.cadence.Average()
}

// Cost is the price of the next sentence. Requires WRITING.
func (s *State) Cost() (int64, error) {
	if err := requireWriting(s.period); err != nil {
		return 0, err
	}
	return CostFor(s.cadence.Average()), nil
}

// PrepareSentence validates an addSentence call and prices it. No state changes.
func (s *State) PrepareSentence(text string) (int64, error) {
	cost, err := s.Cost()
	if err != nil {
		return 0, err
	}
	if err := s.books.checkAppend(text); err != nil {
		return 0, err
	}
	return cost, nil
}

// CommitSentence writes the sentence and records the contribution time.
// PrepareSentence must have succeeded with no mutation in between.
func (s *State) CommitSentence(author domain.Identity, text string, now int64) int {
	index := s.books.appendSentence(author, text)
	s.cadence.Record(now)
	return index
}

// PrepareVote validates a voteOnSentence call. No state changes.
func (s *State) PrepareVote(index int, amount int64) error {
	if err := requireNotInitializing(s.period); err != nil {
		return err
	}
	return s.books.checkVote(index, amount)
}

// CommitVote adds the votes and returns the sentence's new total.
// PrepareVote must have succeeded with no mutation in between.
func (s *State) CommitVote(index int, amount int64) int64 {
	return s.books.vote(index, amount)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/novel"
)

const settleTimeout = 5 * time.Second

const (
	opAddBook     = "add_book"
	opAddSentence = "add_sentence"
	opVote        = "vote"
	opSetPeriod   = "set_period"
)

// Options configures the Service.
type Options struct {
	Admin       domain.Identity
	CadenceUnit time.Duration
}

// Service is the single entry surface of the novel. Every write holds one lock over
// the whole aggregate, and the ledger and settlement are called inside it, so
// balance check, debit, mutation and save never interleave with another write.
// A write that cannot be settled is rolled back: callers see either all of its
// effects or none.
type Service struct {
	mu    sync.RWMutex
	state *novel.State

	admin      domain.Identity
	unit       time.Duration
	ledger     domain.TokenLedger
	settlement domain.Settlement
	publisher  domain.EventPublisher
	metrics    *metrics.NovelMetrics
	clock      clockwork.Clock
}

// NewService wires the aggregate to its collaborators. ledger answers balance
// queries; settlement debits and saves each write.
// publisher may be nil when events are disabled.
func NewService(state *novel.State, opts Options, ledger domain.TokenLedger, settlement domain.Settlement, publisher domain.EventPublisher, m *metrics.NovelMetrics, clock clockwork.Clock) *Service {
	unit := opts.CadenceUnit
	if unit <= 0 {
		unit = time.Second
	}

	s := &Service{
		state:      state,
		admin:      opts.Admin,
		unit:       unit,
		ledger:     ledger,
		settlement: settlement,
		publisher:  publisher,
		metrics:    m,
		clock:      clock,
	}
	s.refreshGauges()
	return s
}

// --- Queries ---

func (s *Service) CurrentBook(_ context.Context) domain.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentBook()
}

func (s *Service) CurrentPrompt(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentPrompt()
}

// CurrentSentences returns every slot of the current book, unwritten ones included.
func (s *Service) CurrentSentences(_ context.Context) []domain.Sentence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentSentences()
}

func (s *Service) TotalVotes(_ context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.TotalVotes()
}

// CostToAddSentence is the price of the next sentence. Only available while WRITING.
func (s *Service) CostToAddSentence(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Cost()
}

func (s *Service) Period(_ context.Context) domain.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Period()
}

// BalanceOf reports the caller's token balance straight from the ledger.
func (s *Service) BalanceOf(ctx context.Context, id domain.Identity) (int64, error) {
	return s.ledger.BalanceOf(ctx, id)
}

// --- Writes ---

// AddBook appends a new book and makes it current. Admin only, INITIALIZING only.
func (s *Service) AddBook(ctx context.Context, caller domain.Identity, prompt string) (int, error) {
	start := s.clock.Now()

	s.mu.Lock()
	index, err := s.addBookLocked(ctx, caller, prompt)
	period := s.state.Period()
	s.mu.Unlock()

	s.observe(ctx, opAddBook, start, err)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Book added", "book", index, "caller", caller.String())
	event := domain.NewEvent(domain.EventBookAdded, caller, s.clock.Now())
	event.Book = index
	event.Text = prompt
	event.Period = period
	s.publish(ctx, event)
	return index, nil
}

func (s *Service) addBookLocked(ctx context.Context, caller domain.Identity, prompt string) (int, error) {
	if err := s.requireAdmin(caller); err != nil {
		return 0, err
	}
	cp := s.state.Checkpoint()
	index, err := s.state.AddBook(prompt)
	if err != nil {
		return 0, err
	}
	if err := s.settle(ctx, caller, 0, cp); err != nil {
		return 0, err
	}
	return index, nil
}

// AddSentence prices, charges and writes one sentence at the write cursor.
func (s *Service) AddSentence(ctx context.Context, caller domain.Identity, text string) (*domain.SentenceReceipt, error) {
	start := s.clock.Now()

	s.mu.Lock()
	receipt, err := s.addSentenceLocked(ctx, caller, text)
	period := s.state.Period()
	s.mu.Unlock()

	s.observe(ctx, opAddSentence, start, err)
	if err != nil {
		return nil, err
	}

	s.metrics.TokensSpent.WithLabelValues("sentence").Add(float64(receipt.Cost))
	slog.InfoContext(ctx, "Sentence added", "book", receipt.Book, "index", receipt.Index, "caller", caller.String(), "cost", receipt.Cost)

	event := domain.NewEvent(domain.EventSentenceAdded, caller, s.clock.Now())
	event.Book = receipt.Book
	event.Index = receipt.Index
	event.Amount = receipt.Cost
	event.Text = text
	event.Period = period
	s.publish(ctx, event)
	return receipt, nil
}

func (s *Service) addSentenceLocked(ctx context.Context, caller domain.Identity, text string) (*domain.SentenceReceipt, error) {
	cost, err := s.state.PrepareSentence(text)
	if err != nil {
		return nil, err
	}
	if err := s.checkBalance(ctx, caller, cost); err != nil {
		return nil, err
	}

	cp := s.state.Checkpoint()
	index := s.state.CommitSentence(caller, text, s.cadenceNow())
	if err := s.settle(ctx, caller, cost, cp); err != nil {
		return nil, err
	}

	return &domain.SentenceReceipt{
		Book:  s.state.CurrentBookIndex(),
		Index: index,
		Cost:  cost,
	}, nil
}

// VoteOnSentence pays amount tokens to add amount votes to a written sentence of the current book.
func (s *Service) VoteOnSentence(ctx context.Context, caller domain.Identity, index int, amount int64) (*domain.VoteReceipt, error) {
	start := s.clock.Now()

	s.mu.Lock()
	receipt, err := s.voteLocked(ctx, caller, index, amount)
	period := s.state.Period()
	s.mu.Unlock()

	s.observe(ctx, opVote, start, err)
	if err != nil {
		return nil, err
	}

	s.metrics.TokensSpent.WithLabelValues("vote").Add(float64(amount))
	slog.InfoContext(ctx, "Vote cast", "book", receipt.Book, "index", index, "caller", caller.String(), "amount", amount, "votes", receipt.Votes)

	event := domain.NewEvent(domain.EventVoteCast, caller, s.clock.Now())
	event.Book = receipt.Book
	event.Index = index
	event.Amount = amount
	event.Period = period
	s.publish(ctx, event)
	return receipt, nil
}

func (s *Service) voteLocked(ctx context.Context, caller domain.Identity, index int, amount int64) (*domain.VoteReceipt, error) {
	if err := s.state.PrepareVote(index, amount); err != nil {
		return nil, err
	}
	if err := s.checkBalance(ctx, caller, amount); err != nil {
		return nil, err
	}

	cp := s.state.Checkpoint()
	votes := s.state.CommitVote(index, amount)
	if err := s.settle(ctx, caller, amount, cp); err != nil {
		return nil, err
	}

	return &domain.VoteReceipt{
		Book:   s.state.CurrentBookIndex(),
		Index:  index,
		Amount: amount,
		Votes:  votes,
	}, nil
}

// SetPeriod moves the novel to any period. Admin only.
func (s *Service) SetPeriod(ctx context.Context, caller domain.Identity, p domain.Period) error {
	start := s.clock.Now()

	s.mu.Lock()
	previous := s.state.Period()
	err := s.setPeriodLocked(ctx, caller, p)
	book := s.state.CurrentBookIndex()
	s.mu.Unlock()

	s.observe(ctx, opSetPeriod, start, err)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Period changed", "from", previous.String(), "to", p.String(), "caller", caller.String())
	event := domain.NewEvent(domain.EventPeriodChanged, caller, s.clock.Now())
	event.Book = book
	event.Period = p
	s.publish(ctx, event)
	return nil
}

func (s *Service) setPeriodLocked(ctx context.Context, caller domain.Identity, p domain.Period) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	cp := s.state.Checkpoint()
	if err := s.state.SetPeriod(p); err != nil {
		return err
	}
	return s.settle(ctx, caller, 0, cp)
}

// --- Helpers ---

func (s *Service) requireAdmin(caller domain.Identity) error {
	if caller == domain.NoIdentity || caller != s.admin {
		return fmt.Errorf("%w: %q", domain.ErrOwnerOnly, caller.String())
	}
	return nil
}

// checkBalance fails early when the caller cannot afford amount. The debit itself
// happens in settle, which still refuses if the balance shrank in between.
func (s *Service) checkBalance(ctx context.Context, caller domain.Identity, amount int64) error {
	balance, err := s.ledger.BalanceOf(ctx, caller)
	if err != nil {
		return fmt.Errorf("balance lookup failed: %w", err)
	}
	if balance < amount {
		return fmt.Errorf("%w: balance %d, need %d", domain.ErrInsufficientBalance, balance, amount)
	}
	return nil
}

// settle debits amount and saves what changed since cp as one unit. When that
// fails the state is rolled back to cp. Must be called with the write lock held
// so snapshots reach the store in commit order.
func (s *Service) settle(ctx context.Context, caller domain.Identity, amount int64, cp novel.Checkpoint) error {
	defer s.refreshGauges()

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	snap := s.state.Changes(cp)
	snap.SavedAt = s.clock.Now().UTC()
	if err := s.settlement.Settle(settleCtx, caller, amount, snap); err != nil {
		s.state.Rollback(cp)
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return err
		}
		s.metrics.SettleFailures.Inc()
		slog.WarnContext(ctx, "Write rolled back", "book", snap.Current, "amount", amount, "error", err)
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.PublishErrors.Inc()
		slog.WarnContext(ctx, "Event publish failed", "type", string(event.Type), "event_id", event.ID.String(), "error", err)
	}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.OperationDuration.WithLabelValues(op).Observe(s.clock.Since(start).Seconds())
	if err == nil {
		s.metrics.Operations.WithLabelValues(op, "ok").Inc()
		return
	}

	kind := domain.ErrorKind(err)
	s.metrics.Operations.WithLabelValues(op, "aborted").Inc()
	s.metrics.Aborts.WithLabelValues(op, kind).Inc()
	if kind == "internal" || kind == "ledger_unavailable" {
		slog.ErrorContext(ctx, "Operation failed", "operation", op, "error", err)
		return
	}
	slog.DebugContext(ctx, "Operation aborted", "operation", op, "kind", kind, "error", err)
}

// refreshGauges must be called with the lock held.
func (s *Service) refreshGauges() {
	s.metrics.CurrentCost.Set(float64(novel.CostFor(s.state.CadenceAverage())))
	s.metrics.CadenceAverage.Set(float64(s.state.CadenceAverage()))
	s.metrics.WriteCursor.Set(float64(s.state.WriteCursor()))
	s.metrics.CurrentBook.Set(float64(s.state.CurrentBookIndex()))
}

func (s *Service) cadenceNow() int64 {
	return CadenceTime(s.clock.Now(), s.unit)
}

// CadenceTime converts a wall-clock instant into whole cadence units.
func CadenceTime(t time.Time, unit time.Duration) int64 {
	if unit <= 0 {
		unit = time.Second
	}
	return t.UnixNano() / int64(unit)
}

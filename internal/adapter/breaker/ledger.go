// Package breaker isolates the novel from a failing token ledger backend.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/domain"
)

const component = "token_ledger"

// Settings tunes the circuit.
type Settings struct {
	FailureThreshold uint
	Delay            time.Duration
	SuccessThreshold uint
}

// DefaultSettings opens after 5 consecutive infrastructure failures and probes again after 30s.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		Delay:            30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Ledger wraps a domain.TokenLedger with a circuit breaker. Only infrastructure
// errors count as failures; ErrInsufficientBalance and other domain answers mean
// the backend is healthy.
type Ledger struct {
	next    domain.TokenLedger
	cb      circuitbreaker.CircuitBreaker[any]
	metrics *metrics.BreakerMetrics
}

var _ domain.TokenLedger = (*Ledger)(nil)

func NewLedger(next domain.TokenLedger, settings Settings, m *metrics.BreakerMetrics) *Ledger {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(settings.FailureThreshold).
		WithDelay(settings.Delay).
		WithSuccessThreshold(settings.SuccessThreshold).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", component,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			m.StateChanges.WithLabelValues(component, e.NewState.String()).Inc()
			m.State.WithLabelValues(component).Set(stateToFloat(e.NewState))
		}).
		Build()

	m.State.WithLabelValues(component).Set(0)
	return &Ledger{next: next, cb: cb, metrics: m}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

func (l *Ledger) BalanceOf(ctx context.Context, id domain.Identity) (int64, error) {
	if err := l.acquire(); err != nil {
		return 0, err
	}
	balance, err := l.next.BalanceOf(ctx, id)
	l.record(err)
	return balance, err
}

func (l *Ledger) Debit(ctx context.Context, id domain.Identity, amount int64) error {
	if err := l.acquire(); err != nil {
		return err
	}
	err := l.next.Debit(ctx, id, amount)
	l.record(err)
	return err
}

// Guard routes next through the same circuit as the ledger. It wraps settlements
// that debit inside their backend instead of calling Debit.
func (l *Ledger) Guard(next domain.Settlement) domain.Settlement {
	return &guardedSettlement{ledger: l, next: next}
}

type guardedSettlement struct {
	ledger *Ledger
	next   domain.Settlement
}

func (g *guardedSettlement) Settle(ctx context.Context, id domain.Identity, amount int64, snapshot *domain.Snapshot) error {
	if err := g.ledger.acquire(); err != nil {
		return err
	}
	err := g.next.Settle(ctx, id, amount, snapshot)
	g.ledger.record(err)
	return err
}

// State reports the current circuit state.
func (l *Ledger) State() circuitbreaker.State {
	return l.cb.State()
}

// Check fails while the circuit is open. It backs the readiness probe.
func (l *Ledger) Check(_ context.Context) error {
	if l.cb.IsOpen() {
		return fmt.Errorf("%w: circuit open", domain.ErrLedgerUnavailable)
	}
	return nil
}

func (l *Ledger) acquire() error {
	if l.cb.TryAcquirePermit() {
		return nil
	}
	l.metrics.Rejected.WithLabelValues(component).Inc()
	return fmt.Errorf("%w: %w", domain.ErrLedgerUnavailable, circuitbreaker.ErrOpen)
}

func (l *Ledger) record(err error) {
	if isInfrastructureError(err) {
		l.cb.RecordError(err)
		return
	}
	l.cb.RecordSuccess()
}

func isInfrastructureError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, domain.ErrInsufficientBalance) &&
		!errors.Is(err, domain.ErrInvalidAmount) &&
		!errors.Is(err, context.Canceled)
}

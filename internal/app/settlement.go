package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/domain"
)

// LedgerSettlement settles against a ledger and a state store that share no
// transaction. It debits first and saves second; when the save fails the debit
// is refunded through funder.
type LedgerSettlement struct {
	ledger  domain.TokenLedger
	funder  domain.TokenFunder
	store   domain.StateStore
	metrics *metrics.NovelMetrics
}

var _ domain.Settlement = (*LedgerSettlement)(nil)

func NewLedgerSettlement(ledger domain.TokenLedger, funder domain.TokenFunder, store domain.StateStore, m *metrics.NovelMetrics) *LedgerSettlement {
	return &LedgerSettlement{ledger: ledger, funder: funder, store: store, metrics: m}
}

func (s *LedgerSettlement) Settle(ctx context.Context, id domain.Identity, amount int64, snapshot *domain.Snapshot) error {
	if amount > 0 {
		if err := s.ledger.Debit(ctx, id, amount); err != nil {
			return fmt.Errorf("debit failed: %w", err)
		}
	}

	if err := s.store.Save(ctx, snapshot); err != nil {
		if amount > 0 {
			s.refund(ctx, id, amount)
		}
		return fmt.Errorf("state save failed: %w", err)
	}
	return nil
}

func (s *LedgerSettlement) refund(ctx context.Context, id domain.Identity, amount int64) {
	if err := s.funder.Credit(ctx, id, amount); err != nil {
		s.metrics.RefundFailures.Inc()
		slog.ErrorContext(ctx, "Refund after failed save did not apply", "identity", id.String(), "amount", amount, "error", err)
		return
	}
	slog.WarnContext(ctx, "Debit refunded after failed save", "identity", id.String(), "amount", amount)
}

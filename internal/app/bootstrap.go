package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/novel"
)

// GenesisMarker keys the one-time initial supply credit on every ledger backend.
const GenesisMarker = "genesis"

// LoadState restores the novel from store. When nothing has been saved yet it creates
// the genesis state from prompt and saves it, so later boots restore instead of re-seeding.
func LoadState(ctx context.Context, store domain.StateStore, prompt string, limits novel.Limits, now time.Time, unit time.Duration) (*novel.State, error) {
	snap, err := store.Load(ctx)
	switch {
	case err == nil:
		state, err := novel.Restore(snap, limits)
		if err != nil {
			return nil, fmt.Errorf("restore saved state: %w", err)
		}
		slog.InfoContext(ctx, "Novel state restored", "book", snap.Current, "period", snap.Period.String(), "saved_at", snap.SavedAt)
		return state, nil
	case errors.Is(err, domain.ErrStateNotFound):
	default:
		return nil, fmt.Errorf("load state: %w", err)
	}

	state, err := novel.New(prompt, CadenceTime(now, unit), limits)
	if err != nil {
		return nil, fmt.Errorf("create genesis state: %w", err)
	}

	genesis := state.Snapshot()
	genesis.SavedAt = now.UTC()
	if err := store.Save(ctx, genesis); err != nil {
		return nil, fmt.Errorf("save genesis state: %w", err)
	}

	slog.InfoContext(ctx, "Novel genesis created", "prompt", prompt, "max_sentences", limits.MaxSentences)
	return state, nil
}

// SeedGenesisSupply credits the admin with the initial token supply exactly once per ledger.
func SeedGenesisSupply(ctx context.Context, funder domain.TokenFunder, admin domain.Identity, supply int64) error {
	if supply <= 0 {
		return nil
	}

	applied, err := funder.CreditOnce(ctx, GenesisMarker, admin, supply)
	if err != nil {
		return fmt.Errorf("credit genesis supply: %w", err)
	}

	if applied {
		slog.InfoContext(ctx, "Genesis supply credited", "admin", admin.String(), "supply", supply)
	} else {
		slog.DebugContext(ctx, "Genesis supply already credited", "admin", admin.String())
	}
	return nil
}

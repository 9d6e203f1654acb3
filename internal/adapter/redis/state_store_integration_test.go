package redis

import (
	"context"
	"testing"
	"time"

	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_LoadMissing(t *testing.T) {
	store := NewStateStore(setupTestClient(t))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestStateStore_SaveOverwritesAndLoads(t *testing.T) {
	store := NewStateStore(setupTestClient(t))
	ctx := context.Background()

	first := &domain.Snapshot{
		Period:  domain.PeriodWriting,
		Books:   []domain.BookSnapshot{{Prompt: "genesis", Sentences: []domain.Sentence{}}},
		Cadence: domain.CadenceSnapshot{Previous: 1, Samples: []int64{1000, 1000, 1000, 1000, 1000}},
	}
	require.NoError(t, store.Save(ctx, first))

	second := &domain.Snapshot{
		Period:  domain.PeriodVoting,
		Current: 0,
		Books: []domain.BookSnapshot{{
			Prompt:    "genesis",
			Sentences: []domain.Sentence{{Author: "0xalice", Text: "hello", Votes: 69}},
		}},
		Cadence: domain.CadenceSnapshot{Previous: 9, Samples: []int64{1000, 1000, 1000, 1000, 8}},
		SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestStateStore_SaveFromLaterBookKeepsEarlierBooks(t *testing.T) {
	store := NewStateStore(setupTestClient(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Period:  domain.PeriodInitializing,
		Current: 1,
		Books: []domain.BookSnapshot{
			{Prompt: "first", Sentences: []domain.Sentence{{Author: "0xalice", Text: "done"}}},
			{Prompt: "second", Sentences: []domain.Sentence{}},
		},
		Cadence: domain.CadenceSnapshot{Previous: 1, Samples: []int64{1000, 1000, 1000, 1000, 1000}},
	}))
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Period:    domain.PeriodWriting,
		Current:   1,
		FirstBook: 1,
		Books:     []domain.BookSnapshot{{Prompt: "second", Sentences: []domain.Sentence{{Author: "0xbob", Text: "new"}}}},
		Cadence:   domain.CadenceSnapshot{Previous: 2, Samples: []int64{1000, 1000, 1000, 1000, 1}},
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Books, 2)
	assert.Equal(t, "done", loaded.Books[0].Sentences[0].Text)
	assert.Equal(t, "new", loaded.Books[1].Sentences[0].Text)
}

func TestSettlement_DebitsAndSavesTogether(t *testing.T) {
	rdb := setupTestClient(t)
	ctx := context.Background()
	ledger := NewLedger(rdb)
	require.NoError(t, ledger.Credit(ctx, "0xalice", 10))

	snap := &domain.Snapshot{
		Period:  domain.PeriodWriting,
		Books:   []domain.BookSnapshot{{Prompt: "genesis", Sentences: []domain.Sentence{{Author: "0xalice", Text: "paid for"}}}},
		Cadence: domain.CadenceSnapshot{Previous: 1, Samples: []int64{1000, 1000, 1000, 1000, 1}},
	}
	require.NoError(t, NewSettlement(rdb).Settle(ctx, "0xalice", 3, snap))

	balance, err := ledger.BalanceOf(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	loaded, err := NewStateStore(rdb).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paid for", loaded.Books[0].Sentences[0].Text)
}

func TestSettlement_InsufficientBalanceSavesNothing(t *testing.T) {
	rdb := setupTestClient(t)
	ctx := context.Background()
	require.NoError(t, NewLedger(rdb).Credit(ctx, "0xalice", 2))

	snap := &domain.Snapshot{Books: []domain.BookSnapshot{{Prompt: "genesis"}}}
	err := NewSettlement(rdb).Settle(ctx, "0xalice", 3, snap)

	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	_, err = NewStateStore(rdb).Load(ctx)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_LoadEmpty(t *testing.T) {
	_, err := NewStateStore().Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestStateStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()
	snap := &domain.Snapshot{
		Period:  domain.PeriodVoting,
		Current: 0,
		Books: []domain.BookSnapshot{{
			Prompt:    "prompt",
			Sentences: []domain.Sentence{{Author: "alice", Text: "hello", Votes: 3}},
		}},
		Cadence: domain.CadenceSnapshot{Previous: 7, Samples: []int64{1000, 1000, 1000, 1000, 7}},
		SavedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, store.Save(ctx, snap))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, snap, loaded)
}

func TestStateStore_LoadedSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Books: []domain.BookSnapshot{{Prompt: "p", Sentences: []domain.Sentence{}}},
	}))

	first, err := store.Load(ctx)
	require.NoError(t, err)
	first.Books[0].Prompt = "changed"

	second, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p", second.Books[0].Prompt)
}

func TestStateStore_SaveFromLaterBookKeepsEarlierBooks(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Period:  domain.PeriodInitializing,
		Current: 1,
		Books: []domain.BookSnapshot{
			{Prompt: "first", Sentences: []domain.Sentence{{Author: "alice", Text: "done"}}},
			{Prompt: "second", Sentences: []domain.Sentence{}},
		},
	}))

	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		Period:    domain.PeriodWriting,
		Current:   1,
		FirstBook: 1,
		Books:     []domain.BookSnapshot{{Prompt: "second", Sentences: []domain.Sentence{{Author: "bob", Text: "new"}}}},
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Books, 2)
	assert.Equal(t, "done", loaded.Books[0].Sentences[0].Text)
	assert.Equal(t, "new", loaded.Books[1].Sentences[0].Text)
	assert.Equal(t, domain.PeriodWriting, loaded.Period)
	assert.Zero(t, loaded.FirstBook)
}

func TestStateStore_RejectsGapInBooks(t *testing.T) {
	store := NewStateStore()

	err := store.Save(context.Background(), &domain.Snapshot{
		Current:   2,
		FirstBook: 2,
		Books:     []domain.BookSnapshot{{Prompt: "third"}},
	})

	assert.Error(t, err)
}

// Package storetest holds the behaviour every store.Ledger must share
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// Run exercises a ledger created fresh by open for each subtest
func Run(t *testing.T, open func(t *testing.T) store.Ledger) {
	t.Run("LookupMissing", func(t *testing.T) {
		l := open(t)
		_, found, err := l.Lookup(context.Background(), "run", "P(A=t|),1")
		require.NoError(t, err)
		assert.False(t, found)

		entries, err := l.Entries(context.Background(), "run")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("RecordAndLookup", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		created := time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC)
		e := store.Entry{
			ID:          store.NewID(),
			RunID:       "run-1",
			Key:         "P(Rain=true|Sick=true),2",
			Algorithm:   2,
			Probability: 0.77419,
			Sums:        1,
			Multiplies:  2,
			CreatedAt:   created,
		}
		require.NoError(t, l.Record(ctx, e))

		got, found, err := l.Lookup(ctx, "run-1", e.Key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, e.Key, got.Key)
		assert.Equal(t, 2, got.Algorithm)
		assert.Equal(t, 0.77419, got.Probability)
		assert.Equal(t, 1, got.Sums)
		assert.Equal(t, 2, got.Multiplies)
		assert.True(t, created.Equal(got.CreatedAt), "created %v, got %v", created, got.CreatedAt)

		// results never leak across runs
		_, found, err = l.Lookup(ctx, "run-2", e.Key)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("FirstRecordWins", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		first := store.Entry{ID: store.NewID(), RunID: "run", Key: "k", Probability: 0.25, CreatedAt: time.Now()}
		second := store.Entry{ID: store.NewID(), RunID: "run", Key: "k", Probability: 0.5, CreatedAt: time.Now()}
		require.NoError(t, l.Record(ctx, first))
		require.NoError(t, l.Record(ctx, second))

		got, found, err := l.Lookup(ctx, "run", "k")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, 0.25, got.Probability)

		entries, err := l.Entries(ctx, "run")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("EntriesOrderedByID", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		ids := make([]string, 5)
		for i := range ids {
			ids[i] = store.NewID()
		}
		// record out of order
		for _, i := range []int{3, 0, 4, 1, 2} {
			require.NoError(t, l.Record(ctx, store.Entry{
				ID:        ids[i],
				RunID:     "run",
				Key:       fmt.Sprintf("q%d", i),
				CreatedAt: time.Now(),
			}))
		}
		require.NoError(t, l.Record(ctx, store.Entry{ID: store.NewID(), RunID: "other", Key: "q0", CreatedAt: time.Now()}))

		entries, err := l.Entries(ctx, "run")
		require.NoError(t, err)
		require.Len(t, entries, len(ids))
		for i, e := range entries {
			assert.Equal(t, ids[i], e.ID)
			assert.Equal(t, fmt.Sprintf("q%d", i), e.Key)
		}
	})

	t.Run("ConcurrentRecords", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := l.Record(ctx, store.Entry{
					ID:        store.NewID(),
					RunID:     "run",
					Key:       fmt.Sprintf("q%d", i%4),
					CreatedAt: time.Now(),
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		entries, err := l.Entries(ctx, "run")
		require.NoError(t, err)
		assert.Len(t, entries, 4)
	})
}

// Package storetest checks store.Store implementations against the
// behaviour the server relies on.
package storetest

import (
	"context"
	"testing"
	"time"

	"semtok/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	t.Run("PutGet", func(t *testing.T) {
		s := open(t)
		snap := store.Snapshot{
			URI:      "file:///a.js",
			ResultID: "r1",
			Data:     []uint32{0, 0, 1, 0, 0, 0, 1, 1, 1, 1 << 20},
			Updated:  now,
		}
		require.NoError(t, s.Put(ctx, snap))

		got, err := s.Get(ctx, snap.URI)
		require.NoError(t, err)
		assert.Equal(t, snap.ResultID, got.ResultID)
		assert.Equal(t, snap.Data, got.Data)
		assert.True(t, snap.Updated.Equal(got.Updated))
	})

	t.Run("PutReplaces", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///a.js", ResultID: "r1", Data: []uint32{1}, Updated: now}))
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///a.js", ResultID: "r2", Data: []uint32{2, 3}, Updated: now}))

		got, err := s.Get(ctx, "file:///a.js")
		require.NoError(t, err)
		assert.Equal(t, "r2", got.ResultID)
		assert.Equal(t, []uint32{2, 3}, got.Data)
	})

	t.Run("EmptyData", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///e.js", ResultID: "r", Updated: now}))
		got, err := s.Get(ctx, "file:///e.js")
		require.NoError(t, err)
		assert.Empty(t, got.Data)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, "file:///missing.js")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///a.js", ResultID: "r", Data: []uint32{1}, Updated: now}))
		require.NoError(t, s.Delete(ctx, "file:///a.js"))
		require.NoError(t, s.Delete(ctx, "file:///a.js"))

		_, err := s.Get(ctx, "file:///a.js")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("Prune", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///old.js", ResultID: "r", Updated: now.Add(-time.Hour)}))
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///new.js", ResultID: "r", Updated: now}))

		n, err := s.Prune(ctx, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.Get(ctx, "file:///old.js")
		assert.True(t, errors.Is(err, store.ErrNotFound))
		_, err = s.Get(ctx, "file:///new.js")
		assert.NoError(t, err)
	})

	t.Run("Isolation", func(t *testing.T) {
		s := open(t)
		data := []uint32{1, 2, 3}
		require.NoError(t, s.Put(ctx, store.Snapshot{URI: "file:///a.js", ResultID: "r", Data: data, Updated: now}))
		data[0] = 99

		got, err := s.Get(ctx, "file:///a.js")
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 2, 3}, got.Data)
		got.Data[1] = 99

		again, err := s.Get(ctx, "file:///a.js")
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 2, 3}, again.Data)
	})
}

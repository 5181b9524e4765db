//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotwatch/internal/scheduler"
	"ballotwatch/internal/scheduler/store"
	"ballotwatch/pkg/testutil/containers"
)

func TestPostgresStateStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)

	st, err := store.NewPostgres(ctx, pg.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema(ctx))

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.LastRunAt.IsZero())

	first := scheduler.RunState{
		LastRunAt: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		LastRunID: "run-1",
	}
	require.NoError(t, st.Save(ctx, first))

	loaded, err = st.Load(ctx)
	require.NoError(t, err)
	assert.True(t, first.LastRunAt.Equal(loaded.LastRunAt))
	assert.Equal(t, "run-1", loaded.LastRunID)

	// Upsert replaces the single row.
	second := scheduler.RunState{
		LastRunAt: first.LastRunAt.Add(7 * 24 * time.Hour),
		LastRunID: "run-2",
	}
	require.NoError(t, st.Save(ctx, second))

	loaded, err = st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", loaded.LastRunID)
}

func TestRedisStateStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	st := store.NewRedis(rc.Client)

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.LastRunAt.IsZero())

	want := scheduler.RunState{
		LastRunAt: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		LastRunID: "run-1",
	}
	require.NoError(t, st.Save(ctx, want))

	loaded, err = st.Load(ctx)
	require.NoError(t, err)
	assert.True(t, want.LastRunAt.Equal(loaded.LastRunAt))
	assert.Equal(t, "run-1", loaded.LastRunID)
}

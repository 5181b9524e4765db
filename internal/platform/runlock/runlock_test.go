package runlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotwatch/pkg/platform/sentinel"
)

func TestInMemoryLockerExclusion(t *testing.T) {
	ctx := context.Background()
	l := NewInMemory()

	release, err := l.Acquire(ctx, "registry-sync", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "registry-sync", time.Minute)
	assert.True(t, errors.Is(err, sentinel.ErrConflict))

	release()

	release2, err := l.Acquire(ctx, "registry-sync", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestInMemoryLockerKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewInMemory()

	releaseA, err := l.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Acquire(ctx, "b", time.Minute)
	require.NoError(t, err)
	releaseB()
}

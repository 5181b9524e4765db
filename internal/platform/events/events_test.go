package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisherCollectsInOrder(t *testing.T) {
	p := NewMemory()

	first := Event{Kind: KindRunCompleted, RunID: "run-1", OccurredAt: time.Now()}
	second := Event{Kind: KindConflictFlagged, RunID: "run-1", OccurredAt: time.Now()}

	require.NoError(t, p.Publish(context.Background(), first))
	require.NoError(t, p.Publish(context.Background(), second))

	got := p.Events()
	require.Len(t, got, 2)
	assert.Equal(t, KindRunCompleted, got[0].Kind)
	assert.Equal(t, KindConflictFlagged, got[1].Kind)
	assert.Equal(t, "run-1", got[1].RunID)
}

func TestMemoryPublisherReturnsCopy(t *testing.T) {
	p := NewMemory()
	require.NoError(t, p.Publish(context.Background(), Event{Kind: KindRunCompleted, RunID: "run-2"}))

	got := p.Events()
	got[0].RunID = "mutated"

	assert.Equal(t, "run-2", p.Events()[0].RunID)
}

//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"ballotwatch/internal/platform/events"
	"ballotwatch/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	broker := containers.NewRedpandaContainer(t)

	pub, err := events.NewKafka(ctx, []string{broker.Broker}, events.WithTopic("ballotwatch.test.events"))
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	want := events.Event{
		Kind:       events.KindRunCompleted,
		RunID:      "run-1",
		OccurredAt: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(ctx, want))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics("ballotwatch.test.events"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "run-1", string(records[0].Key))

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, events.KindRunCompleted, got.Kind)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, want.OccurredAt.Equal(got.OccurredAt))
}

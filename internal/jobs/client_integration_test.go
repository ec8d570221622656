//go:build integration

package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/models"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

type chanRecomputer chan string

func (c chanRecomputer) Recompute(_ context.Context, userID, target string) (*models.StoredProfile, error) {
	c <- userID + ":" + target
	return &models.StoredProfile{UserID: userID, TargetIdentifier: target}, nil
}

func TestIntegration_AggregationOverNATS(t *testing.T) {
	url := skipWithoutNATS(t)

	client, err := NewClient(url, os.Getenv("NATS_TOKEN"), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	received := make(chanRecomputer, 1)
	require.NoError(t, NewWorker(received, time.Minute, zerolog.Nop()).Start(context.Background(), client))

	// give the subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, NewPublisher(client, zerolog.Nop()).TriggerAggregation(context.Background(), "it-user", "friend"))

	select {
	case got := <-received:
		require.Equal(t, "it-user:friend", got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for aggregation request")
	}
}

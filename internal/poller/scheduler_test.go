package poller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erkineren/repository-relay/internal/models"
	"github.com/erkineren/repository-relay/internal/poller"
)

func TestStart_RunsImmediatelyThenOnSchedule(t *testing.T) {
	st := &fakeStore{state: &models.State{
		Repos:    []models.RepoEntry{{Repo: "o/n"}},
		Channels: oneChannel(),
	}}
	fetcher := &fakeFetcher{repos: map[string]repoActivity{}}
	p := poller.New(fetcher, st, &fakeBroadcaster{}, poller.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Start(ctx, time.Second)
		close(done)
	}()

	// three fetches per cycle
	require.Eventually(t, func() bool { return fetcher.callCount() >= 3 }, time.Second, 10*time.Millisecond,
		"first cycle runs without waiting for the interval")
	require.Eventually(t, func() bool { return fetcher.callCount() >= 6 }, 5*time.Second, 50*time.Millisecond,
		"a scheduled cycle follows")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	assert.Zero(t, fetcher.callCount()%3, "no cycle was cut short")
}

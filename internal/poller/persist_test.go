package poller_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erkineren/repository-relay/internal/dispatch"
	"github.com/erkineren/repository-relay/internal/models"
	"github.com/erkineren/repository-relay/internal/poller"
	"github.com/erkineren/repository-relay/internal/store"
	"github.com/erkineren/repository-relay/internal/store/sqlite"
)

// cancellingBroadcaster cancels the cycle right after its first send, the way
// a shutdown signal would.
type cancellingBroadcaster struct {
	fakeBroadcaster
	cancel context.CancelFunc
}

func (b *cancellingBroadcaster) Broadcast(ctx context.Context, targets []dispatch.Target, text string) int {
	n := b.fakeBroadcaster.Broadcast(ctx, targets, text)
	b.cancel()
	return n
}

func openSQLiteStore(t *testing.T, path string) *store.Store {
	t.Helper()
	backend, err := sqlite.New(context.Background(), path)
	require.NoError(t, err)
	s, err := store.Open(context.Background(), backend)
	require.NoError(t, err)
	return s
}

func TestRunCycle_CancelledCycleKeepsAnnouncedCursors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	ctx := context.Background()

	st := openSQLiteStore(t, path)
	require.NoError(t, st.AddRepository(ctx, "a/a"))
	require.NoError(t, st.AddRepository(ctx, "b/b"))
	require.NoError(t, st.SetChannel(ctx, models.PlatformDiscord, "g1", "c1"))

	fetcher := &fakeFetcher{repos: map[string]repoActivity{
		"a/a": {commit: &models.Commit{SHA: "aaa"}},
		"b/b": {commit: &models.Commit{SHA: "bbb"}},
	}}

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	b := &cancellingBroadcaster{cancel: cancel}

	p := poller.New(fetcher, st, b, poller.Options{NotifyOnFirstSight: true})
	res, err := p.RunCycle(cycleCtx)
	require.NoError(t, err)
	require.Len(t, res.Notifications, 1)
	assert.Len(t, b.sent, 1)
	require.NoError(t, st.Close())

	reopened := openSQLiteStore(t, path)
	defer reopened.Close()

	repos := reopened.Repositories()
	require.Len(t, repos, 2)
	require.NotNil(t, repos[0].LastCommit)
	assert.Equal(t, "aaa", *repos[0].LastCommit)
	assert.Nil(t, repos[1].LastCommit, "b/b was never checked")
}

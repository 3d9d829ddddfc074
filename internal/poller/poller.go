// Package poller checks every watched repository for new commits, tags and
// releases and hands the resulting notifications to the dispatcher.
package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/erkineren/repository-relay/internal/dispatch"
	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
)

var ErrCycleInProgress = errors.New("poll cycle already in progress")

// flushTimeout bounds the final save, which must outlive a cancelled cycle so
// cursors of already announced activity are kept.
const flushTimeout = 10 * time.Second

type Fetcher interface {
	LatestCommit(ctx context.Context, repo string) (*models.Commit, error)
	LatestTag(ctx context.Context, repo string) (*models.Tag, error)
	LatestRelease(ctx context.Context, repo string) (*models.Release, error)
}

type Store interface {
	Repositories() []models.RepoEntry
	Channels() []models.ChannelEntry
	UpdateCursors(before, after models.RepoEntry) bool
	Flush(ctx context.Context) error
}

type Broadcaster interface {
	Resolve(ctx context.Context, entries []models.ChannelEntry) []dispatch.Target
	Broadcast(ctx context.Context, targets []dispatch.Target, text string) int
}

type Options struct {
	// NotifyOnFirstSight controls what happens when a cursor is still unset.
	// When false the first observed value is recorded without a message.
	NotifyOnFirstSight bool
}

type Poller struct {
	fetcher    Fetcher
	store      Store
	dispatcher Broadcaster
	opts       Options
	running    atomic.Bool
	log        zerolog.Logger
}

// Result summarises one cycle.
type Result struct {
	ID            string
	Skipped       bool
	Repos         int
	Targets       int
	Notifications []models.Notification
	Errors        int
}

func New(fetcher Fetcher, store Store, dispatcher Broadcaster, opts Options) *Poller {
	return &Poller{
		fetcher:    fetcher,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		log:        logger.With("poller"),
	}
}

// RunCycle performs one sweep over all repositories. Only one cycle runs at a
// time; a concurrent call returns ErrCycleInProgress.
func (p *Poller) RunCycle(ctx context.Context) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer p.running.Store(false)

	res := &Result{ID: uuid.NewString()}
	log := p.log.With().Str("cycle", res.ID).Logger()

	repos := p.store.Repositories()
	channels := p.store.Channels()
	res.Repos = len(repos)

	if len(repos) == 0 || len(channels) == 0 {
		log.Debug().Int("repos", len(repos)).Int("channels", len(channels)).Msg("nothing to do, skipping cycle")
		res.Skipped = true
		return res, nil
	}

	targets := p.dispatcher.Resolve(ctx, channels)
	res.Targets = len(targets)
	if len(targets) == 0 {
		log.Warn().Int("channels", len(channels)).Msg("no destination channel resolved, skipping cycle")
		res.Skipped = true
		return res, nil
	}

	log.Info().Int("repos", len(repos)).Int("targets", len(targets)).Msg("starting poll cycle")

	for _, entry := range repos {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("poll cycle interrupted")
			break
		}

		before := entry.Clone()
		notes, errs := p.checkRepo(ctx, &entry, targets, log)
		res.Notifications = append(res.Notifications, notes...)
		res.Errors += errs
		if !p.store.UpdateCursors(before, entry) {
			log.Debug().Str("repo", entry.Repo).Msg("repository changed during cycle, cursors dropped")
		}
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := p.store.Flush(flushCtx); err != nil {
		return res, err
	}

	log.Info().
		Int("notifications", len(res.Notifications)).
		Int("errors", res.Errors).
		Msg("poll cycle completed")
	return res, nil
}

// checkRepo runs the three independent checks for entry and advances its
// cursors in place.
func (p *Poller) checkRepo(ctx context.Context, entry *models.RepoEntry, targets []dispatch.Target, log zerolog.Logger) ([]models.Notification, int) {
	var (
		notes []models.Notification
		errs  int
	)
	log = log.With().Str("repo", entry.Repo).Logger()

	emit := func(n models.Notification) {
		sent := p.dispatcher.Broadcast(ctx, targets, n.Message)
		log.Info().Str("type", string(n.Type)).Int("sent", sent).Msg("new activity")
		notes = append(notes, n)
	}

	if commit, err := p.fetcher.LatestCommit(ctx, entry.Repo); err != nil {
		log.Error().Err(err).Msg("error checking commits")
		errs++
	} else if commit != nil && commit.SHA != "" && !stringEquals(entry.LastCommit, commit.SHA) {
		if p.shouldNotify(entry.LastCommit == nil) {
			emit(commitNotification(entry.Repo, commit))
		}
		entry.LastCommit = models.StringPtr(commit.SHA)
	}

	if tag, err := p.fetcher.LatestTag(ctx, entry.Repo); err != nil {
		log.Error().Err(err).Msg("error checking tags")
		errs++
	} else if tag != nil && tag.Name != "" && !stringEquals(entry.LastTag, tag.Name) {
		if p.shouldNotify(entry.LastTag == nil) {
			emit(tagNotification(entry.Repo, tag))
		}
		entry.LastTag = models.StringPtr(tag.Name)
	}

	if rel, err := p.fetcher.LatestRelease(ctx, entry.Repo); err != nil {
		log.Error().Err(err).Msg("error checking releases")
		errs++
	} else if rel != nil && rel.ID != 0 && (entry.LastRelease == nil || *entry.LastRelease != rel.ID) {
		if p.shouldNotify(entry.LastRelease == nil) {
			emit(releaseNotification(entry.Repo, rel))
		}
		entry.LastRelease = models.Int64Ptr(rel.ID)
	}

	return notes, errs
}

func (p *Poller) shouldNotify(firstSight bool) bool {
	return !firstSight || p.opts.NotifyOnFirstSight
}

func stringEquals(cursor *string, v string) bool {
	return cursor != nil && *cursor == v
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erkineren/repository-relay/internal/models"
)

var (
	ErrAlreadyWatched = errors.New("repository already watched")
	ErrNotWatched     = errors.New("repository not watched")
)

// Backend persists the whole aggregate. Save always receives the full state.
type Backend interface {
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, state *models.State) error
	Close() error
}

// Store owns the in-memory state. Every method is safe for concurrent use and
// every mutation is persisted before the lock is released.
type Store struct {
	mu      sync.Mutex
	state   *models.State
	backend Backend
}

func Open(ctx context.Context, backend Backend) (*Store, error) {
	state, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if state == nil {
		state = models.NewState()
	}

	return &Store{
		state:   state,
		backend: backend,
	}, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) AddRepository(ctx context.Context, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(repo) >= 0 {
		return fmt.Errorf("%s: %w", repo, ErrAlreadyWatched)
	}

	prev := s.state.Repos
	s.state.Repos = append(append([]models.RepoEntry(nil), prev...), models.RepoEntry{Repo: repo})

	if err := s.backend.Save(ctx, s.state); err != nil {
		s.state.Repos = prev
		return fmt.Errorf("failed to persist repository %s: %w", repo, err)
	}
	return nil
}

func (s *Store) RemoveRepository(ctx context.Context, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(repo)
	if i < 0 {
		return fmt.Errorf("%s: %w", repo, ErrNotWatched)
	}

	prev := s.state.Repos
	next := make([]models.RepoEntry, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.state.Repos = next

	if err := s.backend.Save(ctx, s.state); err != nil {
		s.state.Repos = prev
		return fmt.Errorf("failed to persist removal of %s: %w", repo, err)
	}
	return nil
}

// Repositories returns a deep copy of the watched repositories.
func (s *Store) Repositories() []models.RepoEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RepoEntry, 0, len(s.state.Repos))
	for _, r := range s.state.Repos {
		out = append(out, r.Clone())
	}
	return out
}

// UpdateCursors replaces the cursors of the stored repository named by after,
// provided they still match those of before, the snapshot the caller started
// from. A repository removed in the meantime, or removed and added again, is
// left untouched. It does not persist; call Flush after a sweep.
func (s *Store) UpdateCursors(before, after models.RepoEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(after.Repo)
	if i < 0 || !s.state.Repos[i].SameCursors(before) {
		return false
	}
	s.state.Repos[i] = after.Clone()
	return true
}

// SetChannel upserts the destination channel for a guild on a platform.
func (s *Store) SetChannel(ctx context.Context, platform, guildID, channelID string) error {
	if platform == models.PlatformDiscord {
		platform = ""
	}
	key := models.ChannelEntry{Platform: platform}.PlatformName()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.Channels
	next := append([]models.ChannelEntry(nil), prev...)

	found := false
	for i := range next {
		if next[i].GuildID == guildID && next[i].PlatformName() == key {
			next[i].ChannelID = channelID
			found = true
			break
		}
	}
	if !found {
		next = append(next, models.ChannelEntry{
			GuildID:   guildID,
			ChannelID: channelID,
			Platform:  platform,
		})
	}
	s.state.Channels = next

	if err := s.backend.Save(ctx, s.state); err != nil {
		s.state.Channels = prev
		return fmt.Errorf("failed to persist channel for guild %s: %w", guildID, err)
	}
	return nil
}

func (s *Store) Channels() []models.ChannelEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ChannelEntry, len(s.state.Channels))
	copy(out, s.state.Channels)
	return out
}

// Flush writes the full aggregate to the backend.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, s.state); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

func (s *Store) indexOf(repo string) int {
	for i, r := range s.state.Repos {
		if r.Repo == repo {
			return i
		}
	}
	return -1
}

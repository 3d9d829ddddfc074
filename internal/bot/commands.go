package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
	"github.com/erkineren/repository-relay/internal/store"
)

const genericErrorReply = "There was an error executing that command."

type RepoStore interface {
	AddRepository(ctx context.Context, repo string) error
	RemoveRepository(ctx context.Context, repo string) error
	Repositories() []models.RepoEntry
	SetChannel(ctx context.Context, platform, guildID, channelID string) error
}

// Commands holds the chat-platform independent behaviour of every command.
// Each method returns the reply to show the invoking user.
type Commands struct {
	store RepoStore
	log   zerolog.Logger
}

func NewCommands(store RepoStore) *Commands {
	return &Commands{
		store: store,
		log:   logger.With("commands"),
	}
}

func (c *Commands) AddRepo(ctx context.Context, repo string) string {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return "Usage: addrepo <owner/repo>"
	}

	err := c.store.AddRepository(ctx, repo)
	switch {
	case errors.Is(err, store.ErrAlreadyWatched):
		return fmt.Sprintf("%s is already monitored.", repo)
	case err != nil:
		c.log.Error().Err(err).Str("repo", repo).Msg("addrepo failed")
		return genericErrorReply
	}

	c.log.Info().Str("repo", repo).Msg("repository added")
	return fmt.Sprintf("✅ Now monitoring **%s**.", repo)
}

func (c *Commands) RemoveRepo(ctx context.Context, repo string) string {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return "Usage: removerepo <owner/repo>"
	}

	err := c.store.RemoveRepository(ctx, repo)
	switch {
	case errors.Is(err, store.ErrNotWatched):
		return fmt.Sprintf("%s is not monitored.", repo)
	case err != nil:
		c.log.Error().Err(err).Str("repo", repo).Msg("removerepo failed")
		return genericErrorReply
	}

	c.log.Info().Str("repo", repo).Msg("repository removed")
	return fmt.Sprintf("Stopped monitoring **%s**.", repo)
}

func (c *Commands) ListRepos() string {
	repos := c.store.Repositories()
	if len(repos) == 0 {
		return "No repositories are monitored."
	}

	var text strings.Builder
	text.WriteString("Monitored repositories:\n")
	for _, r := range repos {
		text.WriteString(fmt.Sprintf("• %s\n", r.Repo))
	}
	return strings.TrimSuffix(text.String(), "\n")
}

// SetChannel makes channelID the destination for guildID. mention is how the
// channel is shown back to the user.
func (c *Commands) SetChannel(ctx context.Context, platform, guildID, channelID, mention string) string {
	if guildID == "" || channelID == "" {
		return "This command can only be used in a server."
	}

	if err := c.store.SetChannel(ctx, platform, guildID, channelID); err != nil {
		c.log.Error().Err(err).Str("guild_id", guildID).Msg("setchannel failed")
		return genericErrorReply
	}

	c.log.Info().
		Str("platform", platform).
		Str("guild_id", guildID).
		Str("channel_id", channelID).
		Msg("notification channel set")
	return fmt.Sprintf("✅ Updates will be sent to %s.", mention)
}

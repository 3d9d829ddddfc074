package bot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
	"github.com/erkineren/repository-relay/internal/store"
	"github.com/erkineren/repository-relay/internal/store/jsonfile"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), jsonfile.New(filepath.Join(t.TempDir(), "repos.json")))
	require.NoError(t, err)
	return s
}

func newTestDiscord(s RepoStore) *Discord {
	return &Discord{commands: NewCommands(s), log: logger.With("discord")}
}

type brokenStore struct{}

func (brokenStore) AddRepository(context.Context, string) error    { return errors.New("disk full") }
func (brokenStore) RemoveRepository(context.Context, string) error { return errors.New("disk full") }
func (brokenStore) Repositories() []models.RepoEntry               { return nil }
func (brokenStore) SetChannel(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func TestCommands_AddRepo(t *testing.T) {
	s := newTestStore(t)
	c := NewCommands(s)
	ctx := context.Background()

	assert.Equal(t, "✅ Now monitoring **o/n**.", c.AddRepo(ctx, "o/n"))
	assert.Equal(t, "o/n is already monitored.", c.AddRepo(ctx, " o/n "))
	assert.Equal(t, "Usage: addrepo <owner/repo>", c.AddRepo(ctx, "  "))
	assert.Len(t, s.Repositories(), 1)
}

func TestCommands_RemoveAndList(t *testing.T) {
	c := NewCommands(newTestStore(t))
	ctx := context.Background()

	assert.Equal(t, "No repositories are monitored.", c.ListRepos())

	c.AddRepo(ctx, "a/one")
	c.AddRepo(ctx, "b/two")
	assert.Equal(t, "Monitored repositories:\n• a/one\n• b/two", c.ListRepos())

	assert.Equal(t, "Stopped monitoring **a/one**.", c.RemoveRepo(ctx, "a/one"))
	assert.Equal(t, "a/one is not monitored.", c.RemoveRepo(ctx, "a/one"))
	assert.Equal(t, "Monitored repositories:\n• b/two", c.ListRepos())
}

func TestCommands_SetChannel(t *testing.T) {
	s := newTestStore(t)
	c := NewCommands(s)
	ctx := context.Background()

	assert.Equal(t, "✅ Updates will be sent to <#c1>.", c.SetChannel(ctx, models.PlatformDiscord, "g1", "c1", "<#c1>"))
	assert.Equal(t, "✅ Updates will be sent to <#c2>.", c.SetChannel(ctx, models.PlatformDiscord, "g1", "c2", "<#c2>"))
	assert.Equal(t, "This command can only be used in a server.", c.SetChannel(ctx, models.PlatformDiscord, "", "c3", "<#c3>"))

	channels := s.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, "c2", channels[0].ChannelID)
}

func TestCommands_StoreErrorsAreGeneric(t *testing.T) {
	c := NewCommands(brokenStore{})
	ctx := context.Background()

	assert.Equal(t, genericErrorReply, c.AddRepo(ctx, "o/n"))
	assert.Equal(t, genericErrorReply, c.RemoveRepo(ctx, "o/n"))
	assert.Equal(t, genericErrorReply, c.SetChannel(ctx, models.PlatformDiscord, "g1", "c1", "<#c1>"))
}

func TestDiscord_HandleCommand(t *testing.T) {
	s := newTestStore(t)
	d := newTestDiscord(s)
	ctx := context.Background()

	reply := d.handleCommand(ctx, "g1", discordgo.ApplicationCommandInteractionData{
		Name: "addrepo",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "repo", Type: discordgo.ApplicationCommandOptionString, Value: "o/n"},
		},
	})
	assert.Equal(t, "✅ Now monitoring **o/n**.", reply)

	reply = d.handleCommand(ctx, "g1", discordgo.ApplicationCommandInteractionData{
		Name: "setchannel",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "123"},
		},
	})
	assert.Equal(t, "✅ Updates will be sent to <#123>.", reply)

	reply = d.handleCommand(ctx, "g1", discordgo.ApplicationCommandInteractionData{Name: "listrepos"})
	assert.Equal(t, "Monitored repositories:\n• o/n", reply)

	assert.Equal(t, []models.ChannelEntry{{GuildID: "g1", ChannelID: "123"}}, s.Channels())
}

func TestDiscord_SafeHandleRecovers(t *testing.T) {
	d := newTestDiscord(newTestStore(t))

	// a string value on a channel option makes discordgo panic
	reply := d.safeHandle(context.Background(), "g1", discordgo.ApplicationCommandInteractionData{
		Name: "setchannel",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "channel", Type: discordgo.ApplicationCommandOptionString, Value: "123"},
		},
	})
	assert.Equal(t, genericErrorReply, reply)
}

func TestTelegramHandler_Reply(t *testing.T) {
	s := newTestStore(t)
	h := NewHandler(NewCommands(s))
	ctx := context.Background()

	assert.Equal(t, helpText, h.Reply(ctx, Command{Name: "start"}))
	assert.Equal(t, "✅ Now monitoring **o/n**.", h.Reply(ctx, Command{Name: "addrepo", Args: "o/n extra"}))
	assert.Equal(t, "✅ Updates will be sent to Dev Chat.", h.Reply(ctx, Command{Name: "setchannel", ChatID: -100, ChatTitle: "Dev Chat"}))
	assert.Equal(t, "Unknown command. Use /help to see available commands.", h.Reply(ctx, Command{Name: "nope"}))

	channels := s.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, models.ChannelEntry{GuildID: "-100", ChannelID: "-100", Platform: models.PlatformTelegram}, channels[0])
}

func TestFormatMarkdown(t *testing.T) {
	assert.Equal(t, `New commit in *o/n*: https://github\.com/o/n`, formatMarkdown("New commit in **o/n**: https://github.com/o/n"))
	assert.Equal(t, "\\*\\*odd", formatMarkdown("**odd"))
	assert.Equal(t, "tag \\`v1\\.0\\`", formatMarkdown("tag `v1.0`"))
}

func TestTelegram_CancelledContext(t *testing.T) {
	b := &Telegram{log: logger.With("telegram")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Resolve(ctx, "-100"), context.Canceled)
	assert.ErrorIs(t, b.Send(ctx, "-100", "hello"), context.Canceled)
}

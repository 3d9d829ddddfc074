package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/erkineren/repository-relay/internal/dispatch"
	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
)

var _ dispatch.Sender = (*Discord)(nil)

var slashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "addrepo",
		Description: "Monitor a GitHub repo for updates",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "repo",
				Description: "Repository in owner/repo format",
				Required:    true,
			},
		},
	},
	{
		Name:        "setchannel",
		Description: "Set the channel for GitHub update notifications",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "The channel to send updates to",
				Required:    true,
			},
		},
	},
	{
		Name:        "removerepo",
		Description: "Stop monitoring a GitHub repo",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "repo",
				Description: "Repository in owner/repo format",
				Required:    true,
			},
		},
	},
	{
		Name:        "listrepos",
		Description: "List monitored GitHub repos",
	},
}

type Discord struct {
	session  *discordgo.Session
	commands *Commands
	log      zerolog.Logger
}

func NewDiscord(token string, commands *Commands) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	d := &Discord{
		session:  session,
		commands: commands,
		log:      logger.With("discord"),
	}
	session.AddHandler(d.onReady)
	session.AddHandler(d.onGuildCreate)
	session.AddHandler(d.onInteraction)

	return d, nil
}

// Open connects to the gateway. Slash commands are registered per guild as
// guilds become available.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) Platform() string {
	return models.PlatformDiscord
}

func (d *Discord) Resolve(ctx context.Context, channelID string) error {
	if _, err := d.session.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("fetching channel %s: %w", channelID, err)
	}
	return nil
}

func (d *Discord) Send(ctx context.Context, channelID, text string) error {
	if _, err := d.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (d *Discord) onReady(s *discordgo.Session, r *discordgo.Ready) {
	d.log.Info().Str("user", r.User.String()).Int("guilds", len(r.Guilds)).Msg("logged in")
}

func (d *Discord) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Unavailable {
		return
	}
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, g.ID, slashCommands); err != nil {
		d.log.Error().Err(err).Str("guild_id", g.ID).Msg("failed to register commands")
		return
	}
	d.log.Debug().Str("guild_id", g.ID).Msg("commands registered")
}

func (d *Discord) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	d.log.Info().Str("command", data.Name).Str("guild_id", i.GuildID).Msg("received command")

	reply := d.safeHandle(context.Background(), i.GuildID, data)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		d.log.Error().Err(err).Str("command", data.Name).Msg("failed to respond to interaction")
	}
}

func (d *Discord) safeHandle(ctx context.Context, guildID string, data discordgo.ApplicationCommandInteractionData) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("command", data.Name).Msg("command handler panicked")
			reply = genericErrorReply
		}
	}()
	return d.handleCommand(ctx, guildID, data)
}

func (d *Discord) handleCommand(ctx context.Context, guildID string, data discordgo.ApplicationCommandInteractionData) string {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}

	switch data.Name {
	case "addrepo":
		if o, ok := opts["repo"]; ok {
			return d.commands.AddRepo(ctx, o.StringValue())
		}
		return d.commands.AddRepo(ctx, "")
	case "removerepo":
		if o, ok := opts["repo"]; ok {
			return d.commands.RemoveRepo(ctx, o.StringValue())
		}
		return d.commands.RemoveRepo(ctx, "")
	case "listrepos":
		return d.commands.ListRepos()
	case "setchannel":
		o, ok := opts["channel"]
		if !ok {
			return genericErrorReply
		}
		channel := o.ChannelValue(nil)
		return d.commands.SetChannel(ctx, models.PlatformDiscord, guildID, channel.ID, channel.Mention())
	default:
		return "Unknown command."
	}
}

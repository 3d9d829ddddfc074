package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/erkineren/repository-relay/internal/dispatch"
	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
)

var _ dispatch.Sender = (*Telegram)(nil)

type Telegram struct {
	API            *tgbotapi.BotAPI
	handler        *Handler
	pollingTimeout int
	log            zerolog.Logger
}

func NewTelegram(token string, commands *Commands, pollingTimeout int) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Telegram{
		API:            api,
		handler:        NewHandler(commands),
		pollingTimeout: pollingTimeout,
		log:            logger.With("telegram"),
	}, nil
}

func (b *Telegram) Platform() string {
	return models.PlatformTelegram
}

// Resolve checks that the bot can see the chat. telegram-bot-api v5 takes no
// context, so ctx is only honoured before the request starts.
func (b *Telegram) Resolve(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}

	_, err = b.API.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return fmt.Errorf("fetching chat %d: %w", chatID, err)
	}
	return nil
}

// Send posts text to the chat. Like Resolve, it cannot be interrupted once the
// request is in flight.
func (b *Telegram) Send(ctx context.Context, channelID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}

	msg := tgbotapi.NewMessage(chatID, formatMarkdown(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := b.API.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Run consumes bot updates until ctx is cancelled.
func (b *Telegram) Run(ctx context.Context) {
	b.log.Info().Int("polling_timeout", b.pollingTimeout).Msg("bot worker started")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollingTimeout

	updates := b.API.GetUpdatesChan(u)
	defer b.API.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("bot worker shutting down...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	b.log.Info().Str("command", msg.Command()).Int64("chat_id", msg.Chat.ID).Msg("received command")

	text := b.handler.Reply(ctx, Command{
		Name:      msg.Command(),
		Args:      msg.CommandArguments(),
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
	})

	reply := tgbotapi.NewMessage(msg.Chat.ID, formatMarkdown(text))
	reply.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.API.Send(reply); err != nil {
		b.log.Error().Err(err).Str("command", msg.Command()).Msg("error sending reply")
	}
}

// formatMarkdown escapes text for MarkdownV2 while keeping **bold** spans.
func formatMarkdown(text string) string {
	parts := strings.Split(text, "**")
	if len(parts)%2 == 0 {
		// unbalanced markers, send everything literally
		return escapeMarkdown(text)
	}

	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			b.WriteString("*" + escapeMarkdown(part) + "*")
			continue
		}
		b.WriteString(escapeMarkdown(part))
	}
	return b.String()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}

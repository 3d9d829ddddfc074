package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/erkineren/repository-relay/internal/models"
)

const helpText = `Welcome to Repository Relay!

Available commands:
/addrepo <owner/repo> - Monitor a GitHub repo for updates
/removerepo <owner/repo> - Stop monitoring a GitHub repo
/listrepos - List monitored repos
/setchannel - Send updates to this chat
/help - Show this help message`

// Command is a parsed Telegram command.
type Command struct {
	Name      string
	Args      string
	ChatID    int64
	ChatTitle string
}

// Handler maps Telegram commands onto Commands. In Telegram every chat is its
// own "guild", so /setchannel routes a chat's updates to itself.
type Handler struct {
	commands *Commands
}

func NewHandler(commands *Commands) *Handler {
	return &Handler{commands: commands}
}

func (h *Handler) Reply(ctx context.Context, cmd Command) string {
	switch cmd.Name {
	case "start", "help":
		return helpText
	case "addrepo":
		return h.commands.AddRepo(ctx, firstArg(cmd.Args))
	case "removerepo":
		return h.commands.RemoveRepo(ctx, firstArg(cmd.Args))
	case "listrepos":
		return h.commands.ListRepos()
	case "setchannel":
		id := strconv.FormatInt(cmd.ChatID, 10)
		mention := "this chat"
		if cmd.ChatTitle != "" {
			mention = cmd.ChatTitle
		}
		return h.commands.SetChannel(ctx, models.PlatformTelegram, id, id, mention)
	default:
		return "Unknown command. Use /help to see available commands."
	}
}

func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

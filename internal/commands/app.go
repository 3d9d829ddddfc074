package commands

import (
	"context"
	"fmt"
	"regexp"

	"github.com/erkineren/repository-relay/internal/bot"
	"github.com/erkineren/repository-relay/internal/config"
	"github.com/erkineren/repository-relay/internal/dispatch"
	"github.com/erkineren/repository-relay/internal/github"
	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/poller"
	"github.com/erkineren/repository-relay/internal/store"
	"github.com/erkineren/repository-relay/internal/store/jsonfile"
	"github.com/erkineren/repository-relay/internal/store/postgres"
	"github.com/erkineren/repository-relay/internal/store/sqlite"
)

// app is the fully wired process shared by serve and check.
type app struct {
	cfg      *config.Config
	store    *store.Store
	discord  *bot.Discord
	telegram *bot.Telegram
	poller   *poller.Poller
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetDebug(cfg.Debug)
	logger.Info().
		Dur("poll_interval", cfg.PollInterval).
		Str("store_driver", cfg.StoreDriver).
		Bool("notify_on_first_sight", cfg.NotifyOnFirstSight).
		Msg("configuration loaded successfully")

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	st, err := store.Open(ctx, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	a := &app{cfg: cfg, store: st}
	commands := bot.NewCommands(st)

	var senders []dispatch.Sender
	if cfg.DiscordToken != "" {
		a.discord, err = bot.NewDiscord(cfg.DiscordToken, commands)
		if err != nil {
			st.Close()
			return nil, err
		}
		senders = append(senders, a.discord)
	}
	if cfg.TelegramBotToken != "" {
		a.telegram, err = bot.NewTelegram(cfg.TelegramBotToken, commands, cfg.PollingTimeout)
		if err != nil {
			st.Close()
			return nil, err
		}
		senders = append(senders, a.telegram)
	}

	if cfg.GitHubToken == "" {
		logger.Warn().Msg("GITHUB_TOKEN not set, using unauthenticated GitHub API access")
	}
	gh := github.NewClient(cfg.GitHubToken, cfg.RequestTimeout)

	a.poller = poller.New(gh, st, dispatch.New(cfg.SendRatePerSec, senders...), poller.Options{
		NotifyOnFirstSight: cfg.NotifyOnFirstSight,
	})

	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		logger.Info().Str("database", maskDatabaseURL(cfg.DatabaseURL)).Msg("connecting to database")
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		logger.Info().Str("path", cfg.SQLitePath).Msg("opening sqlite database")
		return sqlite.New(ctx, cfg.SQLitePath)
	case config.DriverJSON, "":
		logger.Info().Str("path", cfg.StatePath).Msg("using state file")
		return jsonfile.New(cfg.StatePath), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

var credentialsPattern = regexp.MustCompile(`://[^:]+:[^@]+@`)

func maskDatabaseURL(url string) string {
	return credentialsPattern.ReplaceAllString(url, "://*****:*****@")
}

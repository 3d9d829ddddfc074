package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/erkineren/repository-relay/internal/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect the chat bots and poll GitHub on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
}

func runServe(configPath string) error {
	logger.Info().Msg("starting repository relay...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("received signal, initiating shutdown...")
		cancel()
	}()

	if a.discord != nil {
		if err := a.discord.Open(); err != nil {
			return err
		}
		defer a.discord.Close()
		logger.Info().Msg("discord session opened")
	}

	var wg sync.WaitGroup

	if a.telegram != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.telegram.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.poller.Start(ctx, a.cfg.PollInterval)
	}()

	logger.Info().Msg("relay is now running, press Ctrl+C to stop")
	wg.Wait()
	logger.Info().Msg("shutdown complete")
	return nil
}

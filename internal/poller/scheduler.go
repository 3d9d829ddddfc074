package poller

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Start runs a cycle immediately and then every interval until ctx is
// cancelled. Firings that arrive while a cycle is still running are skipped.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	p.runLogged(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: p.log})))
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		p.runLogged(ctx)
	}))
	c.Start()
	p.log.Info().Dur("interval", interval).Msg("poller started")

	<-ctx.Done()

	p.log.Info().Msg("poller shutting down...")
	<-c.Stop().Done()
}

func (p *Poller) runLogged(ctx context.Context) {
	if _, err := p.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			p.log.Warn().Msg("previous poll cycle still running, skipping")
			return
		}
		p.log.Error().Err(err).Msg("error processing poll cycle")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

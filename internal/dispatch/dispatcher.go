// Package dispatch fans generated messages out to every resolved destination
// channel across the running chat platforms.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
)

//go:generate mockgen -destination=mocks/sender_mock.go -package=mocks github.com/erkineren/repository-relay/internal/dispatch Sender

var ErrUnknownPlatform = errors.New("platform not running")

// Sender delivers text to channels of one chat platform.
type Sender interface {
	Platform() string
	// Resolve checks that the channel still exists and is reachable.
	Resolve(ctx context.Context, channelID string) error
	Send(ctx context.Context, channelID, text string) error
}

// Target is a channel that resolved during the current cycle.
type Target struct {
	Platform  string
	GuildID   string
	ChannelID string
}

type Dispatcher struct {
	senders map[string]Sender
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New builds a dispatcher pacing sends at ratePerSec across all platforms.
func New(ratePerSec int, senders ...Sender) *Dispatcher {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}

	d := &Dispatcher{
		senders: make(map[string]Sender, len(senders)),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     logger.With("dispatch"),
	}
	for _, s := range senders {
		d.senders[s.Platform()] = s
	}
	return d
}

// Resolve keeps the entries whose channel can currently be reached. Failures
// are logged and skipped.
func (d *Dispatcher) Resolve(ctx context.Context, entries []models.ChannelEntry) []Target {
	targets := make([]Target, 0, len(entries))

	for _, entry := range entries {
		platform := entry.PlatformName()

		sender, ok := d.senders[platform]
		if !ok {
			d.log.Warn().
				Err(fmt.Errorf("%s: %w", platform, ErrUnknownPlatform)).
				Str("guild_id", entry.GuildID).
				Str("channel_id", entry.ChannelID).
				Msg("skipping channel")
			continue
		}

		if err := sender.Resolve(ctx, entry.ChannelID); err != nil {
			d.log.Warn().
				Err(err).
				Str("platform", platform).
				Str("guild_id", entry.GuildID).
				Str("channel_id", entry.ChannelID).
				Msg("invalid channel config")
			continue
		}

		targets = append(targets, Target{
			Platform:  platform,
			GuildID:   entry.GuildID,
			ChannelID: entry.ChannelID,
		})
	}

	return targets
}

// Broadcast sends text to every target and returns how many sends succeeded.
// A failed send is logged and does not stop the others.
func (d *Dispatcher) Broadcast(ctx context.Context, targets []Target, text string) int {
	sent := 0
	for _, t := range targets {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn().Err(err).Msg("broadcast interrupted")
			return sent
		}

		sender, ok := d.senders[t.Platform]
		if !ok {
			continue
		}
		if err := sender.Send(ctx, t.ChannelID, text); err != nil {
			d.log.Error().
				Err(err).
				Str("platform", t.Platform).
				Str("channel_id", t.ChannelID).
				Msg("failed to send message")
			continue
		}
		sent++
	}
	return sent
}

package fitment

import (
	"context"
	"errors"

	"github.com/introcar/introcar-backend/pkg/logger"
)

// Bus carries invalidation notices between API instances.
type Bus interface {
	Publish(ctx context.Context, channel, payload string) error
	SubscribeChannel(ctx context.Context, channel string) (<-chan string, func() error)
}

// Syncer reloads the local index on demand and tells peers to do the same.
type Syncer struct {
	holder  *Holder
	bus     Bus
	channel string
	origin  string
	logg    *logger.Logger
}

// NewSyncer wires a Syncer. A nil bus keeps invalidation local.
func NewSyncer(holder *Holder, bus Bus, channel, origin string, logg *logger.Logger) (*Syncer, error) {
	if holder == nil {
		return nil, errors.New("fitment holder required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Syncer{holder: holder, bus: bus, channel: channel, origin: origin, logg: logg}, nil
}

// Invalidate reloads this instance then broadcasts to peers. A failed
// broadcast is logged; the local reload still counts.
func (s *Syncer) Invalidate(ctx context.Context) (Report, error) {
	report, err := s.holder.Reload(ctx)
	if err != nil {
		return Report{}, err
	}
	if s.bus != nil && s.channel != "" {
		if err := s.bus.Publish(ctx, s.channel, s.origin); err != nil {
			s.logg.Error(ctx, "failed to broadcast catalog invalidation", err)
		}
	}
	return report, nil
}

// Run reloads whenever a peer broadcasts, until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	if s.bus == nil || s.channel == "" {
		<-ctx.Done()
		return nil
	}
	messages, closeFn := s.bus.SubscribeChannel(ctx, s.channel)
	defer func() {
		if err := closeFn(); err != nil {
			s.logg.Error(ctx, "failed to close catalog subscription", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case origin, ok := <-messages:
			if !ok {
				return nil
			}
			if origin == s.origin {
				continue
			}
			logCtx := s.logg.WithField(ctx, "origin", origin)
			s.logg.Info(logCtx, "catalog invalidation received")
			if _, err := s.holder.Reload(ctx); err != nil {
				s.logg.Error(logCtx, "catalog reload failed", err)
			}
		}
	}
}

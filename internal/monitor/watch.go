package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/stellarlinkco/clawdash/internal/activity"
	"github.com/stellarlinkco/clawdash/internal/bus"
	"github.com/stellarlinkco/clawdash/internal/memory"
)

// Watch publishes a status event and the first activity page every
// interval, and a memory event whenever a notes file changes. It blocks
// until ctx is done.
func (s *Service) Watch(ctx context.Context, interval time.Duration, hub *bus.Hub) error {
	if interval <= 0 {
		interval = s.cfg.Server.PushInterval()
	}

	w := memory.NewWatcher(s.notes)
	if err := w.Start(func(c memory.Change) {
		s.cache.Invalidate(s.MemoryKey())
		hub.Publish(bus.Event{Type: bus.EventMemory, Data: c})
	}); err != nil {
		s.log.Warn().Err(err).Msg("notes watcher disabled")
	}
	defer w.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.publish(ctx, hub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.publish(ctx, hub)
		}
	}
}

func (s *Service) publish(ctx context.Context, hub *bus.Hub) {
	if hub.Subscribers() == 0 {
		return
	}
	if v, err := s.Status(ctx); err == nil {
		hub.Publish(bus.Event{Type: bus.EventStatus, Timestamp: v.GeneratedAt, Data: v})
	} else if !errors.Is(err, ErrNoData) {
		s.log.Warn().Err(err).Msg("status push")
	}
	if v, err := s.Activity(ctx, activity.Filter{Page: 1}); err == nil {
		hub.Publish(bus.Event{Type: bus.EventActivity, Timestamp: v.GeneratedAt, Data: v})
	} else if !errors.Is(err, ErrNoData) {
		s.log.Warn().Err(err).Msg("activity push")
	}
}

// Package monitor wires the CLI bridge, the snapshot cache and the
// derivers into the read operations served by the dashboard.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/clawdash/internal/bridge"
	"github.com/stellarlinkco/clawdash/internal/cache"
	"github.com/stellarlinkco/clawdash/internal/config"
	"github.com/stellarlinkco/clawdash/internal/logger"
	"github.com/stellarlinkco/clawdash/internal/memory"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
	"github.com/stellarlinkco/clawdash/internal/status"
)

// ErrNoData is returned when none of the snapshots an operation needs is
// available, fresh or cached.
var ErrNoData = errors.New("no monitoring data available")

// Meta annotates every response.
type Meta struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
	Stale       bool      `json:"stale"`
}

func (m *Meta) add(r cache.Result) {
	m.Cached = m.Cached || r.Cached
	m.Stale = m.Stale || r.Stale
}

type Service struct {
	cfg     *config.Config
	bridge  *bridge.Bridge
	cache   *cache.Cache
	metrics status.MetricsSource
	notes   *memory.Notes
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Service)

func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithMetrics(m status.MetricsSource) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg *config.Config, b *bridge.Bridge, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		bridge:  b,
		metrics: status.HostMetrics{},
		notes:   memory.NewNotes(cfg.Workspace),
		now:     time.Now,
		log:     logger.WithComponent("monitor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New(cache.WithClock(s.now))
	}
	return s
}

func (s *Service) Notes() *memory.Notes {
	return s.notes
}

func (s *Service) Cache() *cache.Cache {
	return s.cache
}

func (s *Service) meta() Meta {
	return Meta{GeneratedAt: s.now()}
}

// CLI argument sets, one cache entry each.
var (
	statusArgs = []string{"status", "--json"}
	healthArgs = []string{"health", "--json"}
	cronArgs   = []string{"cron", "list", "--json"}
	memoryArgs = []string{"memory", "status", "--json"}
)

func (s *Service) sessionsArgs() []string {
	return []string{"sessions", "--json", "--limit", strconv.Itoa(s.cfg.Activity.SessionLimit)}
}

func (s *Service) key(args []string) string {
	return cache.Key(s.bridge.Command(), args...)
}

// MemoryKey is the cache key invalidated when the notes change.
func (s *Service) MemoryKey() string {
	return s.key(memoryArgs)
}

func (s *Service) fetch(ctx context.Context, args []string, ttl, timeout time.Duration) cache.Result {
	return s.cache.Get(ctx, s.key(args), func(ctx context.Context) (*snapshot.Raw, error) {
		return s.bridge.Invoke(ctx, timeout, args...), nil
	}, ttl)
}

func (s *Service) fetchStatus(ctx context.Context) cache.Result {
	return s.fetch(ctx, statusArgs, s.cfg.Cache.StatusTTL(), s.cfg.OpenClaw.Timeout())
}

func (s *Service) fetchHealth(ctx context.Context) cache.Result {
	return s.fetch(ctx, healthArgs, s.cfg.Cache.HealthTTL(), s.cfg.OpenClaw.HealthTimeout())
}

func (s *Service) fetchSessions(ctx context.Context) cache.Result {
	return s.fetch(ctx, s.sessionsArgs(), s.cfg.Cache.SessionsTTL(), s.cfg.OpenClaw.Timeout())
}

func (s *Service) fetchCron(ctx context.Context) cache.Result {
	return s.fetch(ctx, cronArgs, s.cfg.Cache.CronTTL(), s.cfg.OpenClaw.Timeout())
}

func (s *Service) fetchMemory(ctx context.Context) cache.Result {
	return s.fetch(ctx, memoryArgs, s.cfg.Cache.MemoryTTL(), s.cfg.OpenClaw.Timeout())
}

// statusAndHealth fetches both snapshots concurrently. Neither fetch
// returns an error, so the group only serves as a join point.
func (s *Service) statusAndHealth(ctx context.Context) (st, hl cache.Result) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st = s.fetchStatus(gctx)
		return nil
	})
	g.Go(func() error {
		hl = s.fetchHealth(gctx)
		return nil
	})
	_ = g.Wait()
	return st, hl
}

func (s *Service) collectMetrics(ctx context.Context) status.OSMetrics {
	m, err := s.metrics.Collect(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("host metrics incomplete")
	}
	return m
}

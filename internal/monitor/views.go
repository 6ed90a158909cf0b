package monitor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/clawdash/internal/activity"
	"github.com/stellarlinkco/clawdash/internal/agents"
	"github.com/stellarlinkco/clawdash/internal/cache"
	"github.com/stellarlinkco/clawdash/internal/channel"
	"github.com/stellarlinkco/clawdash/internal/configview"
	"github.com/stellarlinkco/clawdash/internal/cron"
	"github.com/stellarlinkco/clawdash/internal/memory"
	"github.com/stellarlinkco/clawdash/internal/skills"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
	"github.com/stellarlinkco/clawdash/internal/status"
)

type StatusView struct {
	status.SystemStatus
	Meta
}

type HealthView struct {
	status.Report
	Meta
}

type ChannelsView struct {
	Channels []channel.Health `json:"channels"`
	Meta
}

type ActivityView struct {
	activity.Page
	Meta
}

type CronView struct {
	Jobs     []cron.Summary `json:"jobs"`
	Overview cron.Overview  `json:"overview"`
	Meta
}

type ConfigView struct {
	Config configview.View `json:"config"`
	Meta
}

type AgentsView struct {
	Agents []agents.Agent `json:"agents"`
	Meta
}

type MemoryView struct {
	Notes  memory.Inventory       `json:"notes"`
	Today  []memory.Heading       `json:"today"`
	Stores []snapshot.MemoryStore `json:"stores"`
	Meta
}

func (s *Service) systemStatus(ctx context.Context) (status.SystemStatus, Meta, error) {
	meta := s.meta()
	var (
		st, hl cache.Result
		m      status.OSMetrics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, hl = s.statusAndHealth(gctx)
		return nil
	})
	g.Go(func() error {
		m = s.collectMetrics(gctx)
		return nil
	})
	_ = g.Wait()

	meta.add(st)
	meta.add(hl)
	if st.Data == nil && hl.Data == nil {
		return status.SystemStatus{}, meta, ErrNoData
	}
	return status.Derive(st.Data, hl.Data, m), meta, nil
}

func (s *Service) Status(ctx context.Context) (StatusView, error) {
	sys, meta, err := s.systemStatus(ctx)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{SystemStatus: sys, Meta: meta}, nil
}

func (s *Service) Health(ctx context.Context) (HealthView, error) {
	sys, meta, err := s.systemStatus(ctx)
	if err != nil {
		return HealthView{}, err
	}
	return HealthView{Report: status.BuildReport(sys, meta.GeneratedAt), Meta: meta}, nil
}

func (s *Service) Channels(ctx context.Context) (ChannelsView, error) {
	meta := s.meta()
	hl := s.fetchHealth(ctx)
	meta.add(hl)
	if hl.Data == nil {
		return ChannelsView{}, ErrNoData
	}
	return ChannelsView{Channels: channel.FromProbes(snapshot.ChannelProbes(hl.Data)), Meta: meta}, nil
}

// feed builds the normalized activity feed from sessions, cron runs,
// the heartbeat and today's memory headings. The three CLI snapshots
// are fetched concurrently.
func (s *Service) feed(ctx context.Context) ([]activity.Entry, *snapshot.Raw, Meta, error) {
	meta := s.meta()
	var st, ss, cr cache.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { st = s.fetchStatus(gctx); return nil })
	g.Go(func() error { ss = s.fetchSessions(gctx); return nil })
	g.Go(func() error { cr = s.fetchCron(gctx); return nil })
	_ = g.Wait()
	meta.add(st)
	meta.add(ss)
	meta.add(cr)

	sessions := snapshot.Sessions(ss.Data, "")
	if len(sessions) == 0 {
		sessions = snapshot.Sessions(st.Data, "sessions")
	}

	now := meta.GeneratedAt
	day := now.Format(memory.DayLayout)
	headings, err := s.notes.Headings(day)
	if err != nil {
		s.log.Warn().Err(err).Str("day", day).Msg("read memory headings")
	}
	titles := make([]string, len(headings))
	for i, h := range headings {
		titles[i] = h.Text
	}

	hb := st.Data.Time("heartbeat.lastHeartbeatAt")
	feed := activity.Normalize(
		activity.FromSessions(sessions),
		activity.FromCronJobs(snapshot.CronJobs(cr.Data)),
		activity.FromHeadings(day, titles, now),
		activity.FromHeartbeat(hb, st.Data.String("agents.defaultId", "")),
	)

	if st.Data == nil && ss.Data == nil && cr.Data == nil && len(feed) == 0 {
		return nil, nil, meta, ErrNoData
	}
	return feed, st.Data, meta, nil
}

// Activity answers one feed query. Page size is clamped to the
// configured maximum; zero means the configured default.
func (s *Service) Activity(ctx context.Context, f activity.Filter) (ActivityView, error) {
	feed, _, meta, err := s.feed(ctx)
	if err != nil {
		return ActivityView{}, err
	}
	if f.PageSize < 1 {
		f.PageSize = s.cfg.Activity.DefaultPageSize
	}
	if limit := s.cfg.Activity.MaxPageSize; limit > 0 && f.PageSize > limit {
		f.PageSize = limit
	}
	return ActivityView{Page: activity.Query(feed, f), Meta: meta}, nil
}

func (s *Service) Cron(ctx context.Context) (CronView, error) {
	meta := s.meta()
	cr := s.fetchCron(ctx)
	meta.add(cr)
	if cr.Data == nil {
		return CronView{}, ErrNoData
	}
	jobs := cron.Summarize(snapshot.CronJobs(cr.Data), meta.GeneratedAt)
	return CronView{Jobs: jobs, Overview: cron.OverviewOf(jobs), Meta: meta}, nil
}

func (s *Service) Config(ctx context.Context) (ConfigView, error) {
	meta := s.meta()
	st, hl := s.statusAndHealth(ctx)
	meta.add(st)
	meta.add(hl)
	if st.Data == nil && hl.Data == nil {
		return ConfigView{}, ErrNoData
	}

	list, err := skills.Inventory(skills.Dir(s.cfg.Workspace))
	if err != nil {
		s.log.Warn().Err(err).Msg("skills inventory")
	}
	view := configview.Assemble(st.Data, hl.Data, configview.Extras{
		Skills:      list,
		SkillsError: err,
		Dashboard:   s.dashboardSection(),
	})
	return ConfigView{Config: view, Meta: meta}, nil
}

func (s *Service) dashboardSection() map[string]any {
	return map[string]any{
		"name":      s.cfg.Branding.Name,
		"tagline":   s.cfg.Branding.Tagline,
		"command":   s.cfg.OpenClaw.Command,
		"workspace": s.cfg.Workspace,
		"listen":    s.cfg.Server.Addr(),
		"cacheTtl": map[string]any{
			"status":   s.cfg.Cache.StatusTTL().String(),
			"health":   s.cfg.Cache.HealthTTL().String(),
			"sessions": s.cfg.Cache.SessionsTTL().String(),
			"cron":     s.cfg.Cache.CronTTL().String(),
			"memory":   s.cfg.Cache.MemoryTTL().String(),
		},
		"cacheEntries": len(s.cache.Keys()),
	}
}

func (s *Service) Agents(ctx context.Context) (AgentsView, error) {
	feed, statusSnap, meta, err := s.feed(ctx)
	if err != nil {
		return AgentsView{}, err
	}
	return AgentsView{Agents: agents.Roster(statusSnap, feed, s.cfg.Activity.RecentTasks), Meta: meta}, nil
}

// Memory never reports ErrNoData: the notes are local and an absent
// store snapshot only empties Stores.
func (s *Service) Memory(ctx context.Context) (MemoryView, error) {
	meta := s.meta()
	mr := s.fetchMemory(ctx)
	meta.add(mr)

	inv, err := s.notes.Inventory()
	if err != nil {
		return MemoryView{}, fmt.Errorf("memory inventory: %w", err)
	}
	today, err := s.notes.HeadingsOn(meta.GeneratedAt)
	if err != nil {
		return MemoryView{}, fmt.Errorf("memory headings: %w", err)
	}
	if today == nil {
		today = []memory.Heading{}
	}
	stores := snapshot.MemoryStores(mr.Data)
	if stores == nil {
		stores = []snapshot.MemoryStore{}
	}
	return MemoryView{Notes: inv, Today: today, Stores: stores, Meta: meta}, nil
}

// Branding is static for the life of the process.
type Branding struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
}

func (s *Service) Branding() Branding {
	return Branding{Name: s.cfg.Branding.Name, Tagline: s.cfg.Branding.Tagline}
}

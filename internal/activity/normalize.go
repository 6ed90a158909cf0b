package activity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stellarlinkco/clawdash/internal/channel"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

// FromSessions turns each session into one entry keyed by session key,
// so the same session seen in several snapshots collapses on dedupe.
func FromSessions(sessions []snapshot.Session) []Entry {
	out := make([]Entry, 0, len(sessions))
	for _, s := range sessions {
		c, _ := Classify(s.Key)
		e := Entry{
			ID:         "session:" + s.Key,
			Timestamp:  s.UpdatedAt,
			Type:       c.Type,
			Channel:    c.Channel,
			Summary:    c.Summary,
			Status:     Success,
			AgentID:    s.AgentID,
			DurationMs: s.DurationMs,
		}
		if s.Label != "" {
			e.Summary += ": " + s.Label
		}
		if s.Aborted {
			e.Status = Failed
		}
		if n, ok := s.Tokens(); ok {
			e.TokensUsed = &n
		}
		e.Details = sessionDetails(s, e.TokensUsed)
		out = append(out, e)
	}
	return out
}

func sessionDetails(s snapshot.Session, tokens *int64) string {
	var parts []string
	if s.Model != "" {
		parts = append(parts, "model "+s.Model)
	}
	if tokens != nil {
		parts = append(parts, fmt.Sprintf("%d tokens", *tokens))
	}
	if s.Aborted {
		parts = append(parts, "last run aborted")
	}
	return strings.Join(parts, ", ")
}

// FromCronJobs yields one entry per job that has run at least once.
func FromCronJobs(jobs []snapshot.CronJob) []Entry {
	var out []Entry
	for _, j := range jobs {
		if j.State.LastRunAt.IsZero() {
			continue
		}
		out = append(out, Entry{
			ID:         "cron:" + j.ID + ":" + strconv.FormatInt(j.State.LastRunAt.UnixMilli(), 10),
			Timestamp:  j.State.LastRunAt,
			Type:       Cron,
			Channel:    channel.Cron,
			Summary:    "Cron job: " + j.Name,
			Status:     cronStatus(j.State.LastStatus),
			Details:    j.State.LastError,
			AgentID:    j.AgentID,
			DurationMs: j.State.LastDurationMs,
		})
	}
	return out
}

func cronStatus(s string) Status {
	switch snapshot.RunStatus(s) {
	case snapshot.RunError:
		return Failed
	case snapshot.RunRunning:
		return Running
	case snapshot.RunPending:
		return Pending
	default:
		return Success
	}
}

// FromHeadings makes one memory entry per heading of the day's notes.
// The source does not track when each heading was written, so every
// entry is stamped with now.
func FromHeadings(day string, headings []string, now time.Time) []Entry {
	out := make([]Entry, 0, len(headings))
	for i, h := range headings {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		out = append(out, Entry{
			ID:        fmt.Sprintf("memory:%s:%d", day, i),
			Timestamp: now,
			Type:      Memory,
			Channel:   channel.Terminal,
			Summary:   h,
			Status:    Success,
			Details:   "memory/" + day + ".md",
		})
	}
	return out
}

// FromHeartbeat is the single heartbeat entry, or nil when no heartbeat
// has been recorded.
func FromHeartbeat(at time.Time, agentID string) []Entry {
	if at.IsZero() {
		return nil
	}
	return []Entry{{
		ID:        "heartbeat:" + strconv.FormatInt(at.UnixMilli(), 10),
		Timestamp: at,
		Type:      Heartbeat,
		Channel:   channel.Cron,
		Summary:   "Heartbeat",
		Status:    Success,
		AgentID:   agentID,
	}}
}

// Normalize concatenates sources, orders by timestamp descending and
// drops later occurrences of an id, so the most recent duplicate wins.
// The sort is stable, which makes Normalize idempotent.
func Normalize(sources ...[]Entry) []Entry {
	n := 0
	for _, s := range sources {
		n += len(s)
	}
	all := make([]Entry, 0, n)
	for _, s := range sources {
		all = append(all, s...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, e := range all {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Package agents builds the sub-agent roster: every agent the gateway
// knows about, plus any agent that only shows up in the activity feed,
// each with its most recent tasks.
package agents

import (
	"sort"
	"strings"
	"time"

	"github.com/stellarlinkco/clawdash/internal/activity"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

// DefaultRecentTasks is the per-agent task list length when none is given.
const DefaultRecentTasks = 5

type Agent struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Default      bool             `json:"default"`
	SessionCount int64            `json:"sessionCount"`
	LastActive   *time.Time       `json:"lastActive,omitempty"`
	Workspace    string           `json:"workspace,omitempty"`
	RecentTasks  []activity.Entry `json:"recentTasks"`
}

// Roster joins the agents section of a status snapshot with a
// normalized feed. feed must be sorted newest first, which Normalize
// guarantees, so the first perAgent matches are the most recent.
func Roster(statusSnap *snapshot.Raw, feed []activity.Entry, perAgent int) []Agent {
	if perAgent < 1 {
		perAgent = DefaultRecentTasks
	}

	byID := make(map[string]*Agent)
	var order []string
	add := func(a *Agent) {
		byID[a.ID] = a
		order = append(order, a.ID)
	}

	for _, a := range snapshot.Agents(statusSnap) {
		if _, dup := byID[a.ID]; dup {
			continue
		}
		ag := &Agent{
			ID:           a.ID,
			Name:         a.Name,
			Default:      a.Default,
			SessionCount: a.SessionCount,
			Workspace:    a.Workspace,
			RecentTasks:  []activity.Entry{},
		}
		if !a.LastActive.IsZero() {
			t := a.LastActive
			ag.LastActive = &t
		}
		add(ag)
	}

	sessions := make(map[string]int64)
	for _, e := range feed {
		id := strings.TrimSpace(e.AgentID)
		if id == "" {
			continue
		}
		ag, ok := byID[id]
		if !ok {
			ag = &Agent{ID: id, Name: id, RecentTasks: []activity.Entry{}}
			add(ag)
		}
		if strings.HasPrefix(e.ID, "session:") {
			sessions[id]++
		}
		if len(ag.RecentTasks) < perAgent {
			ag.RecentTasks = append(ag.RecentTasks, e)
		}
		if !e.Timestamp.IsZero() && (ag.LastActive == nil || e.Timestamp.After(*ag.LastActive)) {
			t := e.Timestamp
			ag.LastActive = &t
		}
	}

	out := make([]Agent, 0, len(order))
	for _, id := range order {
		ag := byID[id]
		if ag.SessionCount == 0 {
			ag.SessionCount = sessions[id]
		}
		out = append(out, *ag)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Default != out[j].Default {
			return out[i].Default
		}
		return out[i].ID < out[j].ID
	})
	return out
}

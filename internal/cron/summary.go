// Package cron summarizes the agent's scheduled jobs as reported by
// `cron list --json`.
package cron

import (
	"fmt"
	"sort"
	"strings"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

const (
	statusOK    = snapshot.RunOK
	statusError = snapshot.RunError
	statusNever = "never"
)

// errorPenalty is the success-rate cost of each consecutive error.
const errorPenalty = 20

var parser = rcron.NewParser(
	rcron.SecondOptional | rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor,
)

type Summary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Schedule          string     `json:"schedule"`
	LastRun           *time.Time `json:"lastRun,omitempty"`
	NextRun           *time.Time `json:"nextRun,omitempty"`
	LastStatus        string     `json:"lastStatus"`
	LastError         string     `json:"lastError,omitempty"`
	SuccessRate       int        `json:"successRate"`
	ConsecutiveErrors int64      `json:"consecutiveErrors"`
	Enabled           bool       `json:"enabled"`
	AgentID           string     `json:"agentId,omitempty"`
}

type Overview struct {
	Total   int        `json:"total"`
	Enabled int        `json:"enabled"`
	Failing int        `json:"failing"`
	NextRun *time.Time `json:"nextRun,omitempty"`
	NextJob string     `json:"nextJob,omitempty"`
}

// Summarize builds one Summary per job, sorted by name then id.
func Summarize(jobs []snapshot.CronJob, now time.Time) []Summary {
	out := make([]Summary, 0, len(jobs))
	for _, j := range jobs {
		s := Summary{
			ID:        j.ID,
			Name:      j.Name,
			Schedule:  ScheduleString(j.Schedule),
			LastError: j.State.LastError,
			Enabled:   j.Enabled,
			AgentID:   j.AgentID,
		}
		if !j.State.LastRunAt.IsZero() {
			t := j.State.LastRunAt
			s.LastRun = &t
		}
		s.NextRun = NextRun(j, now)

		s.LastStatus = snapshot.RunStatus(j.State.LastStatus)
		if s.LastStatus == "" {
			if s.LastRun != nil {
				s.LastStatus = statusOK
			} else {
				s.LastStatus = statusNever
			}
		}
		s.ConsecutiveErrors = consecutiveErrors(j.State.ConsecutiveErrors, s.LastStatus)
		s.SuccessRate = SuccessRate(j.State.ConsecutiveErrors, s.LastStatus)
		out = append(out, s)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Name != out[k].Name {
			return out[i].Name < out[k].Name
		}
		return out[i].ID < out[k].ID
	})
	return out
}

// SuccessRate is a percentage that falls by errorPenalty per consecutive
// error. The CLI keeps no run history, so this is a proxy rather than a
// historical ratio: a single success resets it to 100.
func SuccessRate(consecutive *int64, lastStatus string) int {
	n := consecutiveErrors(consecutive, lastStatus)
	rate := 100 - errorPenalty*n
	if rate < 0 {
		return 0
	}
	return int(rate)
}

func consecutiveErrors(consecutive *int64, lastStatus string) int64 {
	if consecutive != nil {
		if *consecutive < 0 {
			return 0
		}
		return *consecutive
	}
	if snapshot.RunStatus(lastStatus) == statusError {
		return 1
	}
	return 0
}

// NextRun prefers the CLI's own nextRunAtMs and otherwise computes it
// from the schedule. Disabled jobs have no next run.
func NextRun(j snapshot.CronJob, now time.Time) *time.Time {
	if !j.Enabled {
		return nil
	}
	if !j.State.NextRunAt.IsZero() {
		t := j.State.NextRunAt
		return &t
	}

	var next time.Time
	switch j.Schedule.Kind {
	case "cron":
		expr := strings.TrimSpace(j.Schedule.Expr)
		if expr == "" {
			return nil
		}
		if j.Schedule.TZ != "" && !strings.HasPrefix(expr, "CRON_TZ=") && !strings.HasPrefix(expr, "TZ=") {
			expr = "CRON_TZ=" + j.Schedule.TZ + " " + expr
		}
		sched, err := parser.Parse(expr)
		if err != nil {
			return nil
		}
		next = sched.Next(now)
	case "every":
		if j.Schedule.EveryMs <= 0 {
			return nil
		}
		every := time.Duration(j.Schedule.EveryMs) * time.Millisecond
		if j.State.LastRunAt.IsZero() {
			next = now.Add(every)
		} else {
			next = j.State.LastRunAt.Add(every)
		}
	case "at":
		at := time.UnixMilli(j.Schedule.AtMs)
		if j.Schedule.AtMs <= 0 || !at.After(now) {
			return nil
		}
		next = at
	default:
		return nil
	}
	if next.IsZero() {
		return nil
	}
	return &next
}

func ScheduleString(s snapshot.Schedule) string {
	switch s.Kind {
	case "cron":
		if s.TZ != "" {
			return fmt.Sprintf("%s (%s)", s.Expr, s.TZ)
		}
		return s.Expr
	case "every":
		return "every " + formatEvery(time.Duration(s.EveryMs)*time.Millisecond)
	case "at":
		if s.AtMs > 0 {
			return "at " + time.UnixMilli(s.AtMs).UTC().Format(time.RFC3339)
		}
	}
	if s.Expr != "" {
		return s.Expr
	}
	return "unscheduled"
}

func formatEvery(d time.Duration) string {
	switch {
	case d <= 0:
		return "?"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	}
	return d.String()
}

// OverviewOf condenses a summary list for the dashboard header.
func OverviewOf(list []Summary) Overview {
	o := Overview{Total: len(list)}
	for _, s := range list {
		if s.Enabled {
			o.Enabled++
		}
		if s.LastStatus == statusError {
			o.Failing++
		}
		if s.NextRun != nil && (o.NextRun == nil || s.NextRun.Before(*o.NextRun)) {
			t := *s.NextRun
			o.NextRun = &t
			o.NextJob = s.Name
		}
	}
	return o
}

// Package activity merges sessions, cron runs and memory notes into one
// time-ordered, deduplicated feed and answers filtered, paged queries
// over it.
package activity

import (
	"strings"
	"time"

	"github.com/stellarlinkco/clawdash/internal/channel"
)

type Type string

const (
	Message   Type = "message"
	Task      Type = "task"
	Cron      Type = "cron"
	Heartbeat Type = "heartbeat"
	Memory    Type = "memory"
	Tool      Type = "tool"
	Error     Type = "error"
)

var Types = []Type{Message, Task, Cron, Heartbeat, Memory, Tool, Error}

func ParseType(s string) (Type, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

type Status string

const (
	Success Status = "success"
	Failed  Status = "error"
	Pending Status = "pending"
	Running Status = "running"
)

type Entry struct {
	ID         string       `json:"id"`
	Timestamp  time.Time    `json:"timestamp"`
	Type       Type         `json:"type"`
	Channel    channel.Name `json:"channel"`
	Summary    string       `json:"summary"`
	Status     Status       `json:"status"`
	Details    string       `json:"details,omitempty"`
	AgentID    string       `json:"agentId,omitempty"`
	TokensUsed *int64       `json:"tokensUsed,omitempty"`
	DurationMs *int64       `json:"durationMs,omitempty"`
}

// Package channel names the communication surfaces an agent can use and
// derives per-channel health from probe results.
package channel

import (
	"sort"
	"strings"
	"time"

	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

type Name string

const (
	Slack    Name = "slack"
	Discord  Name = "discord"
	Telegram Name = "telegram"
	IMessage Name = "imessage"
	Signal   Name = "signal"
	Terminal Name = "terminal"
	API      Name = "api"
	Cron     Name = "cron"
	Web      Name = "web"
)

// All is every channel an activity entry may carry.
var All = []Name{Slack, Discord, Telegram, IMessage, Signal, Terminal, API, Cron, Web}

// messageTokens are the session-key tokens that identify a chat channel,
// in match order.
var messageTokens = []Name{Telegram, Discord, IMessage, Slack}

func Known(s string) bool {
	for _, n := range All {
		if string(n) == s {
			return true
		}
	}
	return false
}

// FromSessionKey returns the first chat channel token contained in key.
func FromSessionKey(key string) (Name, bool) {
	lower := strings.ToLower(key)
	for _, tok := range messageTokens {
		if strings.Contains(lower, string(tok)) {
			return tok, true
		}
	}
	return "", false
}

type Status string

const (
	Connected    Status = "connected"
	Disconnected Status = "disconnected"
	Error        Status = "error"
	Unknown      Status = "unknown"
)

type Health struct {
	Channel       string     `json:"channel"`
	Status        Status     `json:"status"`
	LatencyMs     *int64     `json:"latencyMs,omitempty"`
	LastProbeTime *time.Time `json:"lastProbeTime,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// StatusOf maps one probe to a status. Unknown is reserved for channels
// that are not configured.
func StatusOf(p snapshot.ChannelProbe) Status {
	switch {
	case !p.Configured:
		return Unknown
	case p.Probed && p.OK:
		return Connected
	case p.Probed:
		return Error
	default:
		return Disconnected
	}
}

// FromProbes derives one Health per probe, sorted by channel.
func FromProbes(probes []snapshot.ChannelProbe) []Health {
	out := make([]Health, 0, len(probes))
	for _, p := range probes {
		h := Health{
			Channel:   p.Channel,
			Status:    StatusOf(p),
			LatencyMs: p.LatencyMs,
			Error:     p.Error,
		}
		if !p.LastProbeAt.IsZero() {
			t := p.LastProbeAt
			h.LastProbeTime = &t
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Active lists the connected channels.
func Active(list []Health) []string {
	out := []string{}
	for _, h := range list {
		if h.Status == Connected {
			out = append(out, h.Channel)
		}
	}
	return out
}

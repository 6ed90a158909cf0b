// Package status derives the system status view from the status and
// health snapshots plus host metrics.
package status

import (
	"time"

	"github.com/stellarlinkco/clawdash/internal/channel"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

const unknownVersion = "unknown"

type SystemStatus struct {
	UptimeSeconds            int64            `json:"uptimeSeconds"`
	Version                  string           `json:"version"`
	Health                   Health           `json:"health"`
	ActiveChannels           []string         `json:"activeChannels"`
	LastHeartbeatTime        *time.Time       `json:"lastHeartbeatTime"`
	HeartbeatIntervalSeconds int64            `json:"heartbeatIntervalSeconds,omitempty"`
	MemoryUsageMB            int64            `json:"memoryUsageMb"`
	MemoryPercent            int              `json:"memoryPercent"`
	CPUPercent               int              `json:"cpuPercent"`
	GatewayReachable         bool             `json:"gatewayReachable"`
	GatewayURL               string           `json:"gatewayUrl,omitempty"`
	GatewayError             string           `json:"gatewayError,omitempty"`
	GatewayLatencyMs         *int64           `json:"gatewayLatencyMs,omitempty"`
	SessionCount             int64            `json:"sessionCount"`
	Channels                 []channel.Health `json:"channels"`
}

// Derive never fails: any missing section yields its documented default
// (zero counters, "unknown" version, empty lists, nil timestamps).
func Derive(statusSnap, healthSnap *snapshot.Raw, m OSMetrics) SystemStatus {
	gw := snapshot.GatewayOf(statusSnap)
	probes := snapshot.ChannelProbes(healthSnap)
	channels := channel.FromProbes(probes)

	// A health payload can only be produced through a live gateway.
	reachable := gw.Reachable || healthSnap.Bool("ok")

	s := SystemStatus{
		Version:          firstNonEmpty(statusSnap.String("version", ""), gw.Version, unknownVersion),
		Health:           DeriveHealth(reachable, probes),
		ActiveChannels:   channel.Active(channels),
		MemoryUsageMB:    int64(m.UsedBytes / (1024 * 1024)),
		MemoryPercent:    MemoryPercent(m.UsedBytes, m.TotalBytes),
		CPUPercent:       CPUPercent(m.LoadAvg1, m.CPUCores),
		GatewayReachable: reachable,
		GatewayURL:       gw.URL,
		GatewayError:     gw.Error,
		GatewayLatencyMs: gw.ConnectLatencyMs,
		Channels:         channels,
	}

	if gw.UptimeSeconds != nil {
		s.UptimeSeconds = *gw.UptimeSeconds
	} else {
		s.UptimeSeconds = int64(m.HostUptimeSeconds)
	}

	recent := snapshot.Sessions(statusSnap, "sessions")
	s.SessionCount = statusSnap.Int("sessions.count")
	if s.SessionCount == 0 {
		s.SessionCount = int64(len(recent))
	}

	s.HeartbeatIntervalSeconds = statusSnap.Int("heartbeat.intervalSeconds")
	if hb := lastHeartbeat(statusSnap, recent); !hb.IsZero() {
		s.LastHeartbeatTime = &hb
	}

	return s
}

// lastHeartbeat prefers the explicit heartbeat timestamp and falls back
// to the most recent session activity.
func lastHeartbeat(statusSnap *snapshot.Raw, recent []snapshot.Session) time.Time {
	if t := statusSnap.Time("heartbeat.lastHeartbeatAt"); !t.IsZero() {
		return t
	}
	var latest time.Time
	for _, s := range recent {
		if s.UpdatedAt.After(latest) {
			latest = s.UpdatedAt
		}
	}
	return latest
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package status

import (
	"fmt"
	"time"

	"github.com/stellarlinkco/clawdash/internal/channel"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

type Health string

const (
	Healthy   Health = "healthy"
	Degraded  Health = "degraded"
	Unhealthy Health = "unhealthy"
)

// DeriveHealth folds gateway reachability and channel probes into one
// value. The order of checks matters:
//
//  1. gateway unreachable: unhealthy, whatever the channels say.
//  2. at least one configured channel probes healthy: healthy when all
//     configured channels do, degraded otherwise.
//  3. nothing probes healthy: degraded if the health tool reported any
//     channel at all, unhealthy if it reported none.
func DeriveHealth(reachable bool, probes []snapshot.ChannelProbe) Health {
	if !reachable {
		return Unhealthy
	}

	configured, healthy := 0, 0
	for _, p := range probes {
		if !p.Configured {
			continue
		}
		configured++
		if p.Healthy() {
			healthy++
		}
	}

	if healthy > 0 {
		if healthy == configured {
			return Healthy
		}
		return Degraded
	}
	if len(probes) > 0 {
		return Degraded
	}
	return Unhealthy
}

type CheckStatus string

const (
	Pass CheckStatus = "pass"
	Warn CheckStatus = "warn"
	Fail CheckStatus = "fail"
)

type Check struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

type Report struct {
	Status Health           `json:"status"`
	Checks map[string]Check `json:"checks"`
}

// heartbeatGraceFactor is how many missed intervals make a heartbeat late.
const heartbeatGraceFactor = 3

// BuildReport explains a SystemStatus as individual checks.
func BuildReport(s SystemStatus, now time.Time) Report {
	r := Report{Status: s.Health, Checks: make(map[string]Check, 3)}

	if s.GatewayReachable {
		r.Checks["gateway"] = Check{Status: Pass, Message: "reachable"}
	} else {
		msg := "unreachable"
		if s.GatewayError != "" {
			msg += ": " + s.GatewayError
		}
		r.Checks["gateway"] = Check{Status: Fail, Message: msg}
	}

	configured, connected := 0, 0
	for _, h := range s.Channels {
		if h.Status == channel.Unknown {
			continue
		}
		configured++
		if h.Status == channel.Connected {
			connected++
		}
	}
	chk := Check{Message: fmt.Sprintf("%d/%d configured channels connected", connected, configured)}
	switch {
	case configured > 0 && connected == configured:
		chk.Status = Pass
	case connected > 0:
		chk.Status = Warn
	default:
		chk.Status = Fail
	}
	r.Checks["channels"] = chk

	switch {
	case s.LastHeartbeatTime == nil:
		r.Checks["heartbeat"] = Check{Status: Warn, Message: "no heartbeat recorded"}
	case s.HeartbeatIntervalSeconds > 0 &&
		now.Sub(*s.LastHeartbeatTime) > heartbeatGraceFactor*time.Duration(s.HeartbeatIntervalSeconds)*time.Second:
		r.Checks["heartbeat"] = Check{
			Status:  Warn,
			Message: fmt.Sprintf("last heartbeat %s ago", now.Sub(*s.LastHeartbeatTime).Truncate(time.Second)),
		}
	default:
		r.Checks["heartbeat"] = Check{Status: Pass, Message: "recent"}
	}

	return r
}

package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Session is one conversation record from `sessions --json` or the
// `sessions.recent` list of `status --json`.
type Session struct {
	Key          string
	SessionID    string
	AgentID      string
	Model        string
	Label        string
	UpdatedAt    time.Time
	InputTokens  *int64
	OutputTokens *int64
	TotalTokens  *int64
	DurationMs   *int64
	Aborted      bool
}

// Tokens is totalTokens when reported, else input+output when either is
// reported, else absent.
func (s Session) Tokens() (int64, bool) {
	if s.TotalTokens != nil {
		return *s.TotalTokens, true
	}
	if s.InputTokens == nil && s.OutputTokens == nil {
		return 0, false
	}
	var n int64
	if s.InputTokens != nil {
		n += *s.InputTokens
	}
	if s.OutputTokens != nil {
		n += *s.OutputTokens
	}
	return n, true
}

// Sessions decodes the session list at path. The list may be a bare
// array or an object with a "sessions" or "recent" array.
func Sessions(r *Raw, path string) []Session {
	res := r.Get(path)
	if res.IsObject() {
		res = firstOf(res, "sessions", "recent")
	}
	if !res.IsArray() {
		return nil
	}

	out := make([]Session, 0, len(res.Array()))
	res.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		s := decodeSession(v)
		if s.Key == "" && s.SessionID == "" {
			return true
		}
		out = append(out, s)
		return true
	})
	return out
}

func decodeSession(v gjson.Result) Session {
	s := Session{
		Key:       stringOr(v.Get("key"), ""),
		SessionID: stringOr(firstOf(v, "sessionId", "id"), ""),
		AgentID:   stringOr(v.Get("agentId"), ""),
		Model:     stringOr(v.Get("model"), ""),
		Label:     stringOr(firstOf(v, "label", "displayName"), ""),
		UpdatedAt: TimeOf(firstOf(v, "updatedAt", "lastActivityAt", "createdAt")),
		Aborted:   boolOr(v.Get("abortedLastRun"), false),
	}
	if s.Key == "" {
		s.Key = s.SessionID
	}
	if s.AgentID == "" {
		s.AgentID = AgentFromKey(s.Key)
	}
	s.InputTokens = ptr(optInt(v.Get("inputTokens")))
	s.OutputTokens = ptr(optInt(v.Get("outputTokens")))
	s.TotalTokens = ptr(optInt(v.Get("totalTokens")))
	s.DurationMs = ptr(optInt(v.Get("durationMs")))
	return s
}

// AgentFromKey extracts the agent id from keys shaped "agent:<id>:...".
func AgentFromKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 && parts[0] == "agent" && parts[1] != "" {
		return parts[1]
	}
	return ""
}

type Schedule struct {
	Kind    string
	Expr    string
	TZ      string
	EveryMs int64
	AtMs    int64
}

// Canonical cron run statuses. The CLI reports several spellings for
// each; RunStatus folds them so every consumer agrees on what failed.
const (
	RunOK      = "ok"
	RunError   = "error"
	RunRunning = "running"
	RunPending = "pending"
)

// RunStatus maps a raw lastStatus to one of the canonical values. An
// empty status stays empty (no run recorded); unrecognised values count
// as ok.
func RunStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "error", "failed", "failure", "fail":
		return RunError
	case "running", "in_progress":
		return RunRunning
	case "pending", "queued":
		return RunPending
	default:
		return RunOK
	}
}

type CronState struct {
	NextRunAt         time.Time
	LastRunAt         time.Time
	LastStatus        string
	LastError         string
	LastDurationMs    *int64
	ConsecutiveErrors *int64
}

// CronJob is one entry of `cron list --json`.
type CronJob struct {
	ID       string
	Name     string
	AgentID  string
	Enabled  bool
	Schedule Schedule
	State    CronState
}

func CronJobs(r *Raw) []CronJob {
	res := r.Get("")
	if res.IsObject() {
		res = res.Get("jobs")
	}
	if !res.IsArray() {
		return nil
	}

	var out []CronJob
	res.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		job := decodeCronJob(v)
		if job.ID == "" {
			return true
		}
		out = append(out, job)
		return true
	})
	return out
}

func decodeCronJob(v gjson.Result) CronJob {
	job := CronJob{
		ID:      stringOr(firstOf(v, "id", "jobId"), ""),
		Name:    stringOr(v.Get("name"), ""),
		AgentID: stringOr(v.Get("agentId"), ""),
		Enabled: boolOr(v.Get("enabled"), true),
	}
	if job.Name == "" {
		job.Name = job.ID
	}

	sched := v.Get("schedule")
	switch {
	case sched.Type == gjson.String:
		job.Schedule = Schedule{Kind: "cron", Expr: sched.String()}
	case sched.IsObject():
		job.Schedule = Schedule{
			Kind:    stringOr(sched.Get("kind"), ""),
			Expr:    stringOr(firstOf(sched, "expr", "cron"), ""),
			TZ:      stringOr(sched.Get("tz"), ""),
			EveryMs: intOr(sched.Get("everyMs"), 0),
			AtMs:    TimeOf(firstOf(sched, "atMs", "at")).UnixMilli(),
		}
		if job.Schedule.AtMs < 0 {
			job.Schedule.AtMs = 0
		}
		if job.Schedule.Kind == "" {
			switch {
			case job.Schedule.Expr != "":
				job.Schedule.Kind = "cron"
			case job.Schedule.EveryMs > 0:
				job.Schedule.Kind = "every"
			case job.Schedule.AtMs > 0:
				job.Schedule.Kind = "at"
			}
		}
	}

	st := v.Get("state")
	job.State = CronState{
		NextRunAt:         TimeOf(st.Get("nextRunAtMs")),
		LastRunAt:         TimeOf(st.Get("lastRunAtMs")),
		LastStatus:        RunStatus(stringOr(st.Get("lastStatus"), "")),
		LastError:         stringOr(st.Get("lastError"), ""),
		LastDurationMs:    ptr(optInt(st.Get("lastDurationMs"))),
		ConsecutiveErrors: ptr(optInt(st.Get("consecutiveErrors"))),
	}
	return job
}

// ChannelProbe is the health tool's view of one channel.
type ChannelProbe struct {
	Channel     string
	Configured  bool
	Running     bool
	Probed      bool
	OK          bool
	LatencyMs   *int64
	LastProbeAt time.Time
	Error       string
}

// Healthy is true when the channel is configured and its probe succeeded.
func (p ChannelProbe) Healthy() bool {
	return p.Configured && p.Probed && p.OK
}

// ChannelProbes decodes `channels` from a health snapshot, which is
// either an object keyed by channel name or an array of objects carrying
// the name. The result is sorted by channel name.
func ChannelProbes(r *Raw) []ChannelProbe {
	res := r.Get("channels")
	var out []ChannelProbe
	switch {
	case res.IsObject():
		res.ForEach(func(k, v gjson.Result) bool {
			if v.IsObject() {
				out = append(out, decodeProbe(strings.ToLower(k.String()), v))
			}
			return true
		})
	case res.IsArray():
		res.ForEach(func(_, v gjson.Result) bool {
			name := strings.ToLower(stringOr(firstOf(v, "channel", "id", "name"), ""))
			if v.IsObject() && name != "" {
				out = append(out, decodeProbe(name, v))
			}
			return true
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

func decodeProbe(name string, v gjson.Result) ChannelProbe {
	probe := v.Get("probe")
	p := ChannelProbe{
		Channel:     name,
		Running:     boolOr(v.Get("running"), false),
		Probed:      probe.IsObject(),
		LastProbeAt: TimeOf(firstOf(v, "lastProbeAt", "probe.ts", "probe.at")),
	}
	p.Configured = boolOr(v.Get("configured"), p.Probed)
	if p.Probed {
		p.OK = boolOr(probe.Get("ok"), false)
		p.LatencyMs = ptr(optInt(firstOf(probe, "elapsedMs", "latencyMs")))
		p.Error = stringOr(probe.Get("error"), "")
	}
	if p.Error == "" {
		p.Error = stringOr(firstOf(v, "lastError", "error"), "")
	}
	return p
}

// Agent is one entry of the `agents` section of a status snapshot.
type Agent struct {
	ID           string
	Name         string
	Workspace    string
	SessionCount int64
	LastActive   time.Time
	Default      bool
}

func Agents(r *Raw) []Agent {
	section := r.Get("agents")
	list := section
	defaultID := ""
	if section.IsObject() {
		list = firstOf(section, "agents", "list")
		defaultID = stringOr(section.Get("defaultId"), "")
	}
	if !list.IsArray() {
		return nil
	}

	var out []Agent
	list.ForEach(func(_, v gjson.Result) bool {
		id := stringOr(firstOf(v, "id", "agentId"), "")
		if id == "" {
			return true
		}
		out = append(out, Agent{
			ID:           id,
			Name:         stringOr(v.Get("name"), id),
			Workspace:    stringOr(firstOf(v, "workspaceDir", "workspace"), ""),
			SessionCount: intOr(firstOf(v, "sessionsCount", "sessions"), 0),
			LastActive:   TimeOf(firstOf(v, "lastUpdatedAt", "lastActiveAt")),
			Default:      id == defaultID || boolOr(v.Get("default"), false),
		})
		return true
	})
	return out
}

// MemoryStore is one agent's vector-store stats from `memory status --json`.
type MemoryStore struct {
	AgentID  string `json:"agentId"`
	Files    int64  `json:"files"`
	Chunks   int64  `json:"chunks"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Dirty    bool   `json:"dirty"`
}

func MemoryStores(r *Raw) []MemoryStore {
	list := r.Get("agents")
	if !list.IsArray() {
		list = r.Get("")
	}
	if !list.IsArray() {
		return nil
	}

	var out []MemoryStore
	list.ForEach(func(_, v gjson.Result) bool {
		st := v.Get("status")
		if !st.IsObject() {
			st = v
		}
		out = append(out, MemoryStore{
			AgentID:  stringOr(v.Get("agentId"), "main"),
			Files:    intOr(st.Get("files"), 0),
			Chunks:   intOr(st.Get("chunks"), 0),
			Provider: stringOr(st.Get("provider"), ""),
			Model:    stringOr(st.Get("model"), ""),
			Dirty:    boolOr(st.Get("dirty"), false),
		})
		return true
	})
	return out
}

// Gateway is the reachability section of a status snapshot.
type Gateway struct {
	Reachable        bool
	URL              string
	Mode             string
	Version          string
	Host             string
	Error            string
	UptimeSeconds    *int64
	ConnectLatencyMs *int64
}

func GatewayOf(r *Raw) Gateway {
	g := r.Get("gateway")
	gw := Gateway{
		Reachable:        boolOr(g.Get("reachable"), false),
		URL:              stringOr(g.Get("url"), ""),
		Mode:             stringOr(g.Get("mode"), ""),
		Version:          stringOr(firstOf(g, "self.version", "version"), ""),
		Host:             stringOr(firstOf(g, "self.host", "host"), ""),
		Error:            stringOr(g.Get("error"), ""),
		ConnectLatencyMs: ptr(optInt(g.Get("connectLatencyMs"))),
	}
	if ms, ok := optInt(g.Get("uptimeMs")); ok {
		secs := ms / 1000
		gw.UptimeSeconds = &secs
	}
	return gw
}

func ptr(v int64, ok bool) *int64 {
	if !ok {
		return nil
	}
	return &v
}

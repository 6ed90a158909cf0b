package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stellarlinkco/clawdash/internal/bridge"
	"github.com/stellarlinkco/clawdash/internal/config"
	"github.com/stellarlinkco/clawdash/internal/monitor"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func fakeRunner(outputs map[string]string) bridge.Runner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		key := strings.Join(args, " ")
		if strings.HasPrefix(key, "sessions ") {
			key = "sessions"
		}
		out, ok := outputs[key]
		if !ok {
			return nil, errors.New("exit status 1")
		}
		return []byte(out), nil
	}
}

func gatewayOutputs() map[string]string {
	return map[string]string{
		"status --json": fmt.Sprintf(`{"version": "2026.3.1",
			"gateway": {"reachable": true, "uptimeMs": 3600000},
			"heartbeat": {"lastHeartbeatAt": %d},
			"agents": {"defaultId": "main", "agents": [{"id": "main", "name": "Main"}]}}`,
			now.Add(-5*time.Minute).UnixMilli()),
		"health --json": `{"ok": true, "channels": {"telegram": {"configured": true, "running": true, "probe": {"ok": true}}}}`,
		"sessions": fmt.Sprintf(`{"sessions": [{"key": "agent:main:telegram:dm:1", "updatedAt": %d}]}`,
			now.Add(-time.Minute).UnixMilli()),
		"cron list --json": `{"jobs": [{"id": "j1", "name": "digest", "enabled": true,
			"schedule": {"kind": "every", "everyMs": 3600000}, "state": {"lastStatus": "ok"}}]}`,
		"memory status --json": `{"agents": [{"agentId": "main", "status": {"files": 1200, "chunks": 31}}]}`,
	}
}

// setupEnv isolates HOME and the workspace so commands never touch the
// real config.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	ws := filepath.Join(home, "workspace")
	if err := os.MkdirAll(ws, 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", home)
	t.Setenv("CLAWDASH_WORKSPACE", ws)
	t.Setenv("CLAWDASH_LOG_LEVEL", "error")
	return ws
}

func run(t *testing.T, opts Options, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testOptions() Options {
	return Options{Runner: fakeRunner(gatewayOutputs()), Now: func() time.Time { return now }}
}

func TestStatusCommand_JSON(t *testing.T) {
	setupEnv(t)
	out, err := run(t, testOptions(), "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if v["health"] != "healthy" {
		t.Errorf("health = %v, want healthy", v["health"])
	}
	if v["version"] != "2026.3.1" {
		t.Errorf("version = %v", v["version"])
	}
}

func TestStatusCommand_Plain(t *testing.T) {
	setupEnv(t)
	out, err := run(t, testOptions(), "status", "--plain")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	for _, want := range []string{"Health: healthy", "Uptime: 1h0m0s", "Heartbeat: 5 minutes ago", "Channels: telegram"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommand_NoData(t *testing.T) {
	setupEnv(t)
	_, err := run(t, Options{Runner: fakeRunner(nil)}, "status")
	if !errors.Is(err, monitor.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestActivityCommand(t *testing.T) {
	setupEnv(t)
	out, err := run(t, testOptions(), "activity", "--channel", "telegram", "--page-size", "5")
	if err != nil {
		t.Fatalf("activity error: %v", err)
	}
	var page struct {
		Total    int `json:"total"`
		PageSize int `json:"pageSize"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}
	if page.PageSize != 5 {
		t.Errorf("pageSize = %d, want 5", page.PageSize)
	}
}

func TestActivityCommand_BadFilter(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, testOptions(), "activity", "--type", "gossip"); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := run(t, testOptions(), "activity", "--channel", "pager"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestCronCommand(t *testing.T) {
	setupEnv(t)
	out, err := run(t, testOptions(), "cron")
	if err != nil {
		t.Fatalf("cron error: %v", err)
	}
	if !strings.Contains(out, "digest") || !strings.Contains(out, "every 1h") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "1 jobs, 1 enabled, 0 failing") {
		t.Errorf("missing overview:\n%s", out)
	}
}

func TestConfigCommand(t *testing.T) {
	setupEnv(t)
	out, err := run(t, testOptions(), "config")
	if err != nil {
		t.Fatalf("config error: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, section := range []string{"gateway", "channels", "skills", "dashboard"} {
		if _, ok := v[section]; !ok {
			t.Errorf("missing section %q", section)
		}
	}
}

func TestAgentsCommand(t *testing.T) {
	setupEnv(t)
	out, err := run(t, testOptions(), "agents")
	if err != nil {
		t.Fatalf("agents error: %v", err)
	}
	if !strings.Contains(out, "main *") || !strings.Contains(out, "Main") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestMemoryCommand(t *testing.T) {
	ws := setupEnv(t)
	if err := os.WriteFile(filepath.Join(ws, "MEMORY.md"), []byte("# Facts\n\nSomething.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, testOptions(), "memory")
	if err != nil {
		t.Fatalf("memory error: %v", err)
	}
	for _, want := range []string{"MEMORY.md", "1 headings", "Store main: 1,200 files, 31 chunks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestOnboard(t *testing.T) {
	setupEnv(t)

	out, err := run(t, Options{}, "onboard")
	if err != nil {
		t.Fatalf("onboard error: %v", err)
	}
	if !strings.Contains(out, "Created config") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(config.ConfigPath()); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	out, err = run(t, Options{}, "onboard")
	if err != nil {
		t.Fatalf("second onboard error: %v", err)
	}
	if !strings.Contains(out, "Config already exists") {
		t.Errorf("second run should not overwrite:\n%s", out)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	setupEnv(t)
	t.Setenv("CLAWDASH_HOST", "127.0.0.1")

	cfg, svc, err := loadService(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, svc, &out) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	if !strings.Contains(out.String(), "listening on http://127.0.0.1:") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

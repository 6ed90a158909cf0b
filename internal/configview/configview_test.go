package configview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/clawdash/internal/skills"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

func TestRedact_ByKey(t *testing.T) {
	got := Redact(map[string]any{
		"apiKey":        "abc123",
		"hostname":      "box1",
		"Authorization": map[string]any{"scheme": "basic"},
		"db_password":   42.0,
		"port":          18789.0,
	}).(map[string]any)

	assert.Equal(t, Marker, got["apiKey"])
	assert.Equal(t, "box1", got["hostname"])
	assert.Equal(t, Marker, got["Authorization"], "key match replaces whole subtree")
	assert.Equal(t, Marker, got["db_password"], "key match ignores value type")
	assert.Equal(t, 18789.0, got["port"])
}

func TestRedact_ByContent(t *testing.T) {
	hex := "0123456789abcdef0123456789abcdef"
	require.Len(t, hex, 32)

	got := Redact(map[string]any{
		"note":   hex,
		"short":  "token",
		"banner": "uses bearer scheme",
		"upper":  "0123456789ABCDEF0123",
		"hexish": "abcdef0123456789abc",
		"mode":   "local",
	}).(map[string]any)

	assert.Equal(t, Marker, got["note"])
	assert.Equal(t, "token", got["short"], "strings of 8 or fewer chars are not content-checked")
	assert.Equal(t, Marker, got["banner"])
	assert.Equal(t, "0123456789ABCDEF0123", got["upper"], "only lowercase hex is flagged")
	assert.Equal(t, "abcdef0123456789abc", got["hexish"], "19 hex chars is below the threshold")
	assert.Equal(t, "local", got["mode"])
}

func TestRedact_Nested(t *testing.T) {
	hex := "deadbeefdeadbeefdeadbeef"
	in := map[string]any{
		"gateway": map[string]any{
			"url":  "ws://127.0.0.1:18789",
			"list": []any{"plain", hex, map[string]any{"secretName": "x"}},
		},
		"names": []string{"alice", hex},
	}
	got := Redact(in).(map[string]any)

	gw := got["gateway"].(map[string]any)
	assert.Equal(t, "ws://127.0.0.1:18789", gw["url"])
	list := gw["list"].([]any)
	assert.Equal(t, "plain", list[0])
	assert.Equal(t, Marker, list[1])
	assert.Equal(t, Marker, list[2].(map[string]any)["secretName"])
	assert.Equal(t, []any{"alice", Marker}, got["names"])

	assert.Equal(t, hex, in["gateway"].(map[string]any)["list"].([]any)[1], "input is not mutated")
}

func TestRedact_Scalars(t *testing.T) {
	assert.Nil(t, Redact(nil))
	assert.Equal(t, true, Redact(true))
	assert.Equal(t, 3.5, Redact(3.5))
}

func TestAssemble_EmptySnapshots(t *testing.T) {
	v := Assemble(nil, nil, Extras{})
	for _, name := range []string{"gateway", "memory", "sessions", "agents", "security", "update", "channels", "dashboard"} {
		require.Contains(t, v, name)
		assert.Empty(t, v[name], name)
	}
	sk := v["skills"].(map[string]any)
	assert.Equal(t, 0, sk["count"])
}

func TestAssemble_Sections(t *testing.T) {
	status := snapshot.MustParse(`{
		"gateway": {"url": "ws://127.0.0.1:18789", "mode": "local", "token": "s3cr3t"},
		"memory": {"provider": "openai", "apiKey": "sk-live"},
		"sessions": {"count": 3},
		"agents": [{"id": "main"}],
		"securityAudit": {"summary": {"critical": 0, "warn": 1}},
		"update": "up to date",
		"os": {"platform": "linux"}
	}`)
	health := snapshot.MustParse(`{"channels": {"telegram": {"configured": true, "botToken": "123:abc"}}}`)

	v := Assemble(status, health, Extras{
		Skills:      []skills.Skill{{Name: "writer", Keywords: []string{"draft"}, Path: "/ws/skills/writer/SKILL.md"}},
		SkillsError: errors.New("partial"),
		Dashboard:   map[string]any{"name": "Clawdash", "command": "openclaw"},
	})

	gw := v["gateway"].(map[string]any)
	assert.Equal(t, "local", gw["mode"])
	assert.Equal(t, Marker, gw["token"])

	assert.Equal(t, Marker, v["memory"].(map[string]any)["apiKey"])
	assert.Equal(t, 3.0, v["sessions"].(map[string]any)["count"])
	assert.Len(t, v["agents"].(map[string]any)["items"], 1)
	assert.Contains(t, v["security"], "summary")
	assert.Equal(t, "up to date", v["update"].(map[string]any)["value"])
	assert.NotContains(t, v, "os")

	tg := v["channels"].(map[string]any)["telegram"].(map[string]any)
	assert.Equal(t, true, tg["configured"])
	assert.Equal(t, Marker, tg["botToken"])

	sk := v["skills"].(map[string]any)
	assert.Equal(t, 1, sk["count"])
	assert.Equal(t, "partial", sk["error"])
	item := sk["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "writer", item["name"])
	assert.Equal(t, []any{"draft"}, item["triggers"])

	assert.Equal(t, "Clawdash", v["dashboard"].(map[string]any)["name"])
}

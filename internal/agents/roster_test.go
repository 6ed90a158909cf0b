package agents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/clawdash/internal/activity"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

var base = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func feed() []activity.Entry {
	var sessions []snapshot.Session
	for i := 0; i < 8; i++ {
		sessions = append(sessions, snapshot.Session{
			Key:       "agent:main:telegram:dm:" + string(rune('a'+i)),
			AgentID:   "main",
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	sessions = append(sessions, snapshot.Session{Key: "agent:scout:spawn:1", AgentID: "scout", UpdatedAt: base.Add(time.Hour)})
	return activity.Normalize(
		activity.FromSessions(sessions),
		activity.FromCronJobs([]snapshot.CronJob{{ID: "j", Name: "digest", AgentID: "main", State: snapshot.CronState{LastRunAt: base.Add(-time.Hour)}}}),
	)
}

func TestRoster(t *testing.T) {
	status := snapshot.MustParse(`{"agents": {"defaultId": "main", "agents": [
		{"id": "ops", "name": "Ops", "workspaceDir": "/ws/ops", "sessionsCount": 2, "lastUpdatedAt": 1743501600000},
		{"id": "main", "name": "Main"}
	]}}`)

	list := Roster(status, feed(), 3)
	require.Len(t, list, 3)

	main := list[0]
	assert.Equal(t, "main", main.ID)
	assert.True(t, main.Default)
	assert.Equal(t, int64(8), main.SessionCount, "falls back to feed session count")
	require.Len(t, main.RecentTasks, 3)
	for i := 1; i < len(main.RecentTasks); i++ {
		assert.False(t, main.RecentTasks[i].Timestamp.After(main.RecentTasks[i-1].Timestamp))
	}
	require.NotNil(t, main.LastActive)
	assert.Equal(t, base.Add(7*time.Minute), *main.LastActive)

	ops := list[1]
	assert.Equal(t, "ops", ops.ID)
	assert.Equal(t, "Ops", ops.Name)
	assert.Equal(t, "/ws/ops", ops.Workspace)
	assert.Equal(t, int64(2), ops.SessionCount)
	assert.Empty(t, ops.RecentTasks)
	assert.NotNil(t, ops.RecentTasks)
	require.NotNil(t, ops.LastActive)

	scout := list[2]
	assert.Equal(t, "scout", scout.ID, "feed-only agents are added")
	assert.Equal(t, "scout", scout.Name)
	assert.Len(t, scout.RecentTasks, 1)
	assert.Equal(t, int64(1), scout.SessionCount)
}

func TestRoster_Empty(t *testing.T) {
	list := Roster(nil, nil, 0)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestRoster_DefaultPerAgent(t *testing.T) {
	list := Roster(nil, feed(), 0)
	require.NotEmpty(t, list)
	assert.Equal(t, "main", list[0].ID)
	assert.Len(t, list[0].RecentTasks, DefaultRecentTasks)
}

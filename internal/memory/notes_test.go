package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseHeadings(t *testing.T) {
	src := "# Morning sync\n\nsome text\n\n## Deployed *v2* to `prod`\n\n```\n# not a heading\n```\n\nSetext title\n============\n\n#\n"
	got := ParseHeadings([]byte(src))
	assert.Equal(t, []Heading{
		{Text: "Morning sync", Level: 1},
		{Text: "Deployed v2 to prod", Level: 2},
		{Text: "Setext title", Level: 1},
	}, got)
}

func TestParseHeadings_Empty(t *testing.T) {
	assert.Empty(t, ParseHeadings(nil))
	assert.Empty(t, ParseHeadings([]byte("just a paragraph\n")))
}

func TestNotes_Paths(t *testing.T) {
	root := t.TempDir()
	n := NewNotes(root)

	assert.Equal(t, filepath.Join(root, "MEMORY.md"), n.LongTermPath())
	assert.Equal(t, filepath.Join(root, "memory", "2026-02-10.md"), n.DailyPath("2026-02-10"))

	writeFile(t, filepath.Join(root, "memory", "MEMORY.md"), "# nested\n")
	assert.Equal(t, filepath.Join(root, "memory", "MEMORY.md"), n.LongTermPath())

	writeFile(t, filepath.Join(root, "MEMORY.md"), "# top\n")
	assert.Equal(t, filepath.Join(root, "MEMORY.md"), n.LongTermPath())
}

func TestNotes_Headings(t *testing.T) {
	root := t.TempDir()
	n := NewNotes(root)

	got, err := n.Headings("2026-02-10")
	require.NoError(t, err)
	assert.Empty(t, got, "missing file is not an error")

	writeFile(t, n.DailyPath("2026-02-10"), "# Fixed gateway bug\n\ndetails\n\n## Followups\n")
	got, err = n.HeadingsOn(time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Fixed gateway bug", got[0].Text)
	assert.Equal(t, 2, got[1].Level)
}

func TestNotes_Inventory(t *testing.T) {
	root := t.TempDir()
	n := NewNotes(root)

	inv, err := n.Inventory()
	require.NoError(t, err)
	assert.Empty(t, inv.Files)
	assert.NotNil(t, inv.Files)
	assert.Zero(t, inv.TotalBytes)

	writeFile(t, filepath.Join(root, "MEMORY.md"), "# Profile\n\nuser prefers Go\n")
	writeFile(t, n.DailyPath("2026-02-09"), "# a\n")
	writeFile(t, n.DailyPath("2026-02-10"), "# b\n## c\n")
	writeFile(t, filepath.Join(root, "memory", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "memory", "draft.md"), "# ignored\n")

	inv, err = n.Inventory()
	require.NoError(t, err)
	require.Len(t, inv.Files, 3)

	assert.Equal(t, KindLongTerm, inv.Files[0].Kind)
	assert.Equal(t, 1, inv.Files[0].Headings)
	assert.Equal(t, "2026-02-10", inv.Files[1].Day)
	assert.Equal(t, 2, inv.Files[1].Headings)
	assert.Equal(t, "2026-02-09", inv.Files[2].Day)

	var total int64
	for _, f := range inv.Files {
		total += f.Size
		assert.NotEmpty(t, f.HumanSize)
		assert.False(t, f.ModTime.IsZero())
	}
	assert.Equal(t, total, inv.TotalBytes)
	assert.NotEmpty(t, inv.TotalSize)
}

func TestWatcher_NoDirectories(t *testing.T) {
	w := NewWatcher(NewNotes(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, w.Start(func(Change) {}))
	require.NoError(t, w.Close())
}

func TestWatcher_ReportsMarkdownChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memory"), 0755))
	n := NewNotes(root)

	changes := make(chan Change, 16)
	w := NewWatcher(n)
	require.NoError(t, w.Start(func(c Change) { changes <- c }))
	defer w.Close()

	writeFile(t, filepath.Join(root, "memory", "scratch.txt"), "ignored")
	writeFile(t, n.DailyPath("2026-02-10"), "# new\n")

	select {
	case c := <-changes:
		assert.Equal(t, n.DailyPath("2026-02-10"), c.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notes change")
	}
}

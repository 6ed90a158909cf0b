// Package memory reads the agent's markdown notes: the long-term
// MEMORY.md file and the per-day memory/YYYY-MM-DD.md files. Only
// headings and file metadata are extracted.
package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	LongTermFile = "MEMORY.md"
	DailyDir     = "memory"
	DayLayout    = "2006-01-02"
)

const (
	KindLongTerm = "long-term"
	KindDaily    = "daily"
)

var dailyFilePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)

var md = goldmark.New()

type Heading struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type File struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Day       string    `json:"day,omitempty"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"humanSize"`
	ModTime   time.Time `json:"modTime"`
	Headings  int       `json:"headings"`
}

type Inventory struct {
	Root       string `json:"root"`
	Files      []File `json:"files"`
	TotalBytes int64  `json:"totalBytes"`
	TotalSize  string `json:"totalSize"`
}

// Notes is rooted at the agent workspace.
type Notes struct {
	root string
}

func NewNotes(root string) *Notes {
	return &Notes{root: root}
}

func (n *Notes) Root() string {
	return n.root
}

func (n *Notes) Dir() string {
	return filepath.Join(n.root, DailyDir)
}

// LongTermPath prefers <root>/MEMORY.md and falls back to
// <root>/memory/MEMORY.md when only the latter exists.
func (n *Notes) LongTermPath() string {
	primary := filepath.Join(n.root, LongTermFile)
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	nested := filepath.Join(n.Dir(), LongTermFile)
	if _, err := os.Stat(nested); err == nil {
		return nested
	}
	return primary
}

func (n *Notes) DailyPath(day string) string {
	return filepath.Join(n.Dir(), day+".md")
}

// Headings returns the headings of the given day's notes in document
// order. A missing file yields no headings and no error.
func (n *Notes) Headings(day string) ([]Heading, error) {
	return readHeadings(n.DailyPath(day))
}

// HeadingsOn is Headings for the calendar day of t.
func (n *Notes) HeadingsOn(t time.Time) ([]Heading, error) {
	return n.Headings(t.Format(DayLayout))
}

func (n *Notes) LongTermHeadings() ([]Heading, error) {
	return readHeadings(n.LongTermPath())
}

// Inventory lists the long-term file and every daily file, newest day
// first. Missing files and a missing directory are not errors.
func (n *Notes) Inventory() (Inventory, error) {
	inv := Inventory{Root: n.root, Files: []File{}}

	if f, ok, err := describe(n.LongTermPath(), KindLongTerm, ""); err != nil {
		return inv, err
	} else if ok {
		inv.Files = append(inv.Files, f)
	}

	entries, err := os.ReadDir(n.Dir())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return inv, fmt.Errorf("read memory dir: %w", err)
	}
	var daily []File
	for _, e := range entries {
		if e.IsDir() || !dailyFilePattern.MatchString(e.Name()) {
			continue
		}
		day := strings.TrimSuffix(e.Name(), ".md")
		f, ok, err := describe(filepath.Join(n.Dir(), e.Name()), KindDaily, day)
		if err != nil {
			return inv, err
		}
		if ok {
			daily = append(daily, f)
		}
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Day > daily[j].Day })
	inv.Files = append(inv.Files, daily...)

	for _, f := range inv.Files {
		inv.TotalBytes += f.Size
	}
	inv.TotalSize = humanize.Bytes(uint64(inv.TotalBytes))
	return inv, nil
}

func describe(path, kind, day string) (File, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, false, nil
		}
		return File{}, false, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	headings, err := readHeadings(path)
	if err != nil {
		return File{}, false, err
	}
	return File{
		Name:      info.Name(),
		Path:      path,
		Kind:      kind,
		Day:       day,
		Size:      info.Size(),
		HumanSize: humanize.Bytes(uint64(info.Size())),
		ModTime:   info.ModTime(),
		Headings:  len(headings),
	}, true, nil
}

func readHeadings(path string) ([]Heading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return ParseHeadings(data), nil
}

// ParseHeadings extracts ATX and setext headings from markdown source.
// Headings inside code blocks are not headings and are not returned.
func ParseHeadings(source []byte) []Heading {
	doc := md.Parser().Parse(text.NewReader(source))
	var out []Heading
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := node.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := strings.TrimSpace(inlineText(h, source))
		if title != "" {
			out = append(out, Heading{Text: title, Level: h.Level})
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

func inlineText(node ast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}

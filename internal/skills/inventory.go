// Package skills lists the workspace skills declared in skills/*/SKILL.md.
package skills

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stellarlinkco/clawdash/internal/logger"
)

const skillFileName = "SKILL.md"

var (
	errNoFrontmatter = errors.New("no frontmatter block")
	errBadYAML       = errors.New("frontmatter is not valid YAML")
)

type Skill struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Path        string   `json:"path"`
	BodyLines   int      `json:"bodyLines"`
}

type frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// Dir is the conventional skills directory inside a workspace.
func Dir(workspace string) string {
	return filepath.Join(workspace, "skills")
}

// Inventory lists every <dir>/<name>/SKILL.md sorted by path. It always
// returns the skills it could read. Broken YAML is logged and skipped;
// a missing frontmatter block, a missing name or a reused name is
// reported in the returned error, one line per file.
func Inventory(dir string) ([]Skill, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	if info, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("skills dir: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("skills dir %s is a file", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*", skillFileName))
	if err != nil {
		return nil, fmt.Errorf("skills dir: %w", err)
	}
	sort.Strings(paths)

	var (
		list     []Skill
		problems []error
		owner    = map[string]string{}
	)
	for _, path := range paths {
		s, err := read(path)
		switch {
		case errors.Is(err, errBadYAML):
			logger.Warn().Str("path", path).Err(err).Msg("skip invalid YAML skill")
			continue
		case err != nil:
			problems = append(problems, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if first, taken := owner[s.Name]; taken {
			problems = append(problems, fmt.Errorf("%s: name %q already used by %s", path, s.Name, first))
			continue
		}
		owner[s.Name] = path
		list = append(list, s)
	}
	return list, errors.Join(problems...)
}

func read(path string) (Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Skill{}, err
	}
	meta, body, err := splitFrontmatter(data)
	if err != nil {
		return Skill{}, err
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		return Skill{}, errors.New("missing name")
	}

	s := Skill{
		Name:        name,
		Description: strings.TrimSpace(meta.Description),
		Keywords:    sanitizeKeywords(meta.Keywords),
		Path:        path,
	}
	if body = bytes.TrimSpace(body); len(body) > 0 {
		s.BodyLines = bytes.Count(body, []byte("\n")) + 1
	}
	return s, nil
}

// splitFrontmatter separates a leading "---" fenced YAML block from the
// markdown body.
func splitFrontmatter(data []byte) (frontmatter, []byte, error) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	head, rest, ok := bytes.Cut(data, []byte("\n"))
	if !ok || string(bytes.TrimSpace(head)) != "---" {
		return frontmatter{}, nil, errNoFrontmatter
	}
	var block []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if string(bytes.TrimSpace(line)) == "---" {
			var meta frontmatter
			if err := yaml.Unmarshal(block, &meta); err != nil {
				return frontmatter{}, nil, fmt.Errorf("%w: %v", errBadYAML, err)
			}
			return meta, rest, nil
		}
		block = append(append(block, line...), '\n')
	}
	return frontmatter{}, nil, errNoFrontmatter
}

// sanitizeKeywords lowercases, trims, dedupes and sorts.
func sanitizeKeywords(keywords []string) []string {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Names returns the skill names in inventory order.
func Names(list []Skill) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

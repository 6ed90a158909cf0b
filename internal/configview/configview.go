// Package configview assembles the redacted configuration and diagnostics
// view shown on the dashboard's config page.
package configview

import (
	"github.com/stellarlinkco/clawdash/internal/skills"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

// View maps a section name to its redacted contents.
type View map[string]any

// Sections sourced from the status snapshot, keyed by view name.
var statusSections = []struct {
	name string
	path string
}{
	{"gateway", "gateway"},
	{"memory", "memory"},
	{"sessions", "sessions"},
	{"agents", "agents"},
	{"security", "securityAudit"},
	{"update", "update"},
}

// Extras carries the parts of the view that do not come from the CLI.
type Extras struct {
	Skills      []skills.Skill
	SkillsError error
	Dashboard   map[string]any
}

// Assemble builds the view from the status and health snapshots. Every
// section is present; missing ones are empty maps. The whole view is
// passed through Redact before it is returned.
func Assemble(statusSnap, healthSnap *snapshot.Raw, extras Extras) View {
	v := View{}
	for _, s := range statusSections {
		v[s.name] = section(statusSnap.Value(s.path))
	}
	v["channels"] = section(healthSnap.Value("channels"))
	v["skills"] = skillsSection(extras)
	v["dashboard"] = section(anyMap(extras.Dashboard))

	out := View{}
	for k, val := range v {
		out[k] = Redact(val)
	}
	return out
}

// section normalizes a subtree to a map so every section renders the
// same way: objects as is, other values under "items" or "value".
func section(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		return map[string]any{"items": t}
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"value": t}
	}
}

func anyMap(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func skillsSection(extras Extras) map[string]any {
	items := make([]any, 0, len(extras.Skills))
	for _, s := range extras.Skills {
		kw := make([]any, len(s.Keywords))
		for i, k := range s.Keywords {
			kw[i] = k
		}
		items = append(items, map[string]any{
			"name":        s.Name,
			"description": s.Description,
			"triggers":    kw,
			"path":        s.Path,
		})
	}
	out := map[string]any{
		"count": len(items),
		"items": items,
	}
	if extras.SkillsError != nil {
		out["error"] = extras.SkillsError.Error()
	}
	return out
}

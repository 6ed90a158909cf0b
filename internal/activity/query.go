package activity

import (
	"strings"

	"github.com/stellarlinkco/clawdash/internal/channel"
)

const DefaultPageSize = 20

type Filter struct {
	Type     Type
	Channel  channel.Name
	Search   string
	Page     int
	PageSize int
}

type Page struct {
	Items    []Entry `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	HasMore  bool    `json:"hasMore"`
}

// Query filters conjunctively and returns the 1-indexed page. Entries
// must already be normalized.
func Query(entries []Entry, f Filter) Page {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	matched := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Channel != "" && e.Channel != f.Channel {
			continue
		}
		if search != "" && !matches(e, search) {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	page := Page{Items: []Entry{}, Total: total, Page: f.Page, PageSize: f.PageSize}
	// Compare page indexes first so huge page numbers cannot overflow
	// the offset arithmetic.
	pages := total / f.PageSize
	if total%f.PageSize != 0 {
		pages++
	}
	if f.Page-1 >= pages {
		return page
	}
	start := (f.Page - 1) * f.PageSize
	end := total
	if total-start > f.PageSize {
		end = start + f.PageSize
	}
	page.Items = matched[start:end]
	page.HasMore = end < total
	return page
}

func matches(e Entry, search string) bool {
	return strings.Contains(strings.ToLower(e.Summary), search) ||
		strings.Contains(string(e.Type), search) ||
		strings.Contains(strings.ToLower(e.AgentID), search)
}

package diff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToJSON renders the report as {"changes": [...], "summary": {...}}.
// by_category is a Go map, so encoding/json writes its keys in sorted
// order, not in the category order of Changes.
func (r *Report) ToJSON() ([]byte, error) {
	type changeJSON struct {
		Category string `json:"category"`
		Kind     string `json:"kind"`
		ID       string `json:"id"`
		Detail   any    `json:"detail"`
	}
	changes := make([]changeJSON, len(r.Changes))
	for i, c := range r.Changes {
		changes[i] = changeJSON{Category: c.Category, Kind: c.Kind, ID: c.ID, Detail: c.Detail}
	}

	order, counts := r.byCategory()
	byCategory := make(map[string]int, len(order))
	for _, cat := range order {
		byCategory[cat] = counts[cat]
	}

	out := struct {
		Changes []changeJSON `json:"changes"`
		Summary struct {
			TotalChanges int            `json:"total_changes"`
			ByCategory   map[string]int `json:"by_category"`
		} `json:"summary"`
	}{Changes: changes}
	out.Summary.TotalChanges = len(r.Changes)
	out.Summary.ByCategory = byCategory

	return json.Marshal(out)
}

// byCategory tallies Changes by category, returning categories in the
// order they first appear.
func (r *Report) byCategory() (order []string, counts map[string]int) {
	counts = make(map[string]int)
	for _, c := range r.Changes {
		if _, ok := counts[c.Category]; !ok {
			order = append(order, c.Category)
		}
		counts[c.Category]++
	}
	return order, counts
}

// Summary renders a one-line human-readable count, e.g. "3 changes: 2
// entity, 1 exit." or "No changes detected." when the report is empty.
func (r *Report) Summary() string {
	if len(r.Changes) == 0 {
		return "No changes detected."
	}
	order, counts := r.byCategory()
	parts := make([]string, len(order))
	for i, cat := range order {
		parts[i] = fmt.Sprintf("%d %s", counts[cat], cat)
	}
	return fmt.Sprintf("%d changes: %s.", len(r.Changes), strings.Join(parts, ", "))
}

package pipeline

import (
	"sort"

	"github.com/montanaflynn/stats"

	"wastedash/domain/waste"
)

// Selection is the user's slice of a view. Empty fields select everything.
type Selection struct {
	Categories []string `json:"categories,omitempty"`
	Years      []int    `json:"years,omitempty"`
	Metric     *string  `json:"metric,omitempty"`
}

// Apply keeps the records inside the selection, preserving order
func (s Selection) Apply(records []waste.NormalizedRecord) []waste.NormalizedRecord {
	cats := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		cats[c] = true
	}
	years := make(map[int]bool, len(s.Years))
	for _, y := range s.Years {
		years[y] = true
	}

	out := make([]waste.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if len(cats) > 0 && !cats[r.Category] {
			continue
		}
		if len(years) > 0 && !years[r.Year] {
			continue
		}
		if s.Metric != nil && (r.Metric == nil || *r.Metric != *s.Metric) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Categories lists distinct categories in first-seen order
func Categories(records []waste.NormalizedRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// Metrics lists distinct metrics in first-seen order
func Metrics(records []waste.NormalizedRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Metric != nil && !seen[*r.Metric] {
			seen[*r.Metric] = true
			out = append(out, *r.Metric)
		}
	}
	return out
}

// Years lists distinct years in ascending order
func Years(records []waste.NormalizedRecord) []int {
	seen := make(map[int]bool)
	out := []int{}
	for _, r := range records {
		if !seen[r.Year] {
			seen[r.Year] = true
			out = append(out, r.Year)
		}
	}
	sort.Ints(out)
	return out
}

// LatestYear returns the greatest year that has a value
func LatestYear(records []waste.NormalizedRecord) (int, bool) {
	years := Years(DropNulls(records))
	if len(years) == 0 {
		return 0, false
	}
	return years[len(years)-1], true
}

// Shares computes each category's portion of year's total, for pie views.
// Categories without a value in that year are left out.
func Shares(records []waste.NormalizedRecord, year int) []waste.Share {
	acc := newAccumulator()
	for _, r := range DropNulls(records) {
		if r.Year == year {
			acc.add(r.Category, *r.Value)
		}
	}

	totals := acc.totals(acc.order)
	sums := make([]float64, len(totals))
	for i, g := range totals {
		sums[i] = g.Total
	}
	grand, _ := stats.Sum(sums)

	out := make([]waste.Share, 0, len(totals))
	for _, g := range totals {
		share := waste.Share{Category: g.Key, Value: g.Total}
		if grand != 0 {
			share.Ratio = g.Total / grand
		}
		out = append(out, share)
	}
	return out
}

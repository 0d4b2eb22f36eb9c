package pipeline

import (
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"

	"wastedash/domain/waste"
)

// GroupBy selects the key summaries are grouped on.
type GroupBy int

const (
	GroupByCategory GroupBy = iota
	GroupByYear
)

// ParseGroupBy accepts "category" or "year"
func ParseGroupBy(s string) (GroupBy, bool) {
	switch s {
	case "", "category":
		return GroupByCategory, true
	case "year":
		return GroupByYear, true
	}
	return GroupByCategory, false
}

func (g GroupBy) String() string {
	if g == GroupByYear {
		return "year"
	}
	return "category"
}

// DropNulls returns the records that carry a value
func DropNulls(records []waste.NormalizedRecord) []waste.NormalizedRecord {
	out := make([]waste.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.HasValue() {
			out = append(out, r)
		}
	}
	return out
}

// Summarize computes the trend summary of records. Null values are dropped
// first and never counted as zero. Grouping by category also yields the top
// category (ties go to the first category seen) and, per category, the value
// at the latest year minus the value at the earliest year of the set.
func Summarize(records []waste.NormalizedRecord, groupBy GroupBy) waste.TrendSummary {
	valued := DropNulls(records)
	summary := waste.TrendSummary{Groups: []waste.GroupTotal{}}
	if len(valued) == 0 {
		return summary
	}

	all := make([]float64, len(valued))
	for i, r := range valued {
		all[i] = *r.Value
	}
	summary.Total, _ = stats.Sum(all)

	byYear := newAccumulator()
	byCategory := newAccumulator()
	cells := make(map[string]map[int]float64)
	for _, r := range valued {
		byYear.add(strconv.Itoa(r.Year), *r.Value)
		byCategory.add(r.Category, *r.Value)
		if cells[r.Category] == nil {
			cells[r.Category] = make(map[int]float64)
		}
		cells[r.Category][r.Year] += *r.Value
	}

	yearKeys := append([]string(nil), byYear.order...)
	sort.Slice(yearKeys, func(i, j int) bool {
		a, _ := strconv.Atoi(yearKeys[i])
		b, _ := strconv.Atoi(yearKeys[j])
		return a < b
	})
	yearSums := make([]float64, len(yearKeys))
	for i, k := range yearKeys {
		yearSums[i] = byYear.sum(k)
	}
	summary.YearlyMean, _ = stats.Mean(yearSums)
	summary.MinYear, _ = strconv.Atoi(yearKeys[0])
	summary.MaxYear, _ = strconv.Atoi(yearKeys[len(yearKeys)-1])

	if groupBy == GroupByYear {
		summary.Groups = byYear.totals(yearKeys)
		return summary
	}

	summary.Groups = byCategory.totals(byCategory.order)
	var top *string
	best := 0.0
	for _, g := range summary.Groups {
		if top == nil || g.Total > best {
			key := g.Key
			top, best = &key, g.Total
		}
	}
	summary.TopCategory = top

	summary.Deltas = make(map[string]*float64, len(byCategory.order))
	for _, cat := range byCategory.order {
		first, okFirst := cells[cat][summary.MinYear]
		last, okLast := cells[cat][summary.MaxYear]
		if okFirst && okLast {
			summary.Deltas[cat] = waste.Float(last - first)
		} else {
			summary.Deltas[cat] = nil
		}
	}
	return summary
}

// accumulator keeps per-key values in first-seen key order
type accumulator struct {
	order  []string
	values map[string][]float64
}

func newAccumulator() *accumulator {
	return &accumulator{values: make(map[string][]float64)}
}

func (a *accumulator) add(key string, v float64) {
	if _, ok := a.values[key]; !ok {
		a.order = append(a.order, key)
	}
	a.values[key] = append(a.values[key], v)
}

func (a *accumulator) sum(key string) float64 {
	s, _ := stats.Sum(a.values[key])
	return s
}

func (a *accumulator) totals(keys []string) []waste.GroupTotal {
	out := make([]waste.GroupTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, waste.GroupTotal{Key: k, Total: a.sum(k), Count: len(a.values[k])})
	}
	return out
}

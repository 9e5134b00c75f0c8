package analysis

import "sort"

// PathStats aggregates the records seen for one call path.
type PathStats struct {
	Path  string
	Count int
	Total int64
	Min   int64
	Max   int64
}

// ProfileStats accumulates per-path counts and totals from folded records.
type ProfileStats struct {
	byPath map[string]*PathStats

	TotalRecords int
	TotalValue   int64
}

// NewProfileStats creates an empty ProfileStats.
func NewProfileStats() *ProfileStats {
	return &ProfileStats{
		byPath: make(map[string]*PathStats),
	}
}

// Record folds one record into the statistics.
func (s *ProfileStats) Record(r Record) {
	stats, ok := s.byPath[r.Path]
	if !ok {
		stats = &PathStats{
			Path: r.Path,
			Min:  r.Value,
			Max:  r.Value,
		}
		s.byPath[r.Path] = stats
	}

	stats.Count++
	stats.Total += r.Value

	if r.Value < stats.Min {
		stats.Min = r.Value
	}
	if r.Value > stats.Max {
		stats.Max = r.Value
	}

	s.TotalRecords++
	s.TotalValue += r.Value
}

// RecordAll folds every record of a parsed profile into the statistics.
func (s *ProfileStats) RecordAll(p *FoldedProfile) {
	for _, r := range p.Records {
		s.Record(r)
	}
}

// PathCount returns the number of distinct call paths seen.
func (s *ProfileStats) PathCount() int {
	return len(s.byPath)
}

// StatsOf returns the statistics for one call path. The second return
// value is false when the path was never recorded.
func (s *ProfileStats) StatsOf(path string) (PathStats, bool) {
	stats, ok := s.byPath[path]
	if !ok {
		return PathStats{}, false
	}

	return *stats, true
}

// Paths returns the statistics for all call paths, sorted by descending
// total.
func (s *ProfileStats) Paths() []PathStats {
	all := make([]PathStats, 0, len(s.byPath))
	for _, stats := range s.byPath {
		all = append(all, *stats)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Total != all[j].Total {
			return all[i].Total > all[j].Total
		}

		return all[i].Path < all[j].Path
	})

	return all
}

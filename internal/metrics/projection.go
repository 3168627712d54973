package metrics

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultProjectionWindow is how many recent projections each level keeps
// for its percentiles.
const DefaultProjectionWindow = 512

// LevelStats reports projections at one abstraction level. Totals cover
// the process lifetime; percentiles cover the retained window only.
type LevelStats struct {
	Level        int    `json:"level"`
	Projections  uint64 `json:"projections"`
	Blocks       uint64 `json:"blocks"`
	Placeholders uint64 `json:"placeholders"`
	Window       int    `json:"window"`
	P50Us        int64  `json:"p50_us"`
	P95Us        int64  `json:"p95_us"`
	MaxUs        int64  `json:"max_us"`
}

type levelWindow struct {
	recent       []time.Duration
	next         int
	projections  uint64
	blocks       uint64
	placeholders uint64
}

// ProjectionStats keeps the durations of the most recent projections at
// each level along with running block totals.
type ProjectionStats struct {
	mu     sync.Mutex
	keep   int
	levels map[int]*levelWindow
}

func NewProjectionStats(keep int) *ProjectionStats {
	if keep <= 0 {
		keep = DefaultProjectionWindow
	}
	return &ProjectionStats{keep: keep, levels: make(map[int]*levelWindow)}
}

// Record adds one projection. Negative durations count as zero.
func (s *ProjectionStats) Record(level int, d time.Duration, blocks, placeholders int) {
	d = max(d, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.levels[level]
	if !ok {
		w = &levelWindow{recent: make([]time.Duration, 0, s.keep)}
		s.levels[level] = w
	}
	if len(w.recent) < s.keep {
		w.recent = append(w.recent, d)
	} else {
		w.recent[w.next] = d
		w.next = (w.next + 1) % s.keep
	}
	w.projections++
	w.blocks += uint64(max(blocks, 0))
	w.placeholders += uint64(max(placeholders, 0))
}

// Snapshot returns one entry per projected level, ordered by level.
func (s *ProjectionStats) Snapshot() []LevelStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LevelStats, 0, len(s.levels))
	for _, level := range slices.Sorted(maps.Keys(s.levels)) {
		w := s.levels[level]
		sorted := slices.Clone(w.recent)
		slices.Sort(sorted)
		out = append(out, LevelStats{
			Level:        level,
			Projections:  w.projections,
			Blocks:       w.blocks,
			Placeholders: w.placeholders,
			Window:       len(sorted),
			P50Us:        nearestRank(sorted, 50).Microseconds(),
			P95Us:        nearestRank(sorted, 95).Microseconds(),
			MaxUs:        nearestRank(sorted, 100).Microseconds(),
		})
	}
	return out
}

// nearestRank returns the smallest sample with at least pct percent of
// the window at or below it.
func nearestRank(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (pct*len(sorted) + 99) / 100
	return sorted[min(max(rank, 1), len(sorted))-1]
}

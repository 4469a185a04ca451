// Package telemetry provides ecosystem health tracking, bookmarking, and
// the persisted state document.
package telemetry

import (
	"log/slog"
	"sort"
)

// RunSummary holds the totals of one environment over a run.
type RunSummary struct {
	Environment     string  `json:"environment"`
	Stages          int     `json:"stages"`
	Births          int     `json:"births"`
	Kills           int     `json:"kills"`
	Decompositions  int     `json:"decompositions"`
	Reductions      int     `json:"reductions"`
	Boosts          int     `json:"boosts"`
	PeakPopulation  int     `json:"peak_population"`
	FinalPopulation int     `json:"final_population"`
	MinResources    float64 `json:"min_resources"`
	MaxResources    float64 `json:"max_resources"`
	FinalResources  float64 `json:"final_resources"`
	Bookmarks       int     `json:"bookmarks"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s RunSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("environment", s.Environment),
		slog.Int("stages", s.Stages),
		slog.Int("births", s.Births),
		slog.Int("kills", s.Kills),
		slog.Int("decompositions", s.Decompositions),
		slog.Int("reductions", s.Reductions),
		slog.Int("boosts", s.Boosts),
		slog.Int("peak_population", s.PeakPopulation),
		slog.Int("final_population", s.FinalPopulation),
		slog.Float64("min_resources", s.MinResources),
		slog.Float64("max_resources", s.MaxResources),
		slog.Float64("final_resources", s.FinalResources),
		slog.Int("bookmarks", s.Bookmarks),
	)
}

// Collector accumulates stage stats into per-environment run totals.
type Collector struct {
	byEnv map[string]*RunSummary
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{byEnv: make(map[string]*RunSummary)}
}

// Record adds one stage of one environment.
func (c *Collector) Record(stats StageStats) {
	s, ok := c.byEnv[stats.Environment]
	if !ok {
		s = &RunSummary{
			Environment:  stats.Environment,
			MinResources: stats.Resources,
			MaxResources: stats.Resources,
		}
		c.byEnv[stats.Environment] = s
	}

	s.Stages++
	s.Births += stats.Births
	s.Kills += stats.Kills
	s.Decompositions += stats.Decompositions
	s.Reductions += stats.Reductions
	s.Boosts += stats.Boosts
	if stats.TotalPopulation > s.PeakPopulation {
		s.PeakPopulation = stats.TotalPopulation
	}
	s.FinalPopulation = stats.TotalPopulation
	if stats.Resources < s.MinResources {
		s.MinResources = stats.Resources
	}
	if stats.Resources > s.MaxResources {
		s.MaxResources = stats.Resources
	}
	s.FinalResources = stats.Resources
}

// RecordBookmark counts a bookmark against its environment.
func (c *Collector) RecordBookmark(b Bookmark) {
	if s, ok := c.byEnv[b.Environment]; ok {
		s.Bookmarks++
	}
}

// Summaries returns the run totals in environment-name order.
func (c *Collector) Summaries() []RunSummary {
	out := make([]RunSummary, 0, len(c.byEnv))
	for _, s := range c.byEnv {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Environment < out[j].Environment })
	return out
}

package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/systems"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkResourceCollapse BookmarkType = "resource_collapse"
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkPopulationCrash  BookmarkType = "population_crash"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Stage       int          `csv:"stage"`
	Environment string       `csv:"environment"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"stage", b.Stage,
		"environment", b.Environment,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments in one environment.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history of total population (circular buffer)
	history     []float64
	historyIdx  int
	historyFull bool

	negativeStages int             // consecutive stages with resources < 0
	collapseFired  bool            // reset once resources recover
	populationPeak int             // peak total population since the last crash
	stableStages   int             // consecutive stages within the CV threshold
	alive          map[string]bool // species alive at the previous check
}

// NewBookmarkDetector creates a detector with the given thresholds.
func NewBookmarkDetector(cfg config.BookmarksConfig) *BookmarkDetector {
	if cfg.StableEcosystem.Window < 2 {
		cfg.StableEcosystem.Window = 2
	}
	if cfg.HistorySize < cfg.StableEcosystem.Window {
		cfg.HistorySize = cfg.StableEcosystem.Window
	}
	if cfg.ResourceCollapse.MinStages < 1 {
		cfg.ResourceCollapse.MinStages = 1
	}
	return &BookmarkDetector{
		cfg:     cfg,
		history: make([]float64, cfg.HistorySize),
		alive:   make(map[string]bool),
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats StageStats, env *systems.Environment) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkResourceCollapse(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	bookmarks = append(bookmarks, bd.checkExtinctions(stats, env)...)
	if b := bd.checkPopulationCrash(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(float64(stats.TotalPopulation))

	if b := bd.checkStableEcosystem(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(v float64) {
	bd.history[bd.historyIdx] = v
	bd.historyIdx = (bd.historyIdx + 1) % len(bd.history)
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns the last n history entries, oldest first.
func (bd *BookmarkDetector) recent(n int) []float64 {
	size := bd.historyIdx
	if bd.historyFull {
		size = len(bd.history)
	}
	if n > size {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := (bd.historyIdx - n + i + len(bd.history)) % len(bd.history)
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkResourceCollapse(stats StageStats) *Bookmark {
	if !stats.Collapsed {
		bd.negativeStages = 0
		bd.collapseFired = false
		return nil
	}
	bd.negativeStages++
	if bd.collapseFired || bd.negativeStages < bd.cfg.ResourceCollapse.MinStages {
		return nil
	}
	bd.collapseFired = true
	return &Bookmark{
		Type:        BookmarkResourceCollapse,
		Stage:       stats.Stage,
		Environment: stats.Environment,
		Description: fmt.Sprintf("Resources negative for %d stages (%.2f)", bd.negativeStages, stats.Resources),
	}
}

func (bd *BookmarkDetector) checkExtinctions(stats StageStats, env *systems.Environment) []Bookmark {
	var bookmarks []Bookmark
	for _, s := range env.Species() {
		b := s.Base()
		alive := b.Population > 0
		if was, seen := bd.alive[b.Name]; seen && was && !alive {
			bookmarks = append(bookmarks, Bookmark{
				Type:        BookmarkExtinction,
				Stage:       stats.Stage,
				Environment: stats.Environment,
				Description: fmt.Sprintf("%s went extinct", b.Name),
			})
		}
		bd.alive[b.Name] = alive
	}
	return bookmarks
}

func (bd *BookmarkDetector) checkPopulationCrash(stats StageStats) *Bookmark {
	if stats.TotalPopulation > bd.populationPeak {
		bd.populationPeak = stats.TotalPopulation
		return nil
	}
	if bd.populationPeak == 0 {
		return nil
	}

	c := bd.cfg.PopulationCrash
	dropPercent := 1.0 - float64(stats.TotalPopulation)/float64(bd.populationPeak)
	if dropPercent > c.DropPercent && stats.TotalPopulation < bd.populationPeak-c.MinDrop {
		// Reset peak after crash
		oldPeak := bd.populationPeak
		bd.populationPeak = stats.TotalPopulation

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Stage:       stats.Stage,
			Environment: stats.Environment,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.TotalPopulation),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats StageStats) *Bookmark {
	c := bd.cfg.StableEcosystem
	if stats.TotalPopulation < c.MinPopulation || stats.Collapsed {
		bd.stableStages = 0
		return nil
	}

	window := bd.recent(c.Window)
	if window == nil {
		return nil
	}

	mean, std := stat.MeanStdDev(window, nil)
	if mean <= 0 || std/mean >= c.CVThreshold {
		bd.stableStages = 0
		return nil
	}

	bd.stableStages++
	if bd.stableStages != 1 { // trigger once per stable run
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStableEcosystem,
		Stage:       stats.Stage,
		Environment: stats.Environment,
		Description: fmt.Sprintf("Total population stable around %.0f over %d stages (cv %.3f)", mean, c.Window, std/mean),
	}
}

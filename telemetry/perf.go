package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one simulation stage.
const (
	PhaseInteraction = "interaction"
	PhaseBalancing   = "balancing"
	PhaseTelemetry   = "telemetry"
	PhasePersist     = "persist"
)

// PerfSample holds timing data for a single stage.
type PerfSample struct {
	StageDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window of stages.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	stageStart    time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of stages to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartStage begins timing a new stage.
func (p *PerfCollector) StartStage() {
	p.stageStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// AddPhase adds an externally measured duration to a phase of the current stage.
// Used when phases run on worker goroutines.
func (p *PerfCollector) AddPhase(phase string, d time.Duration) {
	p.currentPhases[phase] += d
}

// EndStage finishes timing the current stage and records the sample.
func (p *PerfCollector) EndStage() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		StageDuration: now.Sub(p.stageStart),
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgStageDuration time.Duration
	MinStageDuration time.Duration
	MaxStageDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration
	// Phase percentages of total stage time
	PhasePct map[string]float64

	StagesPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minStage, maxStage time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.StageDuration

		if i == 0 || s.StageDuration < minStage {
			minStage = s.StageDuration
		}
		if s.StageDuration > maxStage {
			maxStage = s.StageDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgStageDuration: avg,
		MinStageDuration: minStage,
		MaxStageDuration: maxStage,
		PhaseAvg:         phaseAvg,
		PhasePct:         phasePct,
		StagesPerSecond:  perSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_stage_us", s.AvgStageDuration.Microseconds(),
		"min_stage_us", s.MinStageDuration.Microseconds(),
		"max_stage_us", s.MaxStageDuration.Microseconds(),
	}

	for _, phase := range []string{PhaseInteraction, PhaseBalancing, PhaseTelemetry, PhasePersist} {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	logger.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Stage          int     `csv:"stage"`
	AvgStageUS     int64   `csv:"avg_stage_us"`
	MinStageUS     int64   `csv:"min_stage_us"`
	MaxStageUS     int64   `csv:"max_stage_us"`
	InteractionPct float64 `csv:"interaction_pct"`
	BalancingPct   float64 `csv:"balancing_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
	PersistPct     float64 `csv:"persist_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(stage int) PerfStatsCSV {
	return PerfStatsCSV{
		Stage:          stage,
		AvgStageUS:     s.AvgStageDuration.Microseconds(),
		MinStageUS:     s.MinStageDuration.Microseconds(),
		MaxStageUS:     s.MaxStageDuration.Microseconds(),
		InteractionPct: s.PhasePct[PhaseInteraction],
		BalancingPct:   s.PhasePct[PhaseBalancing],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
		PersistPct:     s.PhasePct[PhasePersist],
	}
}

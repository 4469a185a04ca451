package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStage()
		pc.StartPhase(PhaseInteraction)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseBalancing)
		time.Sleep(200 * time.Microsecond)
		pc.EndStage()
	}

	stats := pc.Stats()

	if stats.AvgStageDuration <= 0 {
		t.Error("expected positive average stage duration")
	}
	if _, ok := stats.PhaseAvg[PhaseInteraction]; !ok {
		t.Error("expected interaction phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseBalancing]; !ok {
		t.Error("expected balancing phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartStage()
		pc.StartPhase(PhaseInteraction)
		time.Sleep(10 * time.Microsecond)
		pc.EndStage()
	}

	stats := pc.Stats()
	if stats.AvgStageDuration <= 0 {
		t.Error("expected positive average stage duration after window filled")
	}
	if stats.StagesPerSecond <= 0 {
		t.Error("expected positive stages per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStage()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(500 * time.Microsecond)
		pc.EndStage()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollector_AddPhase(t *testing.T) {
	pc := NewPerfCollector(3)
	pc.StartStage()
	pc.AddPhase(PhaseInteraction, 3*time.Millisecond)
	pc.AddPhase(PhaseInteraction, 2*time.Millisecond)
	pc.EndStage()

	stats := pc.Stats()
	if stats.PhaseAvg[PhaseInteraction] != 5*time.Millisecond {
		t.Errorf("interaction avg = %v, want 5ms", stats.PhaseAvg[PhaseInteraction])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgStageDuration != 0 {
		t.Error("expected zero avg stage duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgStageDuration: 1500 * time.Microsecond,
		PhasePct:         map[string]float64{PhaseInteraction: 60, PhasePersist: 40},
	}
	row := s.ToCSV(7)
	if row.Stage != 7 || row.AvgStageUS != 1500 || row.InteractionPct != 60 || row.PersistPct != 40 {
		t.Errorf("unexpected csv row %+v", row)
	}
}

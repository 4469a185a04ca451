package telemetry

import "testing"

func TestCollectorSummaries(t *testing.T) {
	c := NewCollector()

	c.Record(StageStats{Environment: "Mars", Stage: 1, Resources: 10, TotalPopulation: 4})
	c.Record(StageStats{Environment: "Earth", Stage: 1, Resources: 200, TotalPopulation: 175, Births: 2, Kills: 2})
	c.Record(StageStats{Environment: "Earth", Stage: 2, Resources: 150, TotalPopulation: 180, Births: 1, Kills: 2, Reductions: 2})
	c.Record(StageStats{Environment: "Earth", Stage: 3, Resources: 160, TotalPopulation: 170, Boosts: 1})
	c.RecordBookmark(Bookmark{Type: BookmarkStableEcosystem, Environment: "Earth"})
	c.RecordBookmark(Bookmark{Type: BookmarkExtinction, Environment: "Venus"})

	got := c.Summaries()
	if len(got) != 2 || got[0].Environment != "Earth" || got[1].Environment != "Mars" {
		t.Fatalf("summaries not sorted by environment: %+v", got)
	}

	earth := got[0]
	want := RunSummary{
		Environment:     "Earth",
		Stages:          3,
		Births:          3,
		Kills:           4,
		Reductions:      2,
		Boosts:          1,
		PeakPopulation:  180,
		FinalPopulation: 170,
		MinResources:    150,
		MaxResources:    200,
		FinalResources:  160,
		Bookmarks:       1,
	}
	if earth != want {
		t.Errorf("earth summary = %+v, want %+v", earth, want)
	}
}

func TestCollectorEmpty(t *testing.T) {
	if got := NewCollector().Summaries(); len(got) != 0 {
		t.Errorf("empty collector returned %d summaries", len(got))
	}
}

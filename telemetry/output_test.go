package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/ecosim/config"
)

func TestNewOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	// Nil manager is a no-op
	if err := om.WriteTelemetry(StageStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := om.WriteTelemetry(
		StageStats{Stage: 1, Environment: "Earth", TotalPopulation: 175},
		StageStats{Stage: 1, Environment: "Mars", TotalPopulation: 3},
	); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteTelemetry(StageStats{Stage: 2, Environment: "Earth", TotalPopulation: 170}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteBookmarks(Bookmark{Type: BookmarkExtinction, Stage: 2, Environment: "Mars", Description: "Fox went extinct"}); err != nil {
		t.Fatal(err)
	}
	if err := om.WritePerf(PerfStats{}, 2); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3 rows:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "stage,environment,climate,resources") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "stage,environment") != 1 {
		t.Error("header written more than once")
	}

	data, err = os.ReadFile(filepath.Join(dir, "bookmarks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "extinction,2,Mars,Fox went extinct") {
		t.Errorf("unexpected bookmarks.csv:\n%s", data)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}

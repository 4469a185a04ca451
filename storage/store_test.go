package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pthm-cable/ecosim/systems"
	"github.com/pthm-cable/ecosim/telemetry"
)

func testSnapshot(t *testing.T, resources float64) *telemetry.Snapshot {
	t.Helper()
	env := systems.NewEnvironment("Earth", "moderate", resources, systems.DefaultRules())
	sunflower := systems.NewProducer("Sunflower", 2, 0.05)
	sunflower.Population = 50
	fox := systems.NewConsumer("Fox", 2, []string{"Rabbit"}, 0.08)
	fox.Population = 5
	for _, s := range []systems.Species{sunflower, fox} {
		if err := env.IntroduceSpecies(s); err != nil {
			t.Fatal(err)
		}
	}
	return telemetry.Capture([]*systems.Environment{env})
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseIfSupported(store)
	})

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("load on empty store = (%v, %v), want not found", ok, err)
	}

	first := testSnapshot(t, 200)
	second := testSnapshot(t, 150.25)
	if err := store.Save(ctx, first, "Automatic ecosystem save - stage 1"); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(ctx, second, "Automatic ecosystem save - stage 2"); err != nil {
		t.Fatalf("save second: %v", err)
	}

	loaded, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted document")
	}
	if !reflect.DeepEqual(loaded, second) {
		t.Fatalf("loaded document is not the latest save")
	}

	revs, supported, err := HistoryIfSupported(ctx, store, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !supported {
		return
	}
	if len(revs) != 2 {
		t.Fatalf("history has %d revisions, want 2", len(revs))
	}
	if revs[0].Description != "Automatic ecosystem save - stage 2" || revs[1].Description != "Automatic ecosystem save - stage 1" {
		t.Errorf("history not newest first: %+v", revs)
	}
	if revs[0].SavedAt.IsZero() {
		t.Error("revision without timestamp")
	}

	limited, _, err := HistoryIfSupported(ctx, store, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limited history = %d revisions (%v), want 1", len(limited), err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("load before init: %v", err)
	}
	if err := store.Save(ctx, testSnapshot(t, 1), "x"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("save before init: %v", err)
	}
}

func TestMemoryStoreIsolatesCallerMutation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}

	snap := testSnapshot(t, 10)
	if err := store.Save(ctx, snap, "x"); err != nil {
		t.Fatal(err)
	}
	delete(snap.Environments, "Earth")

	loaded, _, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.Environments["Earth"]; !ok {
		t.Error("caller mutation leaked into the store")
	}
}

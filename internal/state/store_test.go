package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldwx/stationd/internal/rainfall"
	"github.com/fieldwx/stationd/internal/wake"
)

func TestLoadMissingFileIsColdBoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.bin"))

	st, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.FirstRun {
		t.Error("expected FirstRun=true on cold boot")
	}
	if st.TipCount != 0 || len(st.Records) != 0 {
		t.Errorf("expected zeroed counters on cold boot, got tips=%d records=%d",
			st.TipCount, len(st.Records))
	}
	if st.WakeCause != wake.Unknown {
		t.Errorf("expected unknown wake cause on cold boot, got %s", st.WakeCause)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")
	store := NewStore(path)

	st := &State{
		TipCount:           42,
		TotalMm:            10.5,
		FirstRun:           false,
		NeedsConfiguration: true,
		FallbackAnchor:     120,
		LastSyncEpoch:      1700000000,
		WakeCause:          wake.ExternalSignal,
		Records: []rainfall.Record{
			{Timestamp: 1000, AmountMm: 0.25},
			{Timestamp: 2000, AmountMm: 0.25},
		},
	}
	if err := store.Save(st); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.TipCount != st.TipCount {
		t.Errorf("tip count: expected %d, got %d", st.TipCount, loaded.TipCount)
	}
	if loaded.TotalMm != st.TotalMm {
		t.Errorf("total mm: expected %.2f, got %.2f", st.TotalMm, loaded.TotalMm)
	}
	if loaded.NeedsConfiguration != st.NeedsConfiguration {
		t.Error("needs-configuration flag not preserved")
	}
	if loaded.FallbackAnchor != st.FallbackAnchor {
		t.Errorf("fallback anchor: expected %d, got %d", st.FallbackAnchor, loaded.FallbackAnchor)
	}
	if loaded.LastSyncEpoch != st.LastSyncEpoch {
		t.Errorf("last sync epoch: expected %d, got %d", st.LastSyncEpoch, loaded.LastSyncEpoch)
	}
	if loaded.WakeCause != st.WakeCause {
		t.Errorf("wake cause: expected %s, got %s", st.WakeCause, loaded.WakeCause)
	}
	if len(loaded.Records) != 2 || loaded.Records[0] != st.Records[0] || loaded.Records[1] != st.Records[1] {
		t.Errorf("records not preserved: %+v", loaded.Records)
	}
}

func TestLoadCorruptFileResetsToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")
	if err := os.WriteFile(path, []byte("not msgpack at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.FirstRun {
		t.Error("expected defaults after unreadable state file")
	}
}

func TestSaveReplacesExistingState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")
	store := NewStore(path)

	if err := store.Save(&State{TipCount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(&State{TipCount: 2}); err != nil {
		t.Fatal(err)
	}

	st, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.TipCount != 2 {
		t.Errorf("expected latest state, got tip count %d", st.TipCount)
	}

	// Only the state file remains; no temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single file in state dir, found %d", len(entries))
	}
}

package stats

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// TestTimestampsAndRetire walks a frame through a few milestones and
// checks the retained record.
func TestTimestampsAndRetire(t *testing.T) {
	s := New()
	s.MasterSetTs(TsFirstSymbolRX, 0)
	s.MasterSetTs(TsRXDone, 0)
	s.MasterSetTs(TsDecodeDone, 0)
	s.RetireFrame(0)

	if s.LastFrame() != 0 {
		t.Fatalf("LastFrame = %d", s.LastFrame())
	}
	rec := s.Retained()
	if len(rec) != 1 || rec[0].Frame != 0 {
		t.Fatalf("retained %+v", rec)
	}
	if rec[0].Ts[TsDecodeDone] == 0 || rec[0].Ts[TsFrameDone] == 0 {
		t.Fatal("milestones missing")
	}
	if rec[0].Ts[TsFrameDone] < rec[0].Ts[TsFirstSymbolRX] {
		t.Fatal("timestamps not monotone")
	}
}

// TestSlotReuseClears verifies a window slot's record resets when a new
// frame first stamps it.
func TestSlotReuseClears(t *testing.T) {
	s := New()
	s.MasterSetTs(TsFirstSymbolRX, 1)
	s.MasterSetTs(TsDecodeDone, 1)
	s.RetireFrame(1)

	s.MasterSetTs(TsFirstSymbolRX, 5) // same slot, next generation
	s.RetireFrame(5)

	rec := s.Retained()
	if len(rec) != 2 {
		t.Fatalf("retained %d records", len(rec))
	}
	if rec[1].Ts[TsDecodeDone] != 0 {
		t.Fatal("stale milestone leaked into the reused slot")
	}
}

// TestSaveToDB persists and re-reads the history through the sqlite
// driver.
func TestSaveToDB(t *testing.T) {
	s := New()
	for f := uint32(0); f < 3; f++ {
		s.MasterSetTs(TsFirstSymbolRX, f)
		s.MasterSetTs(TsRXDone, f)
		s.RetireFrame(f)
	}

	path := filepath.Join(t.TempDir(), "stats.db")
	runID, err := s.SaveToDB(path)
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var frames int
	err = db.QueryRow(
		`SELECT COUNT(DISTINCT frame) FROM frames WHERE run_id = ?`, runID).Scan(&frames)
	if err != nil {
		t.Fatal(err)
	}
	if frames != 3 {
		t.Fatalf("persisted %d frames, want 3", frames)
	}
}

// TestSaveToDBSkipsWhenUnconfigured: empty path is a silent no-op.
func TestSaveToDBSkipsWhenUnconfigured(t *testing.T) {
	s := New()
	if id, err := s.SaveToDB(""); err != nil || id != "" {
		t.Fatalf("expected no-op, got id=%q err=%v", id, err)
	}
}

// report.go — shutdown persistence of the frame history.
//
// One sqlite database, one row per (frame, milestone), keyed by a run
// UUID so repeated experiments accumulate in the same file and stay
// distinguishable. Runs entirely after the event loop; no hot-path cost.

package stats

import (
	"database/sql"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"main/debug"
)

// SaveToDB writes the retirement history to a sqlite file and returns the
// run id it was stored under. An empty path skips persistence.
func (s *Stats) SaveToDB(path string) (string, error) {
	if path == "" || len(s.done) == 0 {
		return "", nil
	}
	runID := uuid.NewString()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS frames (
		run_id TEXT NOT NULL,
		frame  INTEGER NOT NULL,
		milestone TEXT NOT NULL,
		ns INTEGER NOT NULL
	)`); err != nil {
		return "", err
	}

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	stmt, err := tx.Prepare(`INSERT INTO frames (run_id, frame, milestone, ns) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}
	defer stmt.Close()

	for i := range s.done {
		rec := &s.done[i]
		for ts := TsType(0); ts < NumTs; ts++ {
			if rec.Ts[ts] == 0 && ts != TsFirstSymbolRX {
				continue // milestone never reached (direction disabled)
			}
			if _, err = stmt.Exec(runID, rec.Frame, ts.String(), rec.Ts[ts]); err != nil {
				_ = tx.Rollback()
				return "", err
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	debug.DropMessage("STATS", "saved run "+runID+" to "+path)
	return runID, nil
}

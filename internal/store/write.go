package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/ir"
)

var _ engine.RunSink = (*Store)(nil)

// RecordRun writes a finished run with its trace, clicks and unlocks in one
// transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency - recording
// the same run ID twice leaves the first copy untouched.
func (s *Store) RecordRun(ctx context.Context, run engine.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, script, script_hash, start_kind, start_path, started_at, ended_at, ticks, reason, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Script,
		run.ScriptHash,
		run.Start.Kind.String(),
		run.Start.Path,
		formatTime(run.StartedAt),
		formatTime(run.EndedAt),
		run.Ticks,
		run.Reason,
		ir.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	if err := writeTrace(ctx, tx, run.ID, run.Trace.Ticks); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	if err := writeClicks(ctx, tx, run.ID, run.Trace.Clicks); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	if err := writeUnlocks(ctx, tx, run.ID, run.Unlocks); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: commit: %w", run.ID, err)
	}
	return nil
}

func writeTrace(ctx context.Context, tx *sql.Tx, runID string, ticks []ir.TraceTick) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_ticks (run_id, tick, pos_x, pos_y, pos_z, yaw, pitch, interaction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range ticks {
		_, err := stmt.ExecContext(ctx, runID, i,
			t.Position.X, t.Position.Y, t.Position.Z,
			t.Angle.X, t.Angle.Y,
			uint32(t.Interaction),
		)
		if err != nil {
			return fmt.Errorf("insert trace tick %d: %w", i, err)
		}
	}
	return nil
}

func writeClicks(ctx context.Context, tx *sql.Tx, runID string, clicks []ir.PuzzleClick) error {
	for _, c := range clicks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO puzzle_clicks (run_id, tick, cam_x, cam_y, cam_z, dir_x, dir_y, dir_z)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, c.Tick,
			c.CameraPosition.X, c.CameraPosition.Y, c.CameraPosition.Z,
			c.Direction.X, c.Direction.Y, c.Direction.Z,
		)
		if err != nil {
			return fmt.Errorf("insert puzzle click at tick %d: %w", c.Tick, err)
		}
	}
	return nil
}

func writeUnlocks(ctx context.Context, tx *sql.Tx, runID string, unlocks []uint32) error {
	for i, tick := range unlocks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO puzzle_unlocks (run_id, ordinal, tick) VALUES (?, ?, ?)
		`, runID, i, tick)
		if err != nil {
			return fmt.Errorf("insert puzzle unlock %d: %w", i, err)
		}
	}
	return nil
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

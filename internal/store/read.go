package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/trace"
)

// ErrNotFound is returned when a run ID is not in the store.
var ErrNotFound = errors.New("run not found")

// Run is the summary row of a recorded run.
type Run struct {
	Seq           int64
	ID            string
	Script        string
	ScriptHash    string
	Start         ir.StartType
	StartedAt     time.Time
	EndedAt       time.Time
	Ticks         uint32
	Reason        string
	EngineVersion string
	// TraceLen is the number of recorded trace samples.
	TraceLen int
}

const runColumns = `
	r.seq, r.id, r.script, r.script_hash, r.start_kind, r.start_path,
	r.started_at, r.ended_at, r.ticks, r.reason, r.engine_version,
	(SELECT COUNT(*) FROM trace_ticks t WHERE t.run_id = r.id)
`

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run by ID. Returns ErrNotFound when it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                    Run
		kind, started, ended string
	)
	err := sc.Scan(
		&r.Seq, &r.ID, &r.Script, &r.ScriptHash, &kind, &r.Start.Path,
		&started, &ended, &r.Ticks, &r.Reason, &r.EngineVersion,
		&r.TraceLen,
	)
	if err != nil {
		return Run{}, err
	}
	if r.Start.Kind, err = ir.ParseStartKind(kind); err != nil {
		return Run{}, err
	}
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("started_at: %w", err)
	}
	if r.EndedAt, err = parseTime(ended); err != nil {
		return Run{}, fmt.Errorf("ended_at: %w", err)
	}
	return r, nil
}

// ReadTrace returns the trace samples of a run that fall inside interval,
// using the same windowing as the live overlay. Ticks are ordered ascending.
// The returned offset is the tick of the first sample.
func (s *Store) ReadTrace(ctx context.Context, runID string, interval ir.TraceInterval) (int, []ir.TraceTick, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return 0, nil, err
	}

	lo, hi := trace.Window(ir.TraceDrawOptions{Interval: interval}, run.TraceLen)
	if lo >= hi {
		return lo, nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pos_x, pos_y, pos_z, yaw, pitch, interaction
		FROM trace_ticks
		WHERE run_id = ? AND tick >= ? AND tick < ?
		ORDER BY tick ASC
	`, runID, lo, hi)
	if err != nil {
		return 0, nil, fmt.Errorf("read trace %s: %w", runID, err)
	}
	defer rows.Close()

	ticks := make([]ir.TraceTick, 0, hi-lo)
	for rows.Next() {
		var (
			t   ir.TraceTick
			raw uint32
		)
		if err := rows.Scan(&t.Position.X, &t.Position.Y, &t.Position.Z, &t.Angle.X, &t.Angle.Y, &raw); err != nil {
			return 0, nil, fmt.Errorf("read trace %s: %w", runID, err)
		}
		t.Interaction, err = ir.ParseInteractionStatus(raw)
		if err != nil {
			return 0, nil, fmt.Errorf("read trace %s: %w", runID, err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("read trace %s: %w", runID, err)
	}
	return lo, ticks, nil
}

// ReadClicks returns a run's puzzle clicks ordered by tick.
func (s *Store) ReadClicks(ctx context.Context, runID string) ([]ir.PuzzleClick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, cam_x, cam_y, cam_z, dir_x, dir_y, dir_z
		FROM puzzle_clicks
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read clicks %s: %w", runID, err)
	}
	defer rows.Close()

	var clicks []ir.PuzzleClick
	for rows.Next() {
		var c ir.PuzzleClick
		err := rows.Scan(&c.Tick,
			&c.CameraPosition.X, &c.CameraPosition.Y, &c.CameraPosition.Z,
			&c.Direction.X, &c.Direction.Y, &c.Direction.Z)
		if err != nil {
			return nil, fmt.Errorf("read clicks %s: %w", runID, err)
		}
		clicks = append(clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read clicks %s: %w", runID, err)
	}
	return clicks, nil
}

// ReadUnlocks returns the ticks at which puzzles were unlocked, in the
// order they happened.
func (s *Store) ReadUnlocks(ctx context.Context, runID string) ([]uint32, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick FROM puzzle_unlocks WHERE run_id = ? ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read unlocks %s: %w", runID, err)
	}
	defer rows.Close()

	var ticks []uint32
	for rows.Next() {
		var tick uint32
		if err := rows.Scan(&tick); err != nil {
			return nil, fmt.Errorf("read unlocks %s: %w", runID, err)
		}
		ticks = append(ticks, tick)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read unlocks %s: %w", runID, err)
	}
	return ticks, nil
}

// DeleteRun removes a run and everything recorded with it.
// Returns ErrNotFound when the run does not exist.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}

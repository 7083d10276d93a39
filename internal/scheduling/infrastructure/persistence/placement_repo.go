package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// timeLayout keeps stored instants in UTC with fixed width so that
// string comparison in SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scheduling_runs (
		id TEXT PRIMARY KEY,
		now_at TEXT NOT NULL,
		horizon_days INTEGER NOT NULL,
		unscheduled TEXT NOT NULL,
		ignored TEXT NOT NULL,
		deferred TEXT NOT NULL,
		free_interval_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS placements (
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		occurrence_id TEXT NOT NULL,
		time_map_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		pinned INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_placements_window ON placements (start_at, end_at)`,
	`CREATE INDEX IF NOT EXISTS idx_placements_run ON placements (run_id)`,
}

// PlacementRepository stores scheduling runs on any database.Connection.
type PlacementRepository struct {
	conn database.Connection
}

// NewPlacementRepository creates a placement repository.
func NewPlacementRepository(conn database.Connection) *PlacementRepository {
	return &PlacementRepository{conn: conn}
}

// EnsureSchema creates the tables used by the repository.
func (r *PlacementRepository) EnsureSchema(ctx context.Context) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	for _, stmt := range schema {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply placement schema: %w", err)
		}
	}
	return nil
}

func (r *PlacementRepository) q(query string) string {
	return r.conn.Driver().Rebind(query)
}

// SaveRun stores the run and replaces every non-pinned placement that ends
// after the run's reference time. Pinned placements carried by the run are
// written once; older copies of the same pin are removed first.
func (r *PlacementRepository) SaveRun(ctx context.Context, run domain.Run) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	unscheduled, err := json.Marshal(nonNil(run.Result.Unscheduled))
	if err != nil {
		return err
	}
	ignored, err := json.Marshal(nonNil(run.Result.Ignored))
	if err != nil {
		return err
	}
	deferred, err := json.Marshal(nonNil(run.Result.Deferred))
	if err != nil {
		return err
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = exec.Exec(ctx, r.q(`
		INSERT INTO scheduling_runs (
			id, now_at, horizon_days, unscheduled, ignored, deferred, free_interval_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		run.ID.String(),
		formatTime(run.Now),
		run.HorizonDays,
		string(unscheduled),
		string(ignored),
		string(deferred),
		run.Result.FreeIntervalCount,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if _, err := exec.Exec(ctx, r.q(`DELETE FROM placements WHERE pinned = 0 AND end_at > ?`), formatTime(run.Now)); err != nil {
		return fmt.Errorf("failed to clear future placements: %w", err)
	}

	for _, p := range run.Result.Placements {
		if p.Pinned {
			_, err := exec.Exec(ctx, r.q(`
				DELETE FROM placements
				WHERE pinned = 1 AND task_id = ? AND occurrence_id = ? AND start_at = ? AND end_at = ?
			`), p.TaskID, p.OccurrenceID, formatTime(p.Start), formatTime(p.End))
			if err != nil {
				return fmt.Errorf("failed to replace pinned placement: %w", err)
			}
		}
		_, err := exec.Exec(ctx, r.q(`
			INSERT INTO placements (run_id, task_id, occurrence_id, time_map_id, start_at, end_at, pinned)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`),
			run.ID.String(),
			p.TaskID,
			p.OccurrenceID,
			p.TimeMapID,
			formatTime(p.Start),
			formatTime(p.End),
			boolToInt(p.Pinned),
		)
		if err != nil {
			return fmt.Errorf("failed to insert placement: %w", err)
		}
	}

	return nil
}

// LatestRun returns the most recently created run with its placements.
func (r *PlacementRepository) LatestRun(ctx context.Context) (*domain.Run, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	row := exec.QueryRow(ctx, r.q(`
		SELECT id, now_at, horizon_days, unscheduled, ignored, deferred, free_interval_count, created_at
		FROM scheduling_runs
		ORDER BY created_at DESC
		LIMIT 1
	`))

	var (
		idStr, nowStr, createdStr      string
		unscheduled, ignored, deferred string
		horizonDays, freeIntervalCount int
	)
	if err := row.Scan(&idStr, &nowStr, &horizonDays, &unscheduled, &ignored, &deferred, &freeIntervalCount, &createdStr); err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", idStr, err)
	}
	run := &domain.Run{ID: id, HorizonDays: horizonDays}
	if run.Now, err = parseTime(nowStr); err != nil {
		return nil, err
	}
	if run.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, err
	}
	run.Result.FreeIntervalCount = freeIntervalCount
	if run.Result.Unscheduled, err = decodeIDs(unscheduled); err != nil {
		return nil, err
	}
	if run.Result.Ignored, err = decodeIDs(ignored); err != nil {
		return nil, err
	}
	if run.Result.Deferred, err = decodeIDs(deferred); err != nil {
		return nil, err
	}

	run.Result.Placements, err = r.scanPlacements(ctx, r.q(`
		SELECT task_id, occurrence_id, time_map_id, start_at, end_at, pinned
		FROM placements WHERE run_id = ?
		ORDER BY start_at, time_map_id, task_id
	`), idStr)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListPlacements returns stored placements overlapping [from, to).
func (r *PlacementRepository) ListPlacements(ctx context.Context, from, to time.Time) ([]domain.Placement, error) {
	return r.scanPlacements(ctx, r.q(`
		SELECT task_id, occurrence_id, time_map_id, start_at, end_at, pinned
		FROM placements WHERE start_at < ? AND end_at > ?
		ORDER BY start_at, time_map_id, task_id
	`), formatTime(to), formatTime(from))
}

// ListPinned returns placements flagged as pinned.
func (r *PlacementRepository) ListPinned(ctx context.Context) ([]domain.Placement, error) {
	return r.scanPlacements(ctx, r.q(`
		SELECT task_id, occurrence_id, time_map_id, start_at, end_at, pinned
		FROM placements WHERE pinned = 1
		ORDER BY start_at, time_map_id, task_id
	`))
}

func (r *PlacementRepository) scanPlacements(ctx context.Context, query string, args ...any) ([]domain.Placement, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	placements := make([]domain.Placement, 0)
	for rows.Next() {
		var p domain.Placement
		var startStr, endStr string
		var pinned int
		if err := rows.Scan(&p.TaskID, &p.OccurrenceID, &p.TimeMapID, &startStr, &endStr, &pinned); err != nil {
			return nil, err
		}
		if p.Start, err = parseTime(startStr); err != nil {
			return nil, err
		}
		if p.End, err = parseTime(endStr); err != nil {
			return nil, err
		}
		p.Pinned = pinned == 1
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func decodeIDs(raw string) ([]string, error) {
	ids := []string{}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("invalid id list: %w", err)
	}
	return ids, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ domain.PlacementRepository = (*PlacementRepository)(nil)

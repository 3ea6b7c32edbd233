package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fitlog/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrActivityLogNotFound = errors.New("activity log not found")

// ActivityParams filter activity logs; zero values mean "no filter"
// (apart from UserID, which is always required).
type ActivityParams struct {
	UserID       int
	From         *time.Time
	To           *time.Time
	Status       Status
	NameContains string
}

type ListParams struct {
	ActivityParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add persists the given activity log. All totals are recomputed from
// the raw set data right before the write, caller-supplied totals are
// never trusted.
func (r *Repo) Add(ctx context.Context, activityLog ActivityLog) (_ *ActivityLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	activityLog.RecomputeTotals()

	exercisesJson, err := json.Marshal(activityLog.Exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO activity_log
				(user_id, routine_id, routine_title, routine_description,
				completed_date, weekday, status, exercises,
				total_sets, total_reps, total_volume, total_workout_time,
				notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
			RETURNING id, created_at;`,
		activityLog.UserID, activityLog.RoutineID, activityLog.RoutineTitle, activityLog.RoutineDescription,
		activityLog.CompletedDate, activityLog.Weekday, activityLog.Status, exercisesJson,
		activityLog.TotalSets, activityLog.TotalReps, activityLog.TotalVolume, activityLog.TotalWorkoutTime,
		activityLog.Notes,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&activityLog.ID, &activityLog.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("activitylog.id", activityLog.ID))

	return &activityLog, nil
}

func (r *Repo) Get(ctx context.Context, id, userID int) (_ *ActivityLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+activityLogColumns+` FROM activity_log
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	logs, err := r.rows2activityLogs(rows)
	if err != nil {
		return nil, err
	}

	if len(logs) != 1 {
		return nil, ErrActivityLogNotFound
	}

	return &logs[0], nil
}

const activityLogColumns = `
	id, user_id, routine_id, routine_title, routine_description,
	completed_date, weekday, status, exercises,
	total_sets, total_reps, total_volume, total_workout_time,
	notes, created_at`

const activityLogFilter = `
	user_id = $1
	AND ($2::timestamp IS NULL OR completed_date >= $2)
	AND ($3::timestamp IS NULL OR completed_date <= $3)
	AND ($4::text = '' OR status = $4)
	AND ($5::text = '' OR EXISTS (
		SELECT 1 FROM jsonb_array_elements(exercises) AS ex
		WHERE ex->>'name' ILIKE '%' || $5 || '%'
	))`

// ListAll returns all matching activity logs ordered by completion
// date descending.
func (r *Repo) ListAll(ctx context.Context, params ActivityParams) (_ []ActivityLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", params.UserID))
	span.SetAttributes(attribute.String("status", string(params.Status)))
	span.SetAttributes(attribute.String("name-contains", params.NameContains))
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+activityLogColumns+` FROM activity_log
			WHERE `+activityLogFilter+`
			ORDER BY completed_date DESC;`,
		params.UserID, params.From, params.To, params.Status, params.NameContains,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	logs, err := r.rows2activityLogs(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2activityLogs: %w", err)
	}
	return logs, nil
}

// List is like ListAll, but returns the specific PAGE of activity
// logs, plus the total count of all matches. A page past the last one
// yields an empty slice, not an error.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []ActivityLog, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	span.SetAttributes(attribute.Int("user.id", params.UserID))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	countAll, err := r.Count(ctx, params.ActivityParams)
	if err != nil {
		return nil, -1, err
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size

	span.SetAttributes(attribute.Int("count_all", countAll))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+activityLogColumns+` FROM activity_log
			WHERE `+activityLogFilter+`
			ORDER BY completed_date DESC
			LIMIT $6
			OFFSET $7;`,
		params.UserID, params.From, params.To, params.Status, params.NameContains,
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	logs, err := r.rows2activityLogs(rows)
	if err != nil {
		return nil, -1, err
	}
	return logs, countAll, nil
}

func (r *Repo) Count(ctx context.Context, params ActivityParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM activity_log WHERE `+activityLogFilter+`;`,
		params.UserID, params.From, params.To, params.Status, params.NameContains,
	).Scan(&count)
	if err != nil {
		return -1, err
	}
	return count, nil
}

func (r *Repo) rows2activityLogs(rows pgx.Rows) ([]ActivityLog, error) {
	var logs []ActivityLog
	for rows.Next() {
		var activityLog ActivityLog
		var exercisesJson []byte
		if err := rows.Scan(
			&activityLog.ID, &activityLog.UserID, &activityLog.RoutineID,
			&activityLog.RoutineTitle, &activityLog.RoutineDescription,
			&activityLog.CompletedDate, &activityLog.Weekday, &activityLog.Status,
			&exercisesJson,
			&activityLog.TotalSets, &activityLog.TotalReps, &activityLog.TotalVolume,
			&activityLog.TotalWorkoutTime, &activityLog.Notes, &activityLog.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if err := json.Unmarshal(exercisesJson, &activityLog.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshal exercises: %w", err)
		}
		logs = append(logs, activityLog)
	}
	return logs, nil
}

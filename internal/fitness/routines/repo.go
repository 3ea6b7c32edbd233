package routines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fitlog/backend/internal/telemetry/tracing"
	"github.com/fitlog/backend/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrRoutineNotFound = errors.New("routine not found")

// RoutineParams filter the routines of one user; zero values mean
// "no filter".
type RoutineParams struct {
	UserID  int
	Weekday string
	Active  *bool
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, routine WorkoutRoutine) (_ *WorkoutRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercisesJson, err := json.Marshal(routine.Exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_routine
				(user_id, title, description, weekdays, exercises, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at;`,
		routine.UserID, routine.Title, routine.Description,
		routine.Weekdays, exercisesJson, routine.IsActive,
	).Scan(&routine.ID, &routine.CreatedAt, &routine.UpdatedAt)
	if err != nil {
		// user_id carries a foreign key to users
		if pkg.IsForeignKeyViolationError(err) {
			return nil, fmt.Errorf("add routine: user %d not found", routine.UserID)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("routine.id", routine.ID))

	return &routine, nil
}

func (r *Repo) Get(ctx context.Context, id, userID int) (_ *WorkoutRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+routineColumns+` FROM workout_routine
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

	routines, err := r.rows2routines(rows)
	if err != nil {
		return nil, err
	}

	if len(routines) != 1 {
		return nil, ErrRoutineNotFound
	}

	return &routines[0], nil
}

const routineColumns = `
	id, user_id, title, description, weekdays, exercises, is_active, created_at, updated_at`

// List returns the user's routines, newest first.
func (r *Repo) List(ctx context.Context, params RoutineParams) (_ []WorkoutRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", params.UserID))
	span.SetAttributes(attribute.String("weekday", params.Weekday))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+routineColumns+` FROM workout_routine
			WHERE user_id = $1
			AND ($2::text = '' OR $2 = ANY(weekdays))
			AND ($3::boolean IS NULL OR is_active = $3)
			ORDER BY created_at DESC;`,
		params.UserID, params.Weekday, params.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	routines, err := r.rows2routines(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2routines: %w", err)
	}
	return routines, nil
}

// ListForWeekday returns the user's active routines assigned to the
// given weekday.
func (r *Repo) ListForWeekday(ctx context.Context, userID int, weekday string) ([]WorkoutRoutine, error) {
	active := true
	return r.List(ctx, RoutineParams{
		UserID:  userID,
		Weekday: weekday,
		Active:  &active,
	})
}

func (r *Repo) Update(ctx context.Context, routine *WorkoutRoutine) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", routine.ID))

	exercisesJson, err := json.Marshal(routine.Exercises)
	if err != nil {
		return fmt.Errorf("marshal exercises: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_routine
			SET title = $1, description = $2, weekdays = $3, exercises = $4, is_active = $5, updated_at = NOW()
			WHERE id = $6 AND user_id = $7;`,
		routine.Title, routine.Description, routine.Weekdays, exercisesJson, routine.IsActive,
		routine.ID, routine.UserID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_routine WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

func (r *Repo) rows2routines(rows pgx.Rows) ([]WorkoutRoutine, error) {
	var routines []WorkoutRoutine
	for rows.Next() {
		var routine WorkoutRoutine
		var exercisesJson []byte
		if err := rows.Scan(
			&routine.ID, &routine.UserID, &routine.Title, &routine.Description,
			&routine.Weekdays, &exercisesJson, &routine.IsActive,
			&routine.CreatedAt, &routine.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if err := json.Unmarshal(exercisesJson, &routine.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshal exercises: %w", err)
		}
		routines = append(routines, routine)
	}
	return routines, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitlog/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrExerciseNotFound = errors.New("exercise not found")

// ExerciseParams filter catalog exercises; zero values mean
// "no filter".
type ExerciseParams struct {
	Category string
	Muscle   string
	Search   string
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const exerciseColumns = `
	id, name, force, level, mechanic, equipment,
	primary_muscles, secondary_muscles, instructions, category, created_at`

func (r *Repo) Get(ctx context.Context, id string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var exercise Exercise
	err = r.db.QueryRow(
		ctx,
		`SELECT `+exerciseColumns+` FROM exercise WHERE id = $1;`,
		id,
	).Scan(
		&exercise.ID, &exercise.Name, &exercise.Force, &exercise.Level,
		&exercise.Mechanic, &exercise.Equipment,
		&exercise.PrimaryMuscles, &exercise.SecondaryMuscles,
		&exercise.Instructions, &exercise.Category, &exercise.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	return &exercise, nil
}

// List returns catalog exercises matching the given filters, sorted by
// name.
func (r *Repo) List(ctx context.Context, params ExerciseParams) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("category", params.Category))
	span.SetAttributes(attribute.String("muscle", params.Muscle))
	span.SetAttributes(attribute.String("search", params.Search))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+exerciseColumns+` FROM exercise
			WHERE ($1::text = '' OR category = $1)
			AND ($2::text = '' OR $2 = ANY(primary_muscles) OR $2 = ANY(secondary_muscles))
			AND ($3::text = '' OR name ILIKE '%' || $3 || '%')
			ORDER BY name ASC;`,
		params.Category, params.Muscle, params.Search,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var exercises []Exercise
	for rows.Next() {
		var exercise Exercise
		if err := rows.Scan(
			&exercise.ID, &exercise.Name, &exercise.Force, &exercise.Level,
			&exercise.Mechanic, &exercise.Equipment,
			&exercise.PrimaryMuscles, &exercise.SecondaryMuscles,
			&exercise.Instructions, &exercise.Category, &exercise.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, exercise)
	}

	return exercises, nil
}

// Categories returns all distinct exercise categories, sorted.
func (r *Repo) Categories(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.categories")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT DISTINCT category FROM exercise ORDER BY category ASC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, nil
}

package routines

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitlog/backend/internal/fitness/activities"
	"github.com/fitlog/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=routines_test

type ErrValidation struct {
	Message string
}

func (e ErrValidation) Error() string {
	return e.Message
}

type routinesGetter interface {
	Get(ctx context.Context, id, userID int) (*WorkoutRoutine, error)
	ListForWeekday(ctx context.Context, userID int, weekday string) ([]WorkoutRoutine, error)
}

type activityLogsRepo interface {
	Add(ctx context.Context, activityLog activities.ActivityLog) (*activities.ActivityLog, error)
	ListAll(ctx context.Context, params activities.ActivityParams) ([]activities.ActivityLog, error)
}

// ExerciseCompletion is one exercise of a workout completion request,
// with the sets actually performed.
type ExerciseCompletion struct {
	ExerciseID string           `json:"exerciseId"`
	Name       string           `json:"name"`
	Sets       []activities.Set `json:"sets"`
}

type CompleteRoutineRequest struct {
	RoutineID   int                  `json:"routineId"`
	Exercises   []ExerciseCompletion `json:"exercises"`
	Status      activities.Status    `json:"status,omitempty"`
	WorkoutTime int                  `json:"workoutTime,omitempty"`
	Notes       string               `json:"notes,omitempty"`
}

// Service builds activity log records from routine completions. It is
// the only write path for activity logs, so the denormalized routine
// snapshot and the derived totals always come through here.
type Service struct {
	routines     routinesGetter
	activityLogs activityLogsRepo
	// injectable clock for unit testing
	NowFunc func() time.Time
}

func NewService(routines routinesGetter, activityLogs activityLogsRepo) *Service {
	return &Service{
		routines:     routines,
		activityLogs: activityLogs,
		NowFunc:      time.Now,
	}
}

func (req CompleteRoutineRequest) validate() error {
	if req.RoutineID < 1 {
		return ErrValidation{Message: "routine id is required"}
	}
	if len(req.Exercises) == 0 {
		return ErrValidation{Message: "at least one exercise is required"}
	}
	for i, exercise := range req.Exercises {
		if exercise.ExerciseID == "" {
			return ErrValidation{Message: fmt.Sprintf("exercise %d: exercise id is required", i)}
		}
		if exercise.Name == "" {
			return ErrValidation{Message: fmt.Sprintf("exercise %d: exercise name is required", i)}
		}
		if len(exercise.Sets) == 0 {
			return ErrValidation{Message: fmt.Sprintf("exercise %d: at least one set is required", i)}
		}
		for j, set := range exercise.Sets {
			if set.Reps < 1 {
				return ErrValidation{Message: fmt.Sprintf("exercise %d, set %d: reps must be at least 1", i, j)}
			}
			if set.Kilos < 0 {
				return ErrValidation{Message: fmt.Sprintf("exercise %d, set %d: weight cannot be negative", i, j)}
			}
		}
	}
	if req.Status != "" && !req.Status.IsValid() {
		return ErrValidation{Message: fmt.Sprintf("invalid status: %s", req.Status)}
	}
	return nil
}

// CompleteRoutine materializes an activity log for the given routine
// completion: it resolves the routine by (id, user), snapshots its
// title and description onto the record, stamps the completion moment
// and weekday, and persists the record with totals derived from the
// raw sets. Completing the same routine twice a day makes two
// independent records.
func (s *Service) CompleteRoutine(
	ctx context.Context,
	userID int,
	req CompleteRoutineRequest,
) (_ *activities.ActivityLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.routines.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("routine.id", req.RoutineID))

	if err := req.validate(); err != nil {
		return nil, err
	}

	routine, err := s.routines.Get(ctx, req.RoutineID, userID)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get routine: %w", err)
	}

	status := req.Status
	if status == "" {
		status = activities.StatusCompleted
	}

	exercises := make([]activities.ActivityExercise, 0, len(req.Exercises))
	for _, completion := range req.Exercises {
		exercises = append(exercises, activities.ActivityExercise{
			ExerciseID: completion.ExerciseID,
			Name:       completion.Name,
			Sets:       completion.Sets,
		})
	}

	now := s.NowFunc()
	activityLog := activities.ActivityLog{
		UserID:             userID,
		RoutineID:          routine.ID,
		RoutineTitle:       routine.Title,
		RoutineDescription: routine.Description,
		CompletedDate:      now,
		Weekday:            now.Weekday().String(),
		Status:             status,
		Exercises:          exercises,
		TotalWorkoutTime:   req.WorkoutTime,
		Notes:              req.Notes,
	}

	added, err := s.activityLogs.Add(ctx, activityLog)
	if err != nil {
		return nil, fmt.Errorf("add activity log: %w", err)
	}
	return added, nil
}

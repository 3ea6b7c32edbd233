package routines

import (
	"context"
	"fmt"
	"time"

	"github.com/fitlog/backend/internal/fitness/activities"
	"github.com/fitlog/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type ReconciledExercise struct {
	RoutineExercise
	Completed bool `json:"completed"`
}

// ReconciledRoutine is a routine whose exercises carry a completed
// flag derived from today's activity logs.
type ReconciledRoutine struct {
	WorkoutRoutine
	Exercises []ReconciledExercise `json:"exercises"`
}

// Reconciler annotates routine exercises with their same-day
// completion state.
type Reconciler struct {
	routines     routinesGetter
	activityLogs activityLogsRepo
	// injectable clock for unit testing
	NowFunc func() time.Time
}

func NewReconciler(routines routinesGetter, activityLogs activityLogsRepo) *Reconciler {
	return &Reconciler{
		routines:     routines,
		activityLogs: activityLogs,
		NowFunc:      time.Now,
	}
}

type completionKey struct {
	routineID  int
	exerciseID string
}

// RoutinesForWeekday returns the user's active routines assigned to
// the given weekday, each exercise flagged completed iff an activity
// log from the current calendar day references the same routine and
// the same exercise. The same exercise done via a different routine
// does not count.
func (rec *Reconciler) RoutinesForWeekday(
	ctx context.Context,
	userID int,
	weekday string,
) (_ []ReconciledRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "reconciler.routines.forWeekday")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("weekday", weekday))

	routines, err := rec.routines.ListForWeekday(ctx, userID, weekday)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}

	now := rec.NowFunc()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	todaysLogs, err := rec.activityLogs.ListAll(ctx, activities.ActivityParams{
		UserID: userID,
		From:   &startOfDay,
		To:     &endOfDay,
	})
	if err != nil {
		return nil, fmt.Errorf("list todays activity logs: %w", err)
	}

	completedToday := make(map[completionKey]bool)
	for _, activityLog := range todaysLogs {
		for _, exercise := range activityLog.Exercises {
			completedToday[completionKey{
				routineID:  activityLog.RoutineID,
				exerciseID: exercise.ExerciseID,
			}] = true
		}
	}

	reconciled := make([]ReconciledRoutine, 0, len(routines))
	for _, routine := range routines {
		exercises := make([]ReconciledExercise, 0, len(routine.Exercises))
		for _, exercise := range routine.Exercises {
			exercises = append(exercises, ReconciledExercise{
				RoutineExercise: exercise,
				Completed: completedToday[completionKey{
					routineID:  routine.ID,
					exerciseID: exercise.ExerciseID,
				}],
			})
		}
		reconciled = append(reconciled, ReconciledRoutine{
			WorkoutRoutine: routine,
			Exercises:      exercises,
		})
	}

	return reconciled, nil
}

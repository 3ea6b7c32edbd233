package activities

import "time"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusSkipped   Status = "skipped"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusSkipped:
		return true
	}
	return false
}

// Set is one performed set of an exercise.
type Set struct {
	Kilos float64 `json:"kg"`
	Reps  int     `json:"reps"`
}

type ExerciseTotals struct {
	TotalSets   int     `json:"totalSets"`
	TotalReps   int     `json:"totalReps"`
	TotalVolume float64 `json:"totalVolume"`
}

// CalcSetTotals derives the totals over the given sets.
// An empty set list yields all-zero totals.
func CalcSetTotals(sets []Set) ExerciseTotals {
	var totals ExerciseTotals
	for _, set := range sets {
		totals.TotalSets++
		totals.TotalReps += set.Reps
		totals.TotalVolume += set.Kilos * float64(set.Reps)
	}
	return totals
}

// ActivityExercise is one exercise of a logged workout, with the
// actually performed sets and totals derived from them.
type ActivityExercise struct {
	ExerciseID string `json:"exerciseId"`
	Name       string `json:"name"`
	Sets       []Set  `json:"sets"`
	ExerciseTotals
}

// ActivityLog is an immutable record of one completed workout.
// The routine title and description are captured at completion time
// and never re-derived from the live routine.
type ActivityLog struct {
	ID                 int                `json:"id"`
	UserID             int                `json:"userId"`
	RoutineID          int                `json:"routineId"`
	RoutineTitle       string             `json:"routineTitle"`
	RoutineDescription string             `json:"routineDescription,omitempty"`
	CompletedDate      time.Time          `json:"completedDate"`
	Weekday            string             `json:"weekday"`
	Status             Status             `json:"status"`
	Exercises          []ActivityExercise `json:"exercises"`
	TotalSets          int                `json:"totalSets"`
	TotalReps          int                `json:"totalReps"`
	TotalVolume        float64            `json:"totalVolume"`
	TotalWorkoutTime   int                `json:"totalWorkoutTime"`
	Notes              string             `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// RecomputeTotals rederives all derived totals from the raw set data,
// first per exercise, then the workout-level sums. Caller-supplied
// totals are always discarded.
func (a *ActivityLog) RecomputeTotals() {
	a.TotalSets = 0
	a.TotalReps = 0
	a.TotalVolume = 0
	for i := range a.Exercises {
		a.Exercises[i].ExerciseTotals = CalcSetTotals(a.Exercises[i].Sets)
		a.TotalSets += a.Exercises[i].TotalSets
		a.TotalReps += a.Exercises[i].TotalReps
		a.TotalVolume += a.Exercises[i].TotalVolume
	}
}

// MaxSetKilos returns the heaviest single set of the exercise.
func (e ActivityExercise) MaxSetKilos() float64 {
	var maxKilos float64
	for _, set := range e.Sets {
		if set.Kilos > maxKilos {
			maxKilos = set.Kilos
		}
	}
	return maxKilos
}

// AvgSetKilos returns the average weight over the exercise sets.
func (e ActivityExercise) AvgSetKilos() float64 {
	if len(e.Sets) == 0 {
		return 0
	}
	var sum float64
	for _, set := range e.Sets {
		sum += set.Kilos
	}
	return sum / float64(len(e.Sets))
}

package routines

import (
	"errors"
	"fmt"
	"time"
)

var weekdays = map[string]bool{
	"Sunday":    true,
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
}

func IsValidWeekday(weekday string) bool {
	return weekdays[weekday]
}

// RoutineExercise is one planned exercise of a routine, with its
// target sets x reps and position within the workout.
type RoutineExercise struct {
	ExerciseID string `json:"exerciseId"`
	Name       string `json:"name"`
	TargetSets int    `json:"targetSets"`
	TargetReps int    `json:"targetReps"`
	Order      int    `json:"order"`
}

// WorkoutRoutine is a user-defined workout template assigned to one or
// more weekdays.
type WorkoutRoutine struct {
	ID          int               `json:"id"`
	UserID      int               `json:"userId"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Weekdays    []string          `json:"weekdays"`
	Exercises   []RoutineExercise `json:"exercises"`
	IsActive    bool              `json:"isActive"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

const (
	maxTitleLen       = 50
	maxDescriptionLen = 200
)

func (r *WorkoutRoutine) Validate() error {
	if r.Title == "" {
		return errors.New("routine title is required")
	}
	if len(r.Title) > maxTitleLen {
		return fmt.Errorf("title cannot exceed %d characters", maxTitleLen)
	}
	if len(r.Description) > maxDescriptionLen {
		return fmt.Errorf("description cannot exceed %d characters", maxDescriptionLen)
	}
	if len(r.Weekdays) == 0 {
		return errors.New("at least one weekday is required")
	}
	for _, weekday := range r.Weekdays {
		if !IsValidWeekday(weekday) {
			return fmt.Errorf("invalid weekday: %s", weekday)
		}
	}
	if len(r.Exercises) == 0 {
		return errors.New("at least one exercise is required")
	}
	for i, exercise := range r.Exercises {
		if exercise.ExerciseID == "" {
			return fmt.Errorf("exercise %d: exercise id is required", i)
		}
		if exercise.TargetSets < 1 {
			return fmt.Errorf("exercise %d: sets must be at least 1", i)
		}
		if exercise.TargetReps < 1 {
			return fmt.Errorf("exercise %d: reps must be at least 1", i)
		}
	}
	return nil
}

// NormalizeExerciseOrder assigns the positional index to every
// exercise missing an explicit order.
func (r *WorkoutRoutine) NormalizeExerciseOrder() {
	for i := range r.Exercises {
		if r.Exercises[i].Order == 0 {
			r.Exercises[i].Order = i
		}
	}
}

package activities

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fitlog/backend/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ExerciseTotalsGroup accumulates the totals of one exercise, grouped
// by (exercise id, exercise name), across all workouts in a window.
type ExerciseTotalsGroup struct {
	ExerciseID          string  `json:"exerciseId"`
	Name                string  `json:"name"`
	TotalSets           int     `json:"totalSets"`
	TotalReps           int     `json:"totalReps"`
	TotalVolume         float64 `json:"totalVolume"`
	WorkoutCount        int     `json:"workoutCount"`
	AvgSetsPerWorkout   float64 `json:"avgSetsPerWorkout"`
	AvgRepsPerWorkout   float64 `json:"avgRepsPerWorkout"`
	AvgVolumePerWorkout float64 `json:"avgVolumePerWorkout"`
	MaxKilos            float64 `json:"maxKilos"`
}

type ExerciseSession struct {
	Date time.Time `json:"date"`
	Sets []Set     `json:"sets"`
	ExerciseTotals
}

// ExerciseBreakdownEntry is the weekly report per-exercise breakdown,
// keyed by exercise name only.
type ExerciseBreakdownEntry struct {
	Name         string            `json:"name"`
	ExerciseID   string            `json:"exerciseId"`
	TotalSets    int               `json:"totalSets"`
	TotalReps    int               `json:"totalReps"`
	TotalVolume  float64           `json:"totalVolume"`
	WorkoutCount int               `json:"workoutCount"`
	Sessions     []ExerciseSession `json:"sessions"`
}

type DayBreakdown struct {
	Count  int     `json:"count"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Volume float64 `json:"volume"`
	Time   int     `json:"time"`
}

type ReportSummary struct {
	TotalWorkouts int     `json:"totalWorkouts"`
	TotalSets     int     `json:"totalSets"`
	TotalReps     int     `json:"totalReps"`
	TotalVolume   float64 `json:"totalVolume"`
	TotalTime     int     `json:"totalTime"`
}

type WeeklyReport struct {
	Period            Window                   `json:"period"`
	Summary           ReportSummary            `json:"summary"`
	ExerciseBreakdown []ExerciseBreakdownEntry `json:"exerciseBreakdown"`
	// DailyBreakdown is sparse, weekdays without any workout are absent.
	DailyBreakdown map[string]DayBreakdown `json:"dailyBreakdown"`
}

// ProgressPoint is one workout session of a tracked exercise within a
// progress series.
type ProgressPoint struct {
	Date         time.Time `json:"date"`
	RoutineTitle string    `json:"routineTitle"`
	Sets         []Set     `json:"sets"`
	TotalSets    int       `json:"totalSets"`
	TotalReps    int       `json:"totalReps"`
	TotalVolume  float64   `json:"totalVolume"`
	MaxKilos     float64   `json:"maxKilos"`
	AvgKilos     float64   `json:"avgKilos"`
}

type Analyzer struct {
	repo activityRepo
}

func NewAnalyzer(repo activityRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// round1 rounds to one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// WeeklyExerciseTotals groups all exercises of the user's workouts in
// the window by (exercise id, name) and derives totals and per-workout
// averages per group. Groups are sorted descending by total volume;
// equal volumes keep first-seen order.
func (a *Analyzer) WeeklyExerciseTotals(
	ctx context.Context,
	userID int,
	window Window,
	nameFilter string,
) (_ []ExerciseTotalsGroup, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.activities.weeklyExerciseTotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("name-filter", nameFilter))

	logs, err := a.repo.ListAll(ctx, ActivityParams{
		UserID:       userID,
		From:         &window.From,
		To:           &window.To,
		NameContains: nameFilter,
	})
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		exerciseID string
		name       string
	}
	key2group := make(map[groupKey]*ExerciseTotalsGroup)
	var groups []*ExerciseTotalsGroup

	for _, activityLog := range logs {
		for _, exercise := range activityLog.Exercises {
			if nameFilter != "" &&
				!strings.Contains(strings.ToLower(exercise.Name), strings.ToLower(nameFilter)) {
				continue
			}
			key := groupKey{exerciseID: exercise.ExerciseID, name: exercise.Name}
			group, ok := key2group[key]
			if !ok {
				group = &ExerciseTotalsGroup{
					ExerciseID: exercise.ExerciseID,
					Name:       exercise.Name,
				}
				key2group[key] = group
				groups = append(groups, group)
			}
			group.TotalSets += exercise.TotalSets
			group.TotalReps += exercise.TotalReps
			group.TotalVolume += exercise.TotalVolume
			group.WorkoutCount++
			if maxKilos := exercise.MaxSetKilos(); maxKilos > group.MaxKilos {
				group.MaxKilos = maxKilos
			}
		}
	}

	for _, group := range groups {
		group.AvgSetsPerWorkout = round1(float64(group.TotalSets) / float64(group.WorkoutCount))
		group.AvgRepsPerWorkout = round1(float64(group.TotalReps) / float64(group.WorkoutCount))
		group.AvgVolumePerWorkout = round1(group.TotalVolume / float64(group.WorkoutCount))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalVolume > groups[j].TotalVolume
	})

	result := make([]ExerciseTotalsGroup, 0, len(groups))
	for _, group := range groups {
		result = append(result, *group)
	}
	return result, nil
}

// Report builds the weekly report: summary sums across all matching
// workouts, a per-exercise-name breakdown sorted descending by volume,
// and a sparse per-weekday breakdown.
func (a *Analyzer) Report(
	ctx context.Context,
	userID int,
	window Window,
) (_ *WeeklyReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.activities.report")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	logs, err := a.repo.ListAll(ctx, ActivityParams{
		UserID: userID,
		From:   &window.From,
		To:     &window.To,
	})
	if err != nil {
		return nil, err
	}

	report := &WeeklyReport{
		Period:            window,
		ExerciseBreakdown: []ExerciseBreakdownEntry{},
		DailyBreakdown:    make(map[string]DayBreakdown),
	}

	name2entry := make(map[string]*ExerciseBreakdownEntry)
	var entries []*ExerciseBreakdownEntry

	for _, activityLog := range logs {
		report.Summary.TotalWorkouts++
		report.Summary.TotalSets += activityLog.TotalSets
		report.Summary.TotalReps += activityLog.TotalReps
		report.Summary.TotalVolume += activityLog.TotalVolume
		report.Summary.TotalTime += activityLog.TotalWorkoutTime

		for _, exercise := range activityLog.Exercises {
			entry, ok := name2entry[exercise.Name]
			if !ok {
				entry = &ExerciseBreakdownEntry{
					Name:       exercise.Name,
					ExerciseID: exercise.ExerciseID,
				}
				name2entry[exercise.Name] = entry
				entries = append(entries, entry)
			}
			entry.TotalSets += exercise.TotalSets
			entry.TotalReps += exercise.TotalReps
			entry.TotalVolume += exercise.TotalVolume
			entry.WorkoutCount++
			entry.Sessions = append(entry.Sessions, ExerciseSession{
				Date:           activityLog.CompletedDate,
				Sets:           exercise.Sets,
				ExerciseTotals: exercise.ExerciseTotals,
			})
		}

		day := report.DailyBreakdown[activityLog.Weekday]
		day.Count++
		day.Sets += activityLog.TotalSets
		day.Reps += activityLog.TotalReps
		day.Volume += activityLog.TotalVolume
		day.Time += activityLog.TotalWorkoutTime
		report.DailyBreakdown[activityLog.Weekday] = day
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalVolume > entries[j].TotalVolume
	})
	for _, entry := range entries {
		report.ExerciseBreakdown = append(report.ExerciseBreakdown, *entry)
	}

	return report, nil
}

// ExerciseProgress returns the chronological series of sessions of the
// exercise matching the given name fragment (case-insensitive). A log
// that matched the store filter but holds no exercise containing the
// fragment contributes no point.
func (a *Analyzer) ExerciseProgress(
	ctx context.Context,
	userID int,
	exerciseName string,
	window Window,
) (_ []ProgressPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.activities.exerciseProgress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("exercise.name", exerciseName))

	logs, err := a.repo.ListAll(ctx, ActivityParams{
		UserID:       userID,
		From:         &window.From,
		To:           &window.To,
		NameContains: exerciseName,
	})
	if err != nil {
		return nil, err
	}

	// the repo returns logs newest first, the progress series is chronological
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CompletedDate.Before(logs[j].CompletedDate)
	})

	nameLower := strings.ToLower(exerciseName)
	progress := make([]ProgressPoint, 0, len(logs))
	for _, activityLog := range logs {
		for _, exercise := range activityLog.Exercises {
			if !strings.Contains(strings.ToLower(exercise.Name), nameLower) {
				continue
			}
			progress = append(progress, ProgressPoint{
				Date:         activityLog.CompletedDate,
				RoutineTitle: activityLog.RoutineTitle,
				Sets:         exercise.Sets,
				TotalSets:    exercise.TotalSets,
				TotalReps:    exercise.TotalReps,
				TotalVolume:  exercise.TotalVolume,
				MaxKilos:     exercise.MaxSetKilos(),
				AvgKilos:     exercise.AvgSetKilos(),
			})
			break
		}
	}

	return progress, nil
}

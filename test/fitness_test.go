package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlog/backend/internal/fitness/activities"
	"github.com/fitlog/backend/internal/fitness/catalog"
	"github.com/fitlog/backend/internal/fitness/routines"
)

func (s *IntegrationTestSuite) doAuthedRequest(
	ctx context.Context,
	t *testing.T,
	method, path, token string,
	body any,
) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-FITLOG-TOKEN", token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func unmarshalResponse[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var result T
	require.NoError(t, json.Unmarshal(respBytes, &result), "response: %s", string(respBytes))
	return result
}

var allWeekdays = []string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

func (s *IntegrationTestSuite) TestExerciseCatalog() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the catalog is public, no token needed
	t.Run("list strength exercises", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/exercises?category=strength", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listResponse := unmarshalResponse[catalog.ListResponse](t, resp)
		assert.Equal(t, 2, listResponse.Count)
	})

	t.Run("search by muscle", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/exercises?muscle=chest", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listResponse := unmarshalResponse[catalog.ListResponse](t, resp)
		require.Equal(t, 1, listResponse.Count)
		assert.Equal(t, "barbell-bench-press", listResponse.Exercises[0].ID)
	})

	t.Run("get single exercise", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/exercises/barbell-squat", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		exercise := unmarshalResponse[catalog.Exercise](t, resp)
		assert.Equal(t, "Barbell Squat", exercise.Name)
		assert.Equal(t, []string{"quadriceps"}, exercise.PrimaryMuscles)
		assert.NotEmpty(t, exercise.Instructions)
	})

	t.Run("get unknown exercise", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/exercises/thin-air-press", "", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("categories", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/exercises/categories", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		categoriesResponse := unmarshalResponse[catalog.CategoriesResponse](t, resp)
		assert.Equal(t, []string{"cardio", "strength"}, categoriesResponse.Categories)
	})
}

func (s *IntegrationTestSuite) TestWorkoutFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	username := gofakeit.Username()
	password := gofakeit.Password(true, true, true, false, false, 12)
	doRegister(ctx, t, username, password)
	token := doLogin(ctx, t, username, password)

	t.Run("protected routes require token", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/routines", "", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	// create a routine assigned to every weekday, so the reconciled
	// view below works regardless of when the suite runs
	var routineID int
	t.Run("create routine", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "POST", "/routines", token, routines.WorkoutRoutine{
			Title:       "Push Day",
			Description: "chest and shoulders",
			Weekdays:    allWeekdays,
			Exercises: []routines.RoutineExercise{
				{ExerciseID: "barbell-bench-press", Name: "Barbell Bench Press", TargetSets: 3, TargetReps: 8},
				{ExerciseID: "barbell-squat", Name: "Barbell Squat", TargetSets: 3, TargetReps: 5},
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		addedRoutine := unmarshalResponse[routines.WorkoutRoutine](t, resp)
		require.NotZero(t, addedRoutine.ID)
		assert.True(t, addedRoutine.IsActive)
		assert.Equal(t, 1, addedRoutine.Exercises[1].Order)
		routineID = addedRoutine.ID
	})

	t.Run("create routine, invalid weekday", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "POST", "/routines", token, routines.WorkoutRoutine{
			Title:    "Broken",
			Weekdays: []string{"Someday"},
			Exercises: []routines.RoutineExercise{
				{ExerciseID: "barbell-squat", TargetSets: 3, TargetReps: 5},
			},
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list and get routines", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/routines", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		listResponse := unmarshalResponse[routines.ListResponse](t, resp)
		require.Equal(t, 1, listResponse.Count)

		resp = s.doAuthedRequest(ctx, t, "GET", fmt.Sprintf("/routines/%d", routineID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		routine := unmarshalResponse[routines.WorkoutRoutine](t, resp)
		assert.Equal(t, "Push Day", routine.Title)
		assert.Len(t, routine.Exercises, 2)
	})

	today := time.Now().Weekday().String()

	t.Run("reconciled weekday view, nothing done yet", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/routines/weekday/"+today, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		reconciledResponse := unmarshalResponse[routines.ReconciledListResponse](t, resp)
		require.Equal(t, 1, reconciledResponse.Count)
		for _, exercise := range reconciledResponse.Routines[0].Exercises {
			assert.False(t, exercise.Completed)
		}
	})

	var activityLogID int
	t.Run("complete routine", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "POST", "/activity/complete", token, routines.CompleteRoutineRequest{
			RoutineID: routineID,
			Exercises: []routines.ExerciseCompletion{
				{
					ExerciseID: "barbell-bench-press",
					Name:       "Barbell Bench Press",
					Sets: []activities.Set{
						{Kilos: 60, Reps: 10},
						{Kilos: 70, Reps: 8},
					},
				},
			},
			WorkoutTime: 45,
			Notes:       "felt strong",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		activityLog := unmarshalResponse[activities.ActivityLog](t, resp)
		require.NotZero(t, activityLog.ID)
		assert.Equal(t, routineID, activityLog.RoutineID)
		assert.Equal(t, "Push Day", activityLog.RoutineTitle)
		assert.Equal(t, today, activityLog.Weekday)
		assert.Equal(t, activities.StatusCompleted, activityLog.Status)
		assert.Equal(t, 2, activityLog.TotalSets)
		assert.Equal(t, 18, activityLog.TotalReps)
		assert.Equal(t, 1160.0, activityLog.TotalVolume)
		assert.Equal(t, 45, activityLog.TotalWorkoutTime)
		activityLogID = activityLog.ID
	})

	t.Run("complete unknown routine", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "POST", "/activity/complete", token, routines.CompleteRoutineRequest{
			RoutineID: 987654,
			Exercises: []routines.ExerciseCompletion{
				{ExerciseID: "barbell-squat", Name: "Barbell Squat", Sets: []activities.Set{{Kilos: 100, Reps: 5}}},
			},
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("reconciled weekday view after completion", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/routines/weekday/"+today, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		reconciledResponse := unmarshalResponse[routines.ReconciledListResponse](t, resp)
		require.Equal(t, 1, reconciledResponse.Count)

		exercises := reconciledResponse.Routines[0].Exercises
		require.Len(t, exercises, 2)
		assert.True(t, exercises[0].Completed)  // bench was done
		assert.False(t, exercises[1].Completed) // squat was not
	})

	t.Run("get activity log", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", fmt.Sprintf("/activity/%d", activityLogID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		activityLog := unmarshalResponse[activities.ActivityLog](t, resp)
		assert.Equal(t, "felt strong", activityLog.Notes)
		require.Len(t, activityLog.Exercises, 1)
		assert.Equal(t, 1160.0, activityLog.Exercises[0].TotalVolume)
	})

	t.Run("activity history", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/history/page/1/size/10", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		historyResponse := unmarshalResponse[activities.HistoryResponse](t, resp)
		require.Len(t, historyResponse.Activities, 1)
		assert.Equal(t, 1, historyResponse.Pagination.CurrentPage)
		assert.Equal(t, 1, historyResponse.Pagination.TotalPages)
		assert.Equal(t, 1, historyResponse.Pagination.TotalCount)
		assert.False(t, historyResponse.Pagination.HasNext)
		assert.False(t, historyResponse.Pagination.HasPrev)
	})

	t.Run("activity history, default page and size", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/history", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		historyResponse := unmarshalResponse[activities.HistoryResponse](t, resp)
		require.Len(t, historyResponse.Activities, 1)
		assert.Equal(t, 1, historyResponse.Pagination.CurrentPage)
		assert.Equal(t, 1, historyResponse.Pagination.TotalPages)
	})

	t.Run("activity history, page beyond last", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/history/page/5/size/10", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		historyResponse := unmarshalResponse[activities.HistoryResponse](t, resp)
		assert.Empty(t, historyResponse.Activities)
		assert.Equal(t, 1, historyResponse.Pagination.TotalCount)
	})

	t.Run("weekly report", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/reports/weekly", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		report := unmarshalResponse[activities.WeeklyReport](t, resp)
		assert.Equal(t, 1, report.Summary.TotalWorkouts)
		assert.Equal(t, 1160.0, report.Summary.TotalVolume)
		assert.Equal(t, 45, report.Summary.TotalTime)
		require.Len(t, report.ExerciseBreakdown, 1)
		assert.Equal(t, "Barbell Bench Press", report.ExerciseBreakdown[0].Name)
		require.Contains(t, report.DailyBreakdown, today)
		assert.Equal(t, 1, report.DailyBreakdown[today].Count)
	})

	t.Run("weekly exercise totals", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/exercise-totals/weekly", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		totals := unmarshalResponse[[]activities.ExerciseTotalsGroup](t, resp)
		require.Len(t, totals, 1)
		assert.Equal(t, 1, totals[0].WorkoutCount)
		assert.Equal(t, 70.0, totals[0].MaxKilos)
	})

	t.Run("exercise progress", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/exercise-progress?exerciseName=bench", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		progressResponse := unmarshalResponse[activities.ProgressResponse](t, resp)
		require.Len(t, progressResponse.Progress, 1)
		assert.Equal(t, 70.0, progressResponse.Progress[0].MaxKilos)
		assert.Equal(t, 65.0, progressResponse.Progress[0].AvgKilos)
	})

	t.Run("exercise progress, name required", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "GET", "/activity/exercise-progress", token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("update routine", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "PUT", fmt.Sprintf("/routines/%d", routineID), token, routines.WorkoutRoutine{
			Title:    "Push Day v2",
			Weekdays: []string{"Monday"},
			IsActive: true,
			Exercises: []routines.RoutineExercise{
				{ExerciseID: "barbell-bench-press", Name: "Barbell Bench Press", TargetSets: 5, TargetReps: 5},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updatedRoutine := unmarshalResponse[routines.WorkoutRoutine](t, resp)
		assert.Equal(t, "Push Day v2", updatedRoutine.Title)
	})

	t.Run("delete routine keeps activity history", func(t *testing.T) {
		resp := s.doAuthedRequest(ctx, t, "DELETE", fmt.Sprintf("/routines/%d", routineID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		deleteResponse := unmarshalResponse[routines.DeleteRoutineResponse](t, resp)
		assert.Equal(t, routineID, deleteResponse.DeletedID)

		// activity log snapshot survives the routine
		logResp := s.doAuthedRequest(ctx, t, "GET", fmt.Sprintf("/activity/%d", activityLogID), token, nil)
		require.Equal(t, http.StatusOK, logResp.StatusCode)
		activityLog := unmarshalResponse[activities.ActivityLog](t, logResp)
		assert.Equal(t, "Push Day", activityLog.RoutineTitle)
	})
}

func (s *IntegrationTestSuite) TestUserIsolation() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	usernameOne := gofakeit.Username()
	usernameTwo := gofakeit.Username()
	password := gofakeit.Password(true, true, true, false, false, 12)
	doRegister(ctx, t, usernameOne, password)
	doRegister(ctx, t, usernameTwo, password)
	tokenOne := doLogin(ctx, t, usernameOne, password)
	tokenTwo := doLogin(ctx, t, usernameTwo, password)

	resp := s.doAuthedRequest(ctx, t, "POST", "/routines", tokenOne, routines.WorkoutRoutine{
		Title:    "Private Leg Day",
		Weekdays: allWeekdays,
		Exercises: []routines.RoutineExercise{
			{ExerciseID: "barbell-squat", Name: "Barbell Squat", TargetSets: 3, TargetReps: 5},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	addedRoutine := unmarshalResponse[routines.WorkoutRoutine](t, resp)

	// the other user can not see or complete it
	getResp := s.doAuthedRequest(ctx, t, "GET", fmt.Sprintf("/routines/%d", addedRoutine.ID), tokenTwo, nil)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)

	completeResp := s.doAuthedRequest(ctx, t, "POST", "/activity/complete", tokenTwo, routines.CompleteRoutineRequest{
		RoutineID: addedRoutine.ID,
		Exercises: []routines.ExerciseCompletion{
			{ExerciseID: "barbell-squat", Name: "Barbell Squat", Sets: []activities.Set{{Kilos: 80, Reps: 5}}},
		},
	})
	defer completeResp.Body.Close()
	require.Equal(t, http.StatusNotFound, completeResp.StatusCode)
}

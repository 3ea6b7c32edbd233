package routines

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fitlog/backend/internal/auth"
	"github.com/fitlog/backend/internal/telemetry/metrics"
	"github.com/fitlog/backend/internal/telemetry/tracing"
	"github.com/fitlog/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=routines_test

type routinesRepo interface {
	routinesGetter
	Add(ctx context.Context, routine WorkoutRoutine) (*WorkoutRoutine, error)
	List(ctx context.Context, params RoutineParams) ([]WorkoutRoutine, error)
	Update(ctx context.Context, routine *WorkoutRoutine) error
	Delete(ctx context.Context, id, userID int) error
}

type DeleteRoutineResponse struct {
	DeletedID int `json:"deletedId"`
}

type ListResponse struct {
	Routines []WorkoutRoutine `json:"routines"`
	Count    int              `json:"count"`
}

type ReconciledListResponse struct {
	Routines []ReconciledRoutine `json:"routines"`
	Count    int                 `json:"count"`
}

type Handler struct {
	repo           routinesRepo
	service        *Service
	reconciler     *Reconciler
	metricsManager *metrics.Manager
}

func NewHandler(
	repo routinesRepo,
	service *Service,
	reconciler *Reconciler,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		service:        service,
		reconciler:     reconciler,
		metricsManager: metricsManager,
	}
}

func userIDOrUnauthorized(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.create")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var routine WorkoutRoutine
	if err := json.NewDecoder(r.Body).Decode(&routine); err != nil {
		log.Tracef("new routine, unmarshal json params: %s", err)
		http.Error(w, "add routine failed", http.StatusBadRequest)
		return
	}

	routine.UserID = userID
	routine.IsActive = true
	routine.NormalizeExerciseOrder()
	if err := routine.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedRoutine, err := handler.repo.Add(ctx, routine)
	if err != nil {
		log.Errorf("failed to add new routine [%s]: %s", routine.Title, err)
		http.Error(w, "error, failed to add new routine", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterRoutinesCreated.Inc()

	addedRoutineJson, err := json.Marshal(addedRoutine)
	if err != nil {
		log.Errorf("failed to marshal new routine: %s", err)
		http.Error(w, "error, failed to add new routine", http.StatusInternalServerError)
		return
	}

	log.Debugf("new routine added: %d [%s]", addedRoutine.ID, addedRoutine.Title)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedRoutineJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.list")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	params := RoutineParams{
		UserID:  userID,
		Weekday: r.URL.Query().Get("weekday"),
	}
	if params.Weekday != "" && !IsValidWeekday(params.Weekday) {
		http.Error(w, "invalid weekday", http.StatusBadRequest)
		return
	}
	if activeStr := r.URL.Query().Get("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			http.Error(w, "failed to parse active param", http.StatusBadRequest)
			return
		}
		params.Active = &active
	}

	routines, err := handler.repo.List(ctx, params)
	if err != nil {
		log.Errorf("list routines error: %s", err)
		http.Error(w, "failed to get routines", http.StatusInternalServerError)
		return
	}
	if routines == nil {
		routines = []WorkoutRoutine{}
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Routines: routines,
		Count:    len(routines),
	})
	if err != nil {
		log.Errorf("marshal routines error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	routine, err := handler.repo.Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get routine %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	routineJson, err := json.Marshal(routine)
	if err != nil {
		log.Errorf("failed to marshal routine: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routineJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.update")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	var routine WorkoutRoutine
	if err := json.NewDecoder(r.Body).Decode(&routine); err != nil {
		log.Errorf("update routine, unmarshal json params: %s", err)
		http.Error(w, "update routine failed", http.StatusBadRequest)
		return
	}

	routine.ID = id
	routine.UserID = userID
	routine.NormalizeExerciseOrder()
	if err := routine.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, &routine); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update routine %d: %s", routine.ID, err)
		http.Error(w, "error, failed to update routine", http.StatusInternalServerError)
		return
	}

	routineJson, err := json.Marshal(routine)
	if err != nil {
		log.Errorf("failed to marshal updated routine: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("routine updated: %d [%s]", routine.ID, routine.Title)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routineJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.delete")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete routine %d: %s", id, err)
		http.Error(w, "routine not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteRoutineResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// HandleForWeekday returns the reconciled view of the weekday's
// routines, each exercise flagged with its same-day completion state.
func (handler *Handler) HandleForWeekday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.forWeekday")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	weekday := mux.Vars(r)["weekday"]
	if !IsValidWeekday(weekday) {
		http.Error(w, "invalid weekday", http.StatusBadRequest)
		return
	}

	reconciled, err := handler.reconciler.RoutinesForWeekday(ctx, userID, weekday)
	if err != nil {
		log.Errorf("failed to get routines for weekday [%s]: %s", weekday, err)
		http.Error(w, "failed to get routines", http.StatusInternalServerError)
		return
	}

	reconciledJson, err := json.Marshal(ReconciledListResponse{
		Routines: reconciled,
		Count:    len(reconciled),
	})
	if err != nil {
		log.Errorf("failed to marshal reconciled routines: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, reconciledJson, http.StatusOK)
}

func (handler *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.complete")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req CompleteRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("complete routine, unmarshal json params: %s", err)
		http.Error(w, "complete routine failed", http.StatusBadRequest)
		return
	}

	activityLog, err := handler.service.CompleteRoutine(ctx, userID, req)
	if err != nil {
		var validationErr ErrValidation
		switch {
		case errors.As(err, &validationErr):
			http.Error(w, validationErr.Message, http.StatusBadRequest)
		case errors.Is(err, ErrRoutineNotFound):
			http.Error(w, "routine not found", http.StatusNotFound)
		default:
			log.Errorf("failed to complete routine %d: %s", req.RoutineID, err)
			http.Error(w, "error, failed to complete routine", http.StatusInternalServerError)
		}
		return
	}

	handler.metricsManager.CounterWorkoutsLogged.Inc()

	activityLogJson, err := json.Marshal(activityLog)
	if err != nil {
		log.Errorf("failed to marshal activity log: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("routine %d completed, activity log %d", req.RoutineID, activityLog.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, activityLogJson, http.StatusCreated)
}

package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fitlog/backend/internal/auth"
	"github.com/fitlog/backend/internal/telemetry/tracing"
	"github.com/fitlog/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=activities_mocks_test.go -package=activities_test

type activityRepo interface {
	Add(ctx context.Context, activityLog ActivityLog) (*ActivityLog, error)
	Get(ctx context.Context, id, userID int) (*ActivityLog, error)
	List(ctx context.Context, params ListParams) (_ []ActivityLog, total int, err error)
	ListAll(ctx context.Context, params ActivityParams) ([]ActivityLog, error)
	Count(ctx context.Context, params ActivityParams) (int, error)
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type HistoryResponse struct {
	Activities []ActivityLog `json:"activities"`
	Pagination Pagination    `json:"pagination"`
}

type ProgressResponse struct {
	ExerciseName string          `json:"exerciseName"`
	Period       Window          `json:"period"`
	Progress     []ProgressPoint `json:"progress"`
}

type Handler struct {
	repo     activityRepo
	analyzer *Analyzer
}

func NewHandler(repo activityRepo) *Handler {
	return &Handler{
		repo:     repo,
		analyzer: NewAnalyzer(repo),
	}
}

const (
	dateLayout = "2006-01-02"

	defaultHistoryPage = 1
	defaultHistorySize = 10
)

// parseWindow reads the optional startDate / endDate query parameters
// and resolves them against the given default lookback.
func parseWindow(r *http.Request, defaultSpan time.Duration) (Window, error) {
	var from, to *time.Time
	if startStr := r.URL.Query().Get("startDate"); startStr != "" {
		start, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return Window{}, fmt.Errorf("parameter <startDate>: %w", err)
		}
		from = &start
	}
	if endStr := r.URL.Query().Get("endDate"); endStr != "" {
		end, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return Window{}, fmt.Errorf("parameter <endDate>: %w", err)
		}
		to = &end
	}
	return ResolveWindow(from, to, defaultSpan, time.Now()), nil
}

func userIDOrUnauthorized(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.get")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	activityLog, err := handler.repo.Get(ctx, id, userID)
	if err != nil {
		log.Errorf("failed to get activity log %d: %s", id, err)
		http.Error(w, "activity log not found", http.StatusNotFound)
		return
	}

	logJson, err := json.Marshal(activityLog)
	if err != nil {
		log.Errorf("failed to marshal activity log: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, logJson, http.StatusOK)
}

func (handler *Handler) HandleWeeklyExerciseTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.weeklyTotals")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	window, err := parseWindow(r, DefaultWeeklyWindow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	totals, err := handler.analyzer.WeeklyExerciseTotals(
		ctx, userID, window, r.URL.Query().Get("exerciseName"),
	)
	if err != nil {
		log.Errorf("failed to get weekly exercise totals: %s", err)
		http.Error(w, "failed to get weekly exercise totals", http.StatusInternalServerError)
		return
	}

	totalsJson, err := json.Marshal(totals)
	if err != nil {
		log.Errorf("failed to marshal weekly exercise totals: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, totalsJson, http.StatusOK)
}

func (handler *Handler) HandleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.weeklyReport")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	window, err := parseWindow(r, DefaultWeeklyWindow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := handler.analyzer.Report(ctx, userID, window)
	if err != nil {
		log.Errorf("failed to build weekly report: %s", err)
		http.Error(w, "failed to build weekly report", http.StatusInternalServerError)
		return
	}

	reportJson, err := json.Marshal(report)
	if err != nil {
		log.Errorf("failed to marshal weekly report: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, reportJson, http.StatusOK)
}

func (handler *Handler) HandleExerciseProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.exerciseProgress")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	exerciseName := r.URL.Query().Get("exerciseName")
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	window, err := parseWindow(r, DefaultProgressWindow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	progress, err := handler.analyzer.ExerciseProgress(ctx, userID, exerciseName, window)
	if err != nil {
		log.Errorf("failed to get exercise progress [%s]: %s", exerciseName, err)
		http.Error(w, "failed to get exercise progress", http.StatusInternalServerError)
		return
	}

	progressJson, err := json.Marshal(ProgressResponse{
		ExerciseName: exerciseName,
		Period:       window,
		Progress:     progress,
	})
	if err != nil {
		log.Errorf("failed to marshal exercise progress: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, progressJson, http.StatusOK)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.history")
	defer span.End()

	userID, ok := userIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	// page and size default when the bare history route is hit
	vars := mux.Vars(r)
	page, size := defaultHistoryPage, defaultHistorySize
	if pageStr := vars["page"]; pageStr != "" {
		var err error
		page, err = strconv.Atoi(pageStr)
		if err != nil {
			log.Tracef("handle activity history, from <page> param: %s", err)
			http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
			return
		}
	}
	if sizeStr := vars["size"]; sizeStr != "" {
		var err error
		size, err = strconv.Atoi(sizeStr)
		if err != nil {
			log.Tracef("handle activity history, from <size> param: %s", err)
			http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
			return
		}
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	var from, to *time.Time
	if startStr := r.URL.Query().Get("startDate"); startStr != "" {
		start, err := time.Parse(dateLayout, startStr)
		if err != nil {
			http.Error(w, "parse form error, parameter <startDate>", http.StatusBadRequest)
			return
		}
		from = &start
	}
	if endStr := r.URL.Query().Get("endDate"); endStr != "" {
		end, err := time.Parse(dateLayout, endStr)
		if err != nil {
			http.Error(w, "parse form error, parameter <endDate>", http.StatusBadRequest)
			return
		}
		to = &end
	}

	activityLogs, total, err := handler.repo.List(ctx, ListParams{
		ActivityParams: ActivityParams{
			UserID: userID,
			From:   from,
			To:     to,
			Status: status,
		},
		Page: page,
		Size: size,
	})
	if err != nil {
		log.Errorf("list activity history error: %s", err)
		http.Error(w, "failed to get activity history", http.StatusInternalServerError)
		return
	}

	if activityLogs == nil {
		activityLogs = []ActivityLog{}
	}

	totalPages := int(math.Ceil(float64(total) / float64(size)))
	historyResponse := HistoryResponse{
		Activities: activityLogs,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  total,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}

	historyJson, err := json.Marshal(historyResponse)
	if err != nil {
		log.Errorf("marshal activity history error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, historyJson, http.StatusOK)
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fitlog/backend/internal/telemetry/tracing"
	"github.com/fitlog/backend/pkg"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=catalog_mocks_test.go -package=catalog_test

type exercisesRepo interface {
	Get(ctx context.Context, id string) (*Exercise, error)
	List(ctx context.Context, params ExerciseParams) ([]Exercise, error)
	Categories(ctx context.Context) ([]string, error)
}

type ListResponse struct {
	Exercises []Exercise `json:"exercises"`
	Count     int        `json:"count"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Count      int      `json:"count"`
}

const (
	oneHour              = 60 * 60
	catalogCacheExpire   = oneHour * 12 // catalog data barely ever changes
	categoriesCacheKey   = "categories"
	catalogCacheMegabyte = 1024 * 1024
)

// Handler serves the exercise catalog. Responses are cached as
// serialized bytes, the catalog is immutable reference data.
type Handler struct {
	repo  exercisesRepo
	cache *freecache.Cache
}

func NewHandler(repo exercisesRepo) *Handler {
	return &Handler{
		repo:  repo,
		cache: freecache.NewCache(10 * catalogCacheMegabyte),
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.list")
	defer span.End()

	params := ExerciseParams{
		Category: r.URL.Query().Get("category"),
		Muscle:   r.URL.Query().Get("muscle"),
		Search:   r.URL.Query().Get("search"),
	}

	cacheKey := fmt.Sprintf("list::%s::%s::%s", params.Category, params.Muscle, params.Search)
	if cachedBytes, err := handler.cache.Get([]byte(cacheKey)); err == nil {
		log.Tracef("exercises list [%s] served from cache", cacheKey)
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cachedBytes)
		return
	}

	exercises, err := handler.repo.List(ctx, params)
	if err != nil {
		log.Errorf("list catalog exercises error: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}
	if exercises == nil {
		exercises = []Exercise{}
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Exercises: exercises,
		Count:     len(exercises),
	})
	if err != nil {
		log.Errorf("marshal catalog exercises error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set([]byte(cacheKey), listResponseJson, catalogCacheExpire); err != nil {
		log.Errorf("failed to cache exercises list [%s]: %s", cacheKey, err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	exercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get catalog exercise %s: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal catalog exercise: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusOK)
}

func (handler *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.categories")
	defer span.End()

	if cachedBytes, err := handler.cache.Get([]byte(categoriesCacheKey)); err == nil {
		log.Trace("exercise categories served from cache")
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cachedBytes)
		return
	}

	categories, err := handler.repo.Categories(ctx)
	if err != nil {
		log.Errorf("list exercise categories error: %s", err)
		http.Error(w, "failed to get categories", http.StatusInternalServerError)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	categoriesJson, err := json.Marshal(CategoriesResponse{
		Categories: categories,
		Count:      len(categories),
	})
	if err != nil {
		log.Errorf("marshal exercise categories error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set([]byte(categoriesCacheKey), categoriesJson, catalogCacheExpire); err != nil {
		log.Errorf("failed to cache exercise categories: %s", err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, categoriesJson, http.StatusOK)
}

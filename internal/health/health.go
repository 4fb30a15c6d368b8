package health

import (
	"context"
	"net/http"
	"time"

	httputil "github.com/Maghvendra09/appointment-booking/pkg/http"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const readyTimeout = 2 * time.Second

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Dependency is a backing service that must answer before the process
// reports ready.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

func MongoDependency(client *mongo.Client) Dependency {
	return Dependency{
		Name: "mongo",
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	}
}

func RedisDependency(client *redis.Client) Dependency {
	return Dependency{
		Name: "redis",
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

type HealthHandler struct {
	dependencies []Dependency
	log          *logger.Logger
}

func NewHealthHandler(log *logger.Logger, dependencies ...Dependency) *HealthHandler {
	return &HealthHandler{
		dependencies: dependencies,
		log:          log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	response := HealthResponse{
		Status:       "ready",
		Dependencies: make(map[string]string, len(h.dependencies)),
	}

	for _, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", dep.Name,
				"error", err,
				"path", r.URL.Path,
			)
			response.Dependencies[dep.Name] = "error"
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Dependencies[dep.Name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, response); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

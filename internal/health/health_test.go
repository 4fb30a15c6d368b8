package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Maghvendra09/appointment-booking/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(deps ...Dependency) *httprouter.Router {
	router := httprouter.New()
	NewHealthHandler(logger.Discard(), deps...).RegisterRoutes(router)
	return router
}

func okDep(name string) Dependency {
	return Dependency{Name: name, Ping: func(context.Context) error { return nil }}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name:       "all dependencies up",
			deps:       []Dependency{okDep("mongo"), okDep("redis")},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"mongo": "ok", "redis": "ok"},
		},
		{
			name: "redis down",
			deps: []Dependency{
				okDep("mongo"),
				{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"mongo": "ok", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(tt.deps...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDeps, body.Dependencies)
		})
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Maghvendra09/appointment-booking/pkg/auth"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	httputil "github.com/Maghvendra09/appointment-booking/pkg/http"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSlotService struct {
	listAvailableFunc func(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, int64, error)
	getByIDFunc       func(ctx context.Context, id string) (*model.Slot, error)
	importFunc        func(ctx context.Context, req *model.SlotImport) ([]*model.Slot, error)
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockSlotService) ListAvailable(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, int64, error) {
	return m.listAvailableFunc(ctx, from, to, limit, offset)
}

func (m *mockSlotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockSlotService) Import(ctx context.Context, req *model.SlotImport) ([]*model.Slot, error) {
	return m.importFunc(ctx, req)
}

func (m *mockSlotService) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func newRouter(svc *mockSlotService) *httprouter.Router {
	router := httprouter.New()
	NewSlotHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func asRole(req *http.Request, role string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "caller", Role: role}))
}

func TestListAvailable_RequiresDates(t *testing.T) {
	router := newRouter(&mockSlotService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil), auth.RolePatient))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeMissingDates, body.Code)
}

func TestListAvailable_Paginated(t *testing.T) {
	svc := &mockSlotService{
		listAvailableFunc: func(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.Slot, int64, error) {
			assert.Equal(t, 5, limit)
			return []*model.Slot{{ID: "s1", StartTime: from}}, 7, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?from=2025-03-10&to=2025-03-11&limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(req, auth.RolePatient))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data       []model.Slot `json:"data"`
		TotalCount int64        `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.TotalCount)
	assert.Len(t, body.Data, 1)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := &mockSlotService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Slot, error) {
			return nil, apperrors.SlotNotFound(id)
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodGet, "/api/v1/slots/id/abc", nil), auth.RolePatient))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeSlotNotFound)
}

func TestImport_AdminOnly(t *testing.T) {
	imported := false
	svc := &mockSlotService{
		importFunc: func(ctx context.Context, req *model.SlotImport) ([]*model.Slot, error) {
			imported = true
			return []*model.Slot{{ID: "s1"}}, nil
		},
	}
	router := newRouter(svc)
	body := `{"slots":[{"start_time":"2025-03-10T09:00:00Z","end_time":"2025-03-10T09:30:00Z"}]}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodPost, "/api/v1/slots", strings.NewReader(body)), auth.RolePatient))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, imported)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodPost, "/api/v1/slots", strings.NewReader(body)), auth.RoleAdmin))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, imported)
}

func TestDelete_BookedSlot(t *testing.T) {
	svc := &mockSlotService{
		deleteFunc: func(ctx context.Context, id string) error {
			return apperrors.SlotAlreadyBooked(id)
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodDelete, "/api/v1/slots/id/abc", nil), auth.RoleAdmin))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

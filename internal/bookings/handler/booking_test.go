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

type mockBookingService struct {
	claimFunc    func(ctx context.Context, slotID, userID string) (*model.Booking, error)
	releaseFunc  func(ctx context.Context, bookingID, userID string) (*model.Booking, error)
	listMineFunc func(ctx context.Context, userID string) ([]*model.Booking, error)
	listAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
}

func (m *mockBookingService) Claim(ctx context.Context, slotID, userID string) (*model.Booking, error) {
	return m.claimFunc(ctx, slotID, userID)
}

func (m *mockBookingService) Release(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
	return m.releaseFunc(ctx, bookingID, userID)
}

func (m *mockBookingService) ListMine(ctx context.Context, userID string) ([]*model.Booking, error) {
	return m.listMineFunc(ctx, userID)
}

func (m *mockBookingService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listAllFunc(ctx, limit, offset)
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func as(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID, Role: role}))
}

func TestClaim_Created(t *testing.T) {
	svc := &mockBookingService{
		claimFunc: func(ctx context.Context, slotID, userID string) (*model.Booking, error) {
			assert.Equal(t, "65f1c2a9e4b0a1b2c3d4e5f6", slotID)
			assert.Equal(t, "user-a", userID)
			return &model.Booking{ID: "b1", SlotID: slotID, UserID: userID, Status: model.BookingConfirmed}, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"65f1c2a9e4b0a1b2c3d4e5f6"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, "user-a", auth.RolePatient))

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.BookingConfirmed, body.Data.Status)
}

func TestClaim_Conflict(t *testing.T) {
	svc := &mockBookingService{
		claimFunc: func(ctx context.Context, slotID, userID string) (*model.Booking, error) {
			return nil, apperrors.SlotAlreadyBooked(slotID)
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"65f1c2a9e4b0a1b2c3d4e5f6"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, "user-b", auth.RolePatient))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeSlotAlreadyBooked, body.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestClaim_WriteConflictIsRetryable(t *testing.T) {
	svc := &mockBookingService{
		claimFunc: func(ctx context.Context, slotID, userID string) (*model.Booking, error) {
			return nil, apperrors.Transient(apperrors.CodeWriteConflict, "The slot is busy, please try again", nil)
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"65f1c2a9e4b0a1b2c3d4e5f6"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, "user-b", auth.RolePatient))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), apperrors.CodeWriteConflict)
}

func TestClaim_BadBody(t *testing.T) {
	router := newRouter(&mockBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(req, "user-a", auth.RolePatient))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaim_Unauthenticated(t *testing.T) {
	router := newRouter(&mockBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"slot_id":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancel(t *testing.T) {
	svc := &mockBookingService{
		releaseFunc: func(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
			if bookingID != "b1" {
				return nil, apperrors.BookingNotFound(bookingID)
			}
			return &model.Booking{ID: bookingID, UserID: userID, Status: model.BookingCancelled}, nil
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPut, "/api/v1/bookings/id/b1/cancel", nil), "user-a", auth.RolePatient))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.BookingCancelled)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPut, "/api/v1/bookings/id/b2/cancel", nil), "user-a", auth.RolePatient))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeBookingNotFound)
}

func TestListMine(t *testing.T) {
	svc := &mockBookingService{
		listMineFunc: func(ctx context.Context, userID string) ([]*model.Booking, error) {
			start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
			return []*model.Booking{{
				ID:     "b1",
				UserID: userID,
				Slot:   &model.SlotWindow{StartTime: start, EndTime: start.Add(30 * time.Minute)},
			}}, nil
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil), "user-a", auth.RolePatient))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-a"`)
	assert.Contains(t, rec.Body.String(), `"slot":{"start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T09:30:00Z"}`)
}

func TestListAll_AdminOnly(t *testing.T) {
	svc := &mockBookingService{
		listAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
			assert.Equal(t, 2, limit)
			assert.Equal(t, int64(4), offset)
			return []*model.Booking{{ID: "b1"}}, 5, nil
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=2&offset=4", nil), "user-a", auth.RolePatient))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=2&offset=4", nil), "admin-1", auth.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)

	var body httputil.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body.TotalCount)
	assert.Equal(t, 2, body.Limit)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Maghvendra09/appointment-booking/internal/bookings/service"
	"github.com/Maghvendra09/appointment-booking/pkg/auth"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	httputil "github.com/Maghvendra09/appointment-booking/pkg/http"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/middleware"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Claim(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, "Claim", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req model.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Claim", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.Claim(r.Context(), req.SlotID, identity.UserID)
	if err != nil {
		h.writeError(w, "Claim", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Claim", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, "Cancel", apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, err := h.service.Release(r.Context(), ps.ByName("id"), identity.UserID)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, "ListMine", apperrors.Unauthorized("Authentication required"))
		return
	}

	bookings, err := h.service.ListMine(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	bookings, total, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Claim)
	router.PUT("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/bookings/mine", h.ListMine)
	router.GET("/api/v1/bookings", middleware.RequireRole(auth.RoleAdmin, h.ListAll))
}

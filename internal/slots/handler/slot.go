package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Maghvendra09/appointment-booking/internal/slots/service"
	"github.com/Maghvendra09/appointment-booking/pkg/auth"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	httputil "github.com/Maghvendra09/appointment-booking/pkg/http"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/middleware"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

func (h *SlotHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, to, err := httputil.ExtractTimeRange(r)
	if err != nil {
		h.writeError(w, "ListAvailable", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAvailable", err)
		return
	}

	slots, total, err := h.service.ListAvailable(r.Context(), from, to, limit, offset)
	if err != nil {
		h.writeError(w, "ListAvailable", err)
		return
	}

	if err := httputil.WritePaginated(w, slots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAvailable", "operation", "WritePaginated", "error", err)
	}
}

func (h *SlotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Import(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SlotImport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Import", apperrors.InvalidInput("Invalid request body"))
		return
	}

	slots, err := h.service.Import(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Import", err)
		return
	}

	if err := httputil.WriteCreated(w, slots); err != nil {
		h.log.Error("failed to write created response", "handler", "Import", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots", h.ListAvailable)
	router.GET("/api/v1/slots/id/:id", h.GetByID)
	router.POST("/api/v1/slots", middleware.RequireRole(auth.RoleAdmin, h.Import))
	router.DELETE("/api/v1/slots/id/:id", middleware.RequireRole(auth.RoleAdmin, h.Delete))
}

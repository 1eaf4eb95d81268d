package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/service"
)

// SessionHandler handles list session HTTP requests: checkbox toggles and
// the bulk actions over the selected rows
type SessionHandler struct {
	listService     service.ListService
	dispatchService service.DispatchService
	logger          *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	listService service.ListService,
	dispatchService service.DispatchService,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		listService:     listService,
		dispatchService: dispatchService,
		logger:          logger,
	}
}

// OpenSession handles POST /sessions. An empty body opens an unfiltered session.
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req service.OpenSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	view, err := h.listService.Open(r.Context(), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, view)
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.listService.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, view)
}

// CloseSession handles DELETE /sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.listService.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetSelectAll handles PUT /sessions/{id}/select-all
func (h *SessionHandler) SetSelectAll(w http.ResponseWriter, r *http.Request) {
	var req service.SetSelectedRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	view, err := h.listService.SetSelectAll(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, view)
}

// SetRowSelected handles PUT /sessions/{id}/rows/{index}
func (h *SessionHandler) SetRowSelected(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeInvalidInput, "Row index must be an integer")
		return
	}

	var req service.SetSelectedRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	view, err := h.listService.SetRowSelected(r.Context(), chi.URLParam(r, "id"), index, &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, view)
}

// DeleteSelected handles POST /sessions/{id}/delete-selected
func (h *SessionHandler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	result, err := h.listService.DeleteSelected(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// SendSelected handles POST /sessions/{id}/send-selected
func (h *SessionHandler) SendSelected(w http.ResponseWriter, r *http.Request) {
	var req service.SendSelectedRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	result, err := h.dispatchService.SendSelected(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondAccepted(w, result)
}

// decodeJSON decodes the request body into v. allowEmpty accepts a missing body.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

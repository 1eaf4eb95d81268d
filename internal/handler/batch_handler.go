package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/service"
)

// BatchHandler handles send batch HTTP requests
type BatchHandler struct {
	dispatchService service.DispatchService
	logger          *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(dispatchService service.DispatchService, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{
		dispatchService: dispatchService,
		logger:          logger,
	}
}

// GetBatch handles GET /batches/{id}
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.dispatchService.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, batch)
}

// ListMessages handles GET /batches/{id}/messages
func (h *BatchHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	filter := models.OutboundMessageFilter{
		BatchID:  chi.URLParam(r, "id"),
		Status:   query.Get("status"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.dispatchService.ListMessages(r.Context(), filter)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// ListProviders handles GET /providers
func (h *BatchHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string][]string{"providers": h.dispatchService.Providers()})
}

package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/service"
)

// CustomerHandler handles customer HTTP requests
type CustomerHandler struct {
	customerService service.CustomerService
	maxImportSize   int64
	logger          *slog.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService service.CustomerService, maxImportSize int64, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		maxImportSize:   maxImportSize,
		logger:          logger,
	}
}

// Import handles POST /customers/import.
// Accepts a raw text/csv body or a multipart form with a "file" part.
func (h *CustomerHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportSize)

	body, closeFn, err := h.importBody(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Import file exceeds the size limit")
			return
		}
		respondError(w, http.StatusBadRequest, models.CodeInvalidInput, err.Error())
		return
	}
	defer closeFn()

	result, err := h.customerService.ImportCSV(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Import file exceeds the size limit")
			return
		}
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, result)
}

func (h *CustomerHandler) importBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, errors.New("multipart upload must include a \"file\" part")
		}
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

// ListCustomers handles GET /customers
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	filter := models.CustomerFilter{
		Name:     query.Get("name"),
		Phone:    query.Get("phone"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.customerService.List(r.Context(), filter)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// GetCustomer handles GET /customers/{id}
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customerService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, customer)
}

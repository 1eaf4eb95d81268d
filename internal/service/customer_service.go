package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
	"github.com/Raymond9734/bulk-sms-sender/internal/repository"
)

const maxImportRows = 50000

// Header aliases accepted by ImportCSV
var importColumns = map[string]string{
	"id":           "id",
	"customer_id":  "id",
	"name":         "name",
	"full_name":    "name",
	"phone":        "phone",
	"phone_number": "phone",
	"mobile":       "phone",
}

// CustomerService handles customer business logic
type CustomerService interface {
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	List(ctx context.Context, filter models.CustomerFilter) (*CustomerListResult, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	logger       *slog.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(
	customerRepo repository.CustomerRepository,
	logger *slog.Logger,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// ImportCSV reads a customer list with a header row and upserts every valid
// row in one transaction. Invalid rows are reported, not fatal.
func (s *customerService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.ErrInvalidInput("file is empty")
	}
	if err != nil {
		return nil, readError("invalid CSV header", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Rejected: []ImportRowError{}}
	customers := []*models.Customer{}
	seen := map[string]int{}

	// Row numbers are 1-based and count the header
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("failed to read import: %w", err)
			}
			result.Rejected = append(result.Rejected, ImportRowError{Row: row, Message: err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}
		if len(customers) >= maxImportRows {
			return nil, models.ErrInvalidInput(fmt.Sprintf("file has more than %d rows", maxImportRows))
		}

		customer := &models.Customer{
			ID:    strings.TrimSpace(field(record, cols["id"])),
			Name:  strings.TrimSpace(field(record, cols["name"])),
			Phone: models.NormalizePhone(field(record, cols["phone"])),
		}

		if err := customer.Validate(); err != nil {
			result.Rejected = append(result.Rejected, ImportRowError{Row: row, Message: err.Error()})
			continue
		}

		if customer.ID == "" {
			customer.ID = uuid.NewString()
		}
		if first, dup := seen[customer.ID]; dup {
			result.Rejected = append(result.Rejected, ImportRowError{
				Row:     row,
				Message: fmt.Sprintf("duplicate id %s (first seen on row %d)", customer.ID, first),
			})
			continue
		}
		seen[customer.ID] = row

		customers = append(customers, customer)
	}

	if err := s.customerRepo.UpsertBatch(ctx, customers); err != nil {
		s.logger.Error("failed to import customers",
			slog.Int("rows", len(customers)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to import customers: %w", err)
	}

	result.Imported = len(customers)

	s.logger.Info("customers imported",
		slog.Int("imported", result.Imported),
		slog.Int("rejected", len(result.Rejected)),
	)

	return result, nil
}

// GetByID retrieves a customer by ID
func (s *customerService) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

// List retrieves customers with pagination
func (s *customerService) List(ctx context.Context, filter models.CustomerFilter) (*CustomerListResult, error) {
	customers, totalCount, err := s.customerRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	return &CustomerListResult{
		Data:       customers,
		Pagination: models.NewPaginationResult(filter.Page, filter.PageSize, totalCount),
	}, nil
}

// mapColumns resolves header names to column positions; -1 means absent
// readError reports malformed CSV as INVALID_INPUT and passes I/O failures through
func readError(msg string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return models.ErrInvalidInput(fmt.Sprintf("%s: %v", msg, err))
	}
	return fmt.Errorf("failed to read import: %w", err)
}

func mapColumns(header []string) (map[string]int, error) {
	cols := map[string]int{"id": -1, "name": -1, "phone": -1}

	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		h = strings.ReplaceAll(h, " ", "_")
		if name, ok := importColumns[h]; ok && cols[name] == -1 {
			cols[name] = i
		}
	}

	if cols["phone"] == -1 {
		return nil, models.ErrInvalidInput("CSV header must include a phone column")
	}

	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

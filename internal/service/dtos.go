package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct tag validation and reports the first failure as INVALID_INPUT
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return models.ErrInvalidInput(fmt.Sprintf("%s is required", field))
		case "max":
			return models.ErrInvalidInput(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			return models.ErrInvalidInput(fmt.Sprintf("%s is invalid", field))
		}
	}

	return models.ErrInvalidInput(err.Error())
}

// OpenSessionRequest represents a request to open a list session
type OpenSessionRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Phone string `json:"phone" validate:"max=32"`
}

// Validate performs validation on the open session request
func (r *OpenSessionRequest) Validate() error {
	return validateStruct(r)
}

// SetSelectedRequest carries a checkbox toggle
type SetSelectedRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

// Validate performs validation on the toggle request
func (r *SetSelectedRequest) Validate() error {
	return validateStruct(r)
}

// SendSelectedRequest represents a request to send SMS to the selected rows
type SendSelectedRequest struct {
	Provider string `json:"provider" validate:"required,max=64"`
	Template string `json:"template" validate:"required,max=1600"`
}

// Validate performs validation on the send request
func (r *SendSelectedRequest) Validate() error {
	return validateStruct(r)
}

// ImportRowError describes one rejected CSV row
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult represents the outcome of a customer import
type ImportResult struct {
	Imported int              `json:"imported"`
	Rejected []ImportRowError `json:"rejected"`
}

// RowView is one rendered row of the customer table
type RowView struct {
	Index    int             `json:"index"`
	Customer models.Customer `json:"customer"`
	Selected bool            `json:"selected"`
	Checked  bool            `json:"checked"`
}

// SessionView is the render boundary of a list session
type SessionView struct {
	ID              string    `json:"id"`
	Revision        int64     `json:"revision"`
	SelectAll       bool      `json:"select_all"`
	Rows            []RowView `json:"rows"`
	SelectedIndices []int     `json:"selected_indices"`
	CreatedAt       time.Time `json:"created_at"`
}

// DeleteSelectedResult represents the outcome of a bulk delete
type DeleteSelectedResult struct {
	Deleted int64        `json:"deleted"`
	Session *SessionView `json:"session"`
}

// SendSelectedResult represents the outcome of a bulk send
type SendSelectedResult struct {
	BatchID        string `json:"batch_id"`
	MessagesQueued int    `json:"messages_queued"`
	MessagesFailed int    `json:"messages_failed"`
	Status         string `json:"status"`
}

// CustomerListResult represents paginated customer list results
type CustomerListResult struct {
	Data       []*models.Customer      `json:"data"`
	Pagination models.PaginationResult `json:"pagination"`
}

// MessageListResult represents paginated outbound message results
type MessageListResult struct {
	Data       []*models.OutboundMessage `json:"data"`
	Pagination models.PaginationResult   `json:"pagination"`
}

package models

import "time"

// Outbound message status constants
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// OutboundMessage represents an SMS to be sent to one customer
type OutboundMessage struct {
	ID              int64     `json:"id"`
	BatchID         string    `json:"batch_id"`
	CustomerID      string    `json:"customer_id"`
	Phone           string    `json:"phone"`
	Provider        string    `json:"provider"`
	Status          string    `json:"status"`
	RenderedContent string    `json:"rendered_content"`
	LastError       *string   `json:"last_error,omitempty"`
	RetryCount      int       `json:"retry_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OutboundMessageFilter holds filtering options for listing messages
type OutboundMessageFilter struct {
	BatchID  string
	Status   string
	Page     int
	PageSize int
}

// MessageJob represents a job to be queued for processing
type MessageJob struct {
	OutboundMessageID int64 `json:"outbound_message_id"`
	Attempt           int   `json:"attempt,omitempty"`
}

// IsValidMessageStatus checks if the message status is valid
func IsValidMessageStatus(status string) bool {
	switch status {
	case MessageStatusPending, MessageStatusSent, MessageStatusFailed:
		return true
	default:
		return false
	}
}

// CanRetry reports whether another attempt is allowed after a failure.
// retryCount is the number of failed attempts so far.
func CanRetry(retryCount, maxRetries int) bool {
	return retryCount < maxRetries
}

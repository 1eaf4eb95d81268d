package models

import "time"

// Batch status constants
const (
	BatchStatusQueued  = "queued"
	BatchStatusSending = "sending"
	BatchStatusSent    = "sent"
	BatchStatusFailed  = "failed"
)

// Batch is one bulk send over the selected rows of a list session
type Batch struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Provider  string    `json:"provider"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BatchStats holds delivery counts for a batch
type BatchStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
}

// BatchWithStats combines batch details with statistics
type BatchWithStats struct {
	Batch
	Stats BatchStats `json:"stats"`
}

// IsValidBatchStatus checks if the batch status is valid
func IsValidBatchStatus(status string) bool {
	switch status {
	case BatchStatusQueued, BatchStatusSending, BatchStatusSent, BatchStatusFailed:
		return true
	default:
		return false
	}
}

// FinalStatus derives the terminal batch status from its stats.
// It returns "" while messages are still pending.
func (s BatchStats) FinalStatus() string {
	if s.Pending > 0 {
		return ""
	}
	if s.Failed > 0 && s.Sent == 0 {
		return BatchStatusFailed
	}
	return BatchStatusSent
}

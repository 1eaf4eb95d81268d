package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

// OutboundMessageRepository defines the interface for outbound message data access
type OutboundMessageRepository interface {
	GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error)
	List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error)
	UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error
	RecordFailure(ctx context.Context, id int64, lastError string) (int, error)
}

// outboundMessageRepository implements OutboundMessageRepository using PostgreSQL
type outboundMessageRepository struct {
	db *sql.DB
}

// NewOutboundMessageRepository creates a new outbound message repository
func NewOutboundMessageRepository(db *sql.DB) OutboundMessageRepository {
	return &outboundMessageRepository{db: db}
}

const messageColumns = `id, batch_id, customer_id, phone, provider, status, rendered_content, last_error, retry_count, created_at, updated_at`

func scanMessage(row interface{ Scan(...interface{}) error }, message *models.OutboundMessage) error {
	return row.Scan(
		&message.ID,
		&message.BatchID,
		&message.CustomerID,
		&message.Phone,
		&message.Provider,
		&message.Status,
		&message.RenderedContent,
		&message.LastError,
		&message.RetryCount,
		&message.CreatedAt,
		&message.UpdatedAt,
	)
}

// GetByID retrieves an outbound message by ID
func (r *outboundMessageRepository) GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM outbound_messages WHERE id = $1`

	message := &models.OutboundMessage{}
	err := scanMessage(r.db.QueryRowContext(ctx, query, id), message)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbound message: %w", err)
	}

	return message, nil
}

// List retrieves outbound messages with pagination and filtering
func (r *outboundMessageRepository) List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error) {
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		where += fmt.Sprintf(" AND batch_id = $%d", len(args))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var totalCount int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbound_messages`+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count outbound messages: %w", err)
	}

	offset := models.CalculateOffset(filter.Page, filter.PageSize)
	query := `SELECT ` + messageColumns + ` FROM outbound_messages` + where +
		fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list outbound messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.OutboundMessage{}
	for rows.Next() {
		message := &models.OutboundMessage{}
		if err := scanMessage(rows, message); err != nil {
			return nil, 0, fmt.Errorf("failed to scan outbound message: %w", err)
		}
		messages = append(messages, message)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating outbound messages: %w", err)
	}

	return messages, totalCount, nil
}

// UpdateStatus updates the status and error message of an outbound message
func (r *outboundMessageRepository) UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error {
	query := `
		UPDATE outbound_messages
		SET status = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to update outbound message status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}

	return nil
}

// RecordFailure increments the retry count, stores the error and returns
// the new retry count. The status is left untouched.
func (r *outboundMessageRepository) RecordFailure(ctx context.Context, id int64, lastError string) (int, error) {
	query := `
		UPDATE outbound_messages
		SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING retry_count`

	var retryCount int
	err := r.db.QueryRowContext(ctx, query, lastError, id).Scan(&retryCount)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to record failure: %w", err)
	}

	return retryCount, nil
}

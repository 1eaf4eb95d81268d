package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

// BatchRepository defines the interface for bulk send data access
type BatchRepository interface {
	CreateWithMessages(ctx context.Context, batch *models.Batch, messages []*models.OutboundMessage) error
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	GetWithStats(ctx context.Context, id string) (*models.BatchWithStats, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

// batchRepository implements BatchRepository using PostgreSQL
type batchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *sql.DB) BatchRepository {
	return &batchRepository{db: db}
}

// CreateWithMessages inserts the batch and all of its messages atomically.
// Message IDs and timestamps are filled in on success.
func (r *batchRepository) CreateWithMessages(ctx context.Context, batch *models.Batch, messages []*models.OutboundMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO batches (id, session_id, provider, template, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		batch.ID, batch.SessionID, batch.Provider, batch.Template, batch.Status,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outbound_messages (batch_id, customer_id, phone, provider, status, rendered_content, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, message := range messages {
		message.BatchID = batch.ID
		err := stmt.QueryRowContext(
			ctx,
			message.BatchID,
			message.CustomerID,
			message.Phone,
			message.Provider,
			message.Status,
			message.RenderedContent,
			message.RetryCount,
		).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by ID
func (r *batchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	query := `
		SELECT id, session_id, provider, template, status, created_at, updated_at
		FROM batches
		WHERE id = $1`

	batch := &models.Batch{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&batch.ID,
		&batch.SessionID,
		&batch.Provider,
		&batch.Template,
		&batch.Status,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("batch with ID %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return batch, nil
}

// GetWithStats retrieves a batch with message delivery counts
func (r *batchRepository) GetWithStats(ctx context.Context, id string) (*models.BatchWithStats, error) {
	batch, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	statsQuery := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed
		FROM outbound_messages
		WHERE batch_id = $1`

	var stats models.BatchStats
	err = r.db.QueryRowContext(ctx, statsQuery, id).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Sent,
		&stats.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch stats: %w", err)
	}

	return &models.BatchWithStats{
		Batch: *batch,
		Stats: stats,
	}, nil
}

// UpdateStatus updates only the status of a batch
func (r *batchRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `
		UPDATE batches
		SET status = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("batch with ID %s not found", id))
	}

	return nil
}

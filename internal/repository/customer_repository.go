package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	UpsertBatch(ctx context.Context, customers []*models.Customer) error
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, int64, error)
	ListAll(ctx context.Context, filter models.CustomerFilter, limit int) ([]*models.Customer, error)
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
}

// customerRepository implements CustomerRepository using PostgreSQL
type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// UpsertBatch inserts or updates customers in a single transaction.
// Customers keep their original list position when updated.
func (r *customerRepository) UpsertBatch(ctx context.Context, customers []*models.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (id, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, customer := range customers {
		if _, err := stmt.ExecContext(ctx, customer.ID, customer.Name, customer.Phone); err != nil {
			return fmt.Errorf("failed to upsert customer %s: %w", customer.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a customer by ID
func (r *customerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `
		SELECT id, name, phone
		FROM customers
		WHERE id = $1`

	customer := &models.Customer{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("customer with ID %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return customer, nil
}

// List retrieves customers with pagination and filtering, in list order
func (r *customerRepository) List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, int64, error) {
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	where, args := customerWhere(filter)

	var totalCount int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	offset := models.CalculateOffset(filter.Page, filter.PageSize)
	query := `SELECT id, name, phone FROM customers` + where +
		fmt.Sprintf(" ORDER BY seq ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, offset)

	customers, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return customers, totalCount, nil
}

// ListAll retrieves up to limit customers matching the filter, in list order.
// Pagination fields of the filter are ignored.
func (r *customerRepository) ListAll(ctx context.Context, filter models.CustomerFilter, limit int) ([]*models.Customer, error) {
	where, args := customerWhere(filter)
	query := `SELECT id, name, phone FROM customers` + where +
		fmt.Sprintf(" ORDER BY seq ASC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return r.query(ctx, query, args...)
}

// DeleteBatch removes the given customers and returns how many rows went away
func (r *customerRepository) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete customers: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (r *customerRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*models.Customer{}
	for rows.Next() {
		customer := &models.Customer{}
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}

// customerWhere builds the WHERE clause shared by List and ListAll
func customerWhere(filter models.CustomerFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	if filter.Phone != "" {
		args = append(args, "%"+filter.Phone+"%")
		where += fmt.Sprintf(" AND phone LIKE $%d", len(args))
	}

	return where, args
}

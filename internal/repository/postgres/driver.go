package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `tenant_id, driver_id, name, phone, push_token, is_active, assigned, booking_count, total_earnings`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, d *domain.Driver) error {
	query := `INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.ExecContext(ctx, query,
		d.TenantID, d.DriverID, d.Name, d.Phone, d.PushToken,
		d.IsActive, d.Assigned, d.BookingCount, d.TotalEarnings)
	return err
}

// GetByID retrieves a driver by tenant-scoped ID.
func (r *DriverRepository) GetByID(ctx context.Context, tenantID, driverID string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE tenant_id = $1 AND driver_id = $2`
	return r.getOne(ctx, query, tenantID, driverID)
}

// GetByIDForUpdate retrieves a driver holding an exclusive row lock for
// the remainder of the enclosing transaction. Accept flows lock the
// booking row first, then the driver row, always in that order.
func (r *DriverRepository) GetByIDForUpdate(ctx context.Context, tenantID, driverID string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE tenant_id = $1 AND driver_id = $2 FOR UPDATE`
	return r.getOne(ctx, query, tenantID, driverID)
}

// GetAllActive retrieves every active driver in the tenant.
func (r *DriverRepository) GetAllActive(ctx context.Context, tenantID string) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE tenant_id = $1 AND is_active = true ORDER BY driver_id`

	rows, err := r.q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		var d domain.Driver
		if err := scanDriver(rows, &d); err != nil {
			return nil, err
		}
		drivers = append(drivers, &d)
	}
	return drivers, rows.Err()
}

// Update updates an existing driver.
func (r *DriverRepository) Update(ctx context.Context, d *domain.Driver) error {
	query := `UPDATE drivers SET
		name = $3, phone = $4, push_token = $5, is_active = $6,
		assigned = $7, booking_count = $8, total_earnings = $9
		WHERE tenant_id = $1 AND driver_id = $2`

	result, err := r.q.ExecContext(ctx, query,
		d.TenantID, d.DriverID, d.Name, d.Phone, d.PushToken,
		d.IsActive, d.Assigned, d.BookingCount, d.TotalEarnings)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DriverRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Driver, error) {
	var d domain.Driver
	err := scanDriver(r.q.QueryRowContext(ctx, query, args...), &d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanDriver(row rowScanner, d *domain.Driver) error {
	var pushToken sql.NullString
	err := row.Scan(
		&d.TenantID, &d.DriverID, &d.Name, &d.Phone, &pushToken,
		&d.IsActive, &d.Assigned, &d.BookingCount, &d.TotalEarnings)
	if err != nil {
		return err
	}
	d.PushToken = pushToken.String
	return nil
}

package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by tenant-scoped ID.
	GetByID(ctx context.Context, tenantID, driverID string) (*domain.Driver, error)

	// GetByIDForUpdate retrieves a driver holding an exclusive row
	// lock for the remainder of the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, tenantID, driverID string) (*domain.Driver, error)

	// GetAllActive retrieves every active driver in the tenant.
	GetAllActive(ctx context.Context, tenantID string) ([]*domain.Driver, error)

	// Update updates an existing driver.
	Update(ctx context.Context, driver *domain.Driver) error
}

package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverLogRepository persists per-(booking, driver) dispatch attempts.
type DriverLogRepository interface {
	// Upsert creates the log row for a dispatch attempt, or refreshes
	// the offer timestamp if one already exists.
	Upsert(ctx context.Context, log *domain.DriverBookingLog) error

	// Get retrieves the log row for a (booking, driver) pair.
	Get(ctx context.Context, tenantID, bookingID, driverID string) (*domain.DriverBookingLog, error)

	// Update updates an existing log row.
	Update(ctx context.Context, log *domain.DriverBookingLog) error
}

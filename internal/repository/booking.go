package repository

import (
	"context"

	"dispatch/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by tenant-scoped ID.
	GetByID(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error)

	// GetByIDForUpdate retrieves a booking holding an exclusive row
	// lock for the remainder of the enclosing transaction. Outside a
	// transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error)

	// GetLiveByDriverID returns the booking currently binding the
	// driver (accepted, Not-Started or Started), or ErrNotFound.
	GetLiveByDriverID(ctx context.Context, tenantID, driverID string) (*domain.Booking, error)

	// Update updates an existing booking.
	Update(ctx context.Context, booking *domain.Booking) error

	// Delete removes a booking record.
	Delete(ctx context.Context, tenantID, bookingID string) error
}

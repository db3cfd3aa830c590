package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverLogRepository is a PostgreSQL implementation of repository.DriverLogRepository.
type DriverLogRepository struct {
	q Querier
}

// NewDriverLogRepository creates a new PostgreSQL driver log repository.
func NewDriverLogRepository(db *sql.DB) *DriverLogRepository {
	return &DriverLogRepository{q: db}
}

// NewDriverLogRepositoryWithTx creates a driver log repository using a transaction.
func NewDriverLogRepositoryWithTx(tx *sql.Tx) *DriverLogRepository {
	return &DriverLogRepository{q: tx}
}

const driverLogColumns = `id, tenant_id, booking_id, driver_id, offered_at, accepted_at,
	trip_started_at, trip_completed_at, active_driving_minutes, traveled_distance,
	net_earnings, deduction_amount, trip_status`

// Upsert creates the log row for a dispatch attempt, or refreshes the
// offer timestamp and status on re-offer. One row per (booking, driver)
// pair, keyed by the unique constraint.
func (r *DriverLogRepository) Upsert(ctx context.Context, l *domain.DriverBookingLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `INSERT INTO driver_booking_logs (` + driverLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, booking_id, driver_id) DO UPDATE SET
			offered_at = EXCLUDED.offered_at,
			trip_status = EXCLUDED.trip_status`

	_, err := r.q.ExecContext(ctx, query,
		l.ID, l.TenantID, l.BookingID, l.DriverID,
		nullTime(l.OfferedAt), nullTime(l.AcceptedAt),
		nullTime(l.TripStartedAt), nullTime(l.TripCompletedAt),
		l.ActiveDrivingMinutes, l.TraveledDistance,
		l.NetEarnings, l.DeductionAmount, l.TripStatus)
	return err
}

// Get retrieves the log row for a (booking, driver) pair.
func (r *DriverLogRepository) Get(ctx context.Context, tenantID, bookingID, driverID string) (*domain.DriverBookingLog, error) {
	query := `SELECT ` + driverLogColumns + ` FROM driver_booking_logs
		WHERE tenant_id = $1 AND booking_id = $2 AND driver_id = $3`

	var l domain.DriverBookingLog
	var offeredAt, acceptedAt, startedAt, completedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, tenantID, bookingID, driverID).Scan(
		&l.ID, &l.TenantID, &l.BookingID, &l.DriverID,
		&offeredAt, &acceptedAt, &startedAt, &completedAt,
		&l.ActiveDrivingMinutes, &l.TraveledDistance,
		&l.NetEarnings, &l.DeductionAmount, &l.TripStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if offeredAt.Valid {
		l.OfferedAt = offeredAt.Time
	}
	if acceptedAt.Valid {
		l.AcceptedAt = acceptedAt.Time
	}
	if startedAt.Valid {
		l.TripStartedAt = startedAt.Time
	}
	if completedAt.Valid {
		l.TripCompletedAt = completedAt.Time
	}
	return &l, nil
}

// Update updates an existing log row.
func (r *DriverLogRepository) Update(ctx context.Context, l *domain.DriverBookingLog) error {
	query := `UPDATE driver_booking_logs SET
		offered_at = $2, accepted_at = $3, trip_started_at = $4, trip_completed_at = $5,
		active_driving_minutes = $6, traveled_distance = $7,
		net_earnings = $8, deduction_amount = $9, trip_status = $10
		WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query,
		l.ID,
		nullTime(l.OfferedAt), nullTime(l.AcceptedAt),
		nullTime(l.TripStartedAt), nullTime(l.TripCompletedAt),
		l.ActiveDrivingMinutes, l.TraveledDistance,
		l.NetEarnings, l.DeductionAmount, l.TripStatus)
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

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

const bookingColumns = `
	tenant_id, booking_id, vendor_id, customer_id, created_by,
	service_type, package_id, pickup, drop_location, stops, pickup_at, drop_at, days,
	per_km_rate, extra_per_km_rate, driver_allowance, extra_driver_allowance,
	toll, hill, permit_charge, extra_toll, extra_hill, extra_permit_charge,
	tax_percent, tax_amount, convenience_fee, discount_amount, advance_amount,
	min_km, distance, duration, estimated_amount, final_amount, offer_id, promo_code_id,
	normal_fare, modified_fare,
	driver_id, driver_name, driver_phone, driver_acceptance, assigned_to_all,
	request_sent_at, accepted_at, status,
	start_otp, end_otp, start_odometer, end_odometer, trip_started_at, trip_ended_at,
	driver_charges, extra_charges,
	completed_distance, completed_duration, completed_base_amount,
	completed_tax_amount, completed_final_amount, driver_deduction_amount,
	driver_breakup, vendor_breakup, admin_commission, vendor_earnings,
	payment_status, created_at, updated_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43, $44,
		$45, $46, $47, $48, $49, $50, $51, $52, $53, $54, $55, $56, $57, $58,
		$59, $60, $61, $62, $63, $64, $65, $66)`

	args, err := bookingArgs(b)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query, args...)
	return err
}

// GetByID retrieves a booking by tenant-scoped ID.
func (r *BookingRepository) GetByID(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = $1 AND booking_id = $2`
	return r.getOne(ctx, query, tenantID, bookingID)
}

// GetByIDForUpdate retrieves a booking holding an exclusive row lock
// for the remainder of the enclosing transaction. This serializes
// concurrent check-then-write sequences on the same booking.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = $1 AND booking_id = $2 FOR UPDATE`
	return r.getOne(ctx, query, tenantID, bookingID)
}

// GetLiveByDriverID returns the booking currently binding the driver.
func (r *BookingRepository) GetLiveByDriverID(ctx context.Context, tenantID, driverID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE tenant_id = $1 AND driver_id = $2
		  AND driver_acceptance = 'accepted'
		  AND status IN ('Not-Started', 'Started')
		LIMIT 1`
	return r.getOne(ctx, query, tenantID, driverID)
}

// Update updates an existing booking.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `UPDATE bookings SET
		vendor_id = $3, customer_id = $4, created_by = $5,
		service_type = $6, package_id = $7, pickup = $8, drop_location = $9, stops = $10,
		pickup_at = $11, drop_at = $12, days = $13,
		per_km_rate = $14, extra_per_km_rate = $15, driver_allowance = $16, extra_driver_allowance = $17,
		toll = $18, hill = $19, permit_charge = $20, extra_toll = $21, extra_hill = $22, extra_permit_charge = $23,
		tax_percent = $24, tax_amount = $25, convenience_fee = $26, discount_amount = $27, advance_amount = $28,
		min_km = $29, distance = $30, duration = $31, estimated_amount = $32, final_amount = $33,
		offer_id = $34, promo_code_id = $35,
		normal_fare = $36, modified_fare = $37,
		driver_id = $38, driver_name = $39, driver_phone = $40, driver_acceptance = $41, assigned_to_all = $42,
		request_sent_at = $43, accepted_at = $44, status = $45,
		start_otp = $46, end_otp = $47, start_odometer = $48, end_odometer = $49,
		trip_started_at = $50, trip_ended_at = $51, driver_charges = $52, extra_charges = $53,
		completed_distance = $54, completed_duration = $55, completed_base_amount = $56,
		completed_tax_amount = $57, completed_final_amount = $58, driver_deduction_amount = $59,
		driver_breakup = $60, vendor_breakup = $61, admin_commission = $62, vendor_earnings = $63,
		payment_status = $64, updated_at = now()
		WHERE tenant_id = $1 AND booking_id = $2`

	args, err := bookingArgs(b)
	if err != nil {
		return err
	}
	// Trim created_at/updated_at positions; the UPDATE sets updated_at itself.
	args = args[:64]

	result, err := r.q.ExecContext(ctx, query, args...)
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

// Delete removes a booking record.
func (r *BookingRepository) Delete(ctx context.Context, tenantID, bookingID string) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM bookings WHERE tenant_id = $1 AND booking_id = $2`, tenantID, bookingID)
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

func (r *BookingRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Booking, error) {
	row := r.q.QueryRowContext(ctx, query, args...)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// bookingArgs flattens a booking into query arguments in column order.
func bookingArgs(b *domain.Booking) ([]any, error) {
	stops, err := marshalJSON(b.Stops)
	if err != nil {
		return nil, fmt.Errorf("marshal stops: %w", err)
	}
	normalFare, err := marshalJSON(b.NormalFare)
	if err != nil {
		return nil, fmt.Errorf("marshal normal fare: %w", err)
	}
	modifiedFare, err := marshalJSON(b.ModifiedFare)
	if err != nil {
		return nil, fmt.Errorf("marshal modified fare: %w", err)
	}
	driverCharges, err := marshalJSON(b.DriverCharges)
	if err != nil {
		return nil, fmt.Errorf("marshal driver charges: %w", err)
	}
	extraCharges, err := marshalJSON(b.ExtraCharges)
	if err != nil {
		return nil, fmt.Errorf("marshal extra charges: %w", err)
	}
	driverBreakup, err := marshalJSON(b.DriverBreakup)
	if err != nil {
		return nil, fmt.Errorf("marshal driver breakup: %w", err)
	}
	vendorBreakup, err := marshalJSON(b.VendorBreakup)
	if err != nil {
		return nil, fmt.Errorf("marshal vendor breakup: %w", err)
	}

	return []any{
		b.TenantID, b.BookingID, nullString(b.VendorID), nullString(b.CustomerID), b.CreatedBy,
		b.ServiceType, nullString(b.PackageID), b.Pickup, b.Drop, stops,
		b.PickupAt, nullTime(b.DropAt), b.Days,
		b.PerKmRate, b.ExtraPerKmRate, b.DriverAllowance, b.ExtraDriverAllowance,
		b.Toll, b.Hill, b.PermitCharge, b.ExtraToll, b.ExtraHill, b.ExtraPermitCharge,
		b.TaxPercent, b.TaxAmount, b.ConvenienceFee, b.DiscountAmount, b.AdvanceAmount,
		b.MinKm, b.Distance, b.Duration, b.EstimatedAmount, b.FinalAmount,
		nullString(b.OfferID), nullString(b.PromoCodeID),
		normalFare, modifiedFare,
		nullString(b.DriverID), nullString(b.DriverName), nullString(b.DriverPhone),
		string(b.DriverAcceptance), b.AssignedToAllDrivers,
		nullTime(b.RequestSentAt), nullTime(b.AcceptedAt), b.Status,
		b.StartOTP, b.EndOTP, b.StartOdometer, b.EndOdometer,
		nullTime(b.TripStartedAt), nullTime(b.TripEndedAt),
		driverCharges, extraCharges,
		b.CompletedDistance, b.CompletedDuration, b.CompletedBaseAmount,
		b.CompletedTaxAmount, b.CompletedFinalAmount, b.DriverDeductionAmount,
		driverBreakup, vendorBreakup, b.AdminCommission, b.VendorEarnings,
		b.PaymentStatus, b.CreatedAt, b.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var (
		vendorID, customerID, packageID   sql.NullString
		offerID, promoCodeID              sql.NullString
		driverID, driverName, driverPhone sql.NullString
		acceptance                        sql.NullString
		dropAt, requestSentAt, acceptedAt sql.NullTime
		tripStartedAt, tripEndedAt        sql.NullTime
		stops, normalFare, modifiedFare   []byte
		driverCharges, extraCharges       []byte
		driverBreakup, vendorBreakup      []byte
	)

	err := row.Scan(
		&b.TenantID, &b.BookingID, &vendorID, &customerID, &b.CreatedBy,
		&b.ServiceType, &packageID, &b.Pickup, &b.Drop, &stops,
		&b.PickupAt, &dropAt, &b.Days,
		&b.PerKmRate, &b.ExtraPerKmRate, &b.DriverAllowance, &b.ExtraDriverAllowance,
		&b.Toll, &b.Hill, &b.PermitCharge, &b.ExtraToll, &b.ExtraHill, &b.ExtraPermitCharge,
		&b.TaxPercent, &b.TaxAmount, &b.ConvenienceFee, &b.DiscountAmount, &b.AdvanceAmount,
		&b.MinKm, &b.Distance, &b.Duration, &b.EstimatedAmount, &b.FinalAmount,
		&offerID, &promoCodeID,
		&normalFare, &modifiedFare,
		&driverID, &driverName, &driverPhone, &acceptance, &b.AssignedToAllDrivers,
		&requestSentAt, &acceptedAt, &b.Status,
		&b.StartOTP, &b.EndOTP, &b.StartOdometer, &b.EndOdometer,
		&tripStartedAt, &tripEndedAt,
		&driverCharges, &extraCharges,
		&b.CompletedDistance, &b.CompletedDuration, &b.CompletedBaseAmount,
		&b.CompletedTaxAmount, &b.CompletedFinalAmount, &b.DriverDeductionAmount,
		&driverBreakup, &vendorBreakup, &b.AdminCommission, &b.VendorEarnings,
		&b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.VendorID = vendorID.String
	b.CustomerID = customerID.String
	b.PackageID = packageID.String
	b.OfferID = offerID.String
	b.PromoCodeID = promoCodeID.String
	b.DriverID = driverID.String
	b.DriverName = driverName.String
	b.DriverPhone = driverPhone.String
	b.DriverAcceptance = domain.Acceptance(acceptance.String)
	if dropAt.Valid {
		b.DropAt = dropAt.Time
	}
	if requestSentAt.Valid {
		b.RequestSentAt = requestSentAt.Time
	}
	if acceptedAt.Valid {
		b.AcceptedAt = acceptedAt.Time
	}
	if tripStartedAt.Valid {
		b.TripStartedAt = tripStartedAt.Time
	}
	if tripEndedAt.Valid {
		b.TripEndedAt = tripEndedAt.Time
	}

	if err := unmarshalJSON(stops, &b.Stops); err != nil {
		return nil, fmt.Errorf("unmarshal stops: %w", err)
	}
	if err := unmarshalJSON(normalFare, &b.NormalFare); err != nil {
		return nil, fmt.Errorf("unmarshal normal fare: %w", err)
	}
	if err := unmarshalJSON(modifiedFare, &b.ModifiedFare); err != nil {
		return nil, fmt.Errorf("unmarshal modified fare: %w", err)
	}
	if err := unmarshalJSON(driverCharges, &b.DriverCharges); err != nil {
		return nil, fmt.Errorf("unmarshal driver charges: %w", err)
	}
	if err := unmarshalJSON(extraCharges, &b.ExtraCharges); err != nil {
		return nil, fmt.Errorf("unmarshal extra charges: %w", err)
	}
	if err := unmarshalJSON(driverBreakup, &b.DriverBreakup); err != nil {
		return nil, fmt.Errorf("unmarshal driver breakup: %w", err)
	}
	if err := unmarshalJSON(vendorBreakup, &b.VendorBreakup); err != nil {
		return nil, fmt.Errorf("unmarshal vendor breakup: %w", err)
	}

	return &b, nil
}

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

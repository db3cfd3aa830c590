package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 4. TRIP LIFECYCLE
// ──────────────────────────────────────────────

type tripFixture struct {
	uow   *MockUnitOfWork
	cards *MockRateCardRepository
	svc   *service.TripService
}

func newTripFixture() *tripFixture {
	uow := NewMockUnitOfWork()
	cards := NewMockRateCardRepository()
	cards.AddRateCard(&domain.RateCard{
		TenantID:             "t1",
		ServiceType:          domain.ServiceOneWay,
		DriverCommissionPct:  decimal.NewFromInt(12),
		CommissionTaxPercent: decimal.NewFromInt(18),
	})
	settlement := service.NewSettlementService(uow, cards, &MockDiscountProvider{})
	return &tripFixture{
		uow:   uow,
		cards: cards,
		svc:   service.NewTripService(uow, uow.Bookings, settlement),
	}
}

func acceptedBooking(bookingID string) *domain.Booking {
	return &domain.Booking{
		TenantID:         "t1",
		BookingID:        bookingID,
		ServiceType:      domain.ServiceOneWay,
		PerKmRate:        decimal.NewFromInt(15),
		Status:           domain.StatusNotStarted,
		DriverAcceptance: domain.AcceptanceAccepted,
		DriverID:         "d1",
		StartOTP:         "123456",
		EndOTP:           "567890",
	}
}

func (f *tripFixture) seedAcceptedTrip(t *testing.T, bookingID string) {
	t.Helper()
	f.uow.Bookings.AddBooking(acceptedBooking(bookingID))
	f.uow.Drivers.AddDriver(assignedDriver("d1"))
	if err := f.uow.Logs.Upsert(context.Background(), &domain.DriverBookingLog{
		TenantID:   "t1",
		BookingID:  bookingID,
		DriverID:   "d1",
		OfferedAt:  time.Now(),
		TripStatus: domain.TripStatusAccepted,
	}); err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}
}

func TestStartTrip_OTPGatesEntry(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedTrip(t, "b1")

	booking, err := f.svc.StartTrip(context.Background(), service.StartTripRequest{
		TenantID:      "t1",
		BookingID:     "b1",
		DriverID:      "d1",
		OTP:           "123456",
		StartOdometer: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != domain.StatusStarted {
		t.Errorf("expected status Started, got %s", booking.Status)
	}
	if booking.TripStartedAt.IsZero() {
		t.Error("expected TripStartedAt to be set")
	}
	if booking.StartOdometer != 1000 {
		t.Errorf("expected start odometer 1000, got %f", booking.StartOdometer)
	}
	if lg := f.uow.Logs.GetLog("t1", "b1", "d1"); lg == nil || lg.TripStatus != domain.TripStatusStarted {
		t.Error("expected log status Started")
	}
}

func TestStartTrip_Guards(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedTrip(t, "b1")

	pending := acceptedBooking("b-pending")
	pending.Status = domain.StatusBookingConfirmed
	pending.DriverAcceptance = domain.AcceptancePending
	f.uow.Bookings.AddBooking(pending)

	tests := []struct {
		name    string
		req     service.StartTripRequest
		wantErr error
	}{
		{
			"wrong otp",
			service.StartTripRequest{TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "000000"},
			service.ErrInvalidOTP,
		},
		{
			"wrong driver",
			service.StartTripRequest{TenantID: "t1", BookingID: "b1", DriverID: "d2", OTP: "123456"},
			service.ErrOfferNotForDriver,
		},
		{
			"not yet accepted",
			service.StartTripRequest{TenantID: "t1", BookingID: "b-pending", DriverID: "d1", OTP: "123456"},
			service.ErrInvalidState,
		},
		{
			"missing driver id",
			service.StartTripRequest{TenantID: "t1", BookingID: "b1", OTP: "123456"},
			service.ErrInvalidDriverID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.StartTrip(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Failed starts leave the booking untouched.
	if b := f.uow.Bookings.GetBooking("t1", "b1"); b.Status != domain.StatusNotStarted {
		t.Errorf("expected booking still Not-Started, got %s", b.Status)
	}
}

func TestEndTrip_CompletesAndSettles(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedTrip(t, "b1")

	ctx := context.Background()
	if _, err := f.svc.StartTrip(ctx, service.StartTripRequest{
		TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "123456", StartOdometer: 1000,
	}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	booking, err := f.svc.EndTrip(ctx, service.EndTripRequest{
		TenantID:    "t1",
		BookingID:   "b1",
		DriverID:    "d1",
		OTP:         "567890",
		EndOdometer: 1100,
		DriverCharges: map[string]decimal.Decimal{
			"parking": decimal.NewFromInt(50),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != domain.StatusCompleted {
		t.Errorf("expected status Completed, got %s", booking.Status)
	}
	if booking.CompletedDistance != 100 {
		t.Errorf("expected completed distance 100, got %f", booking.CompletedDistance)
	}
	// 100km x 15 = 1500 base, plus the 50 parking charge.
	if !decimalEqual(booking.CompletedBaseAmount, decimal.NewFromInt(1500)) {
		t.Errorf("expected base 1500, got %s", booking.CompletedBaseAmount)
	}
	if !decimalEqual(booking.CompletedFinalAmount, decimal.NewFromInt(1550)) {
		t.Errorf("expected final 1550, got %s", booking.CompletedFinalAmount)
	}
	if d := f.uow.Drivers.GetDriver("t1", "d1"); d.Assigned {
		t.Error("expected driver released after settlement")
	}
}

func TestEndTrip_Guards(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedTrip(t, "b1")

	ctx := context.Background()

	// Ending before starting fails.
	_, err := f.svc.EndTrip(ctx, service.EndTripRequest{
		TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "567890", EndOdometer: 1100,
	})
	if !errors.Is(err, service.ErrTripNotStarted) {
		t.Fatalf("expected ErrTripNotStarted, got %v", err)
	}

	if _, err := f.svc.StartTrip(ctx, service.StartTripRequest{
		TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "123456", StartOdometer: 1000,
	}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	tests := []struct {
		name    string
		req     service.EndTripRequest
		wantErr error
	}{
		{
			"wrong otp",
			service.EndTripRequest{TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "000000", EndOdometer: 1100},
			service.ErrInvalidOTP,
		},
		{
			"wrong driver",
			service.EndTripRequest{TenantID: "t1", BookingID: "b1", DriverID: "d2", OTP: "567890", EndOdometer: 1100},
			service.ErrOfferNotForDriver,
		},
		{
			"odometer behind start",
			service.EndTripRequest{TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "567890", EndOdometer: 900},
			service.ErrOdometerOrder,
		},
		{
			"odometer equal to start",
			service.EndTripRequest{TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "567890", EndOdometer: 1000},
			service.ErrOdometerOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.EndTrip(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestManualComplete_BypassesOTP(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedTrip(t, "b1")

	ctx := context.Background()
	if _, err := f.svc.StartTrip(ctx, service.StartTripRequest{
		TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "123456", StartOdometer: 1000,
	}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	endedAt := time.Now().Add(2 * time.Hour)
	booking, err := f.svc.ManualComplete(ctx, service.ManualCompleteRequest{
		TenantID:    "t1",
		BookingID:   "b1",
		EndOdometer: 1100,
		EndedAt:     endedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != domain.StatusManualCompleted {
		t.Errorf("expected status Manual Completed, got %s", booking.Status)
	}
	if !booking.TripEndedAt.Equal(endedAt) {
		t.Errorf("expected provided end time to be recorded, got %v", booking.TripEndedAt)
	}
}

func TestManualComplete_TerminalBookingIsImmutable(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedTrip(t, "b1")

	ctx := context.Background()
	if _, err := f.svc.StartTrip(ctx, service.StartTripRequest{
		TenantID: "t1", BookingID: "b1", DriverID: "d1", OTP: "123456", StartOdometer: 1000,
	}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.svc.ManualComplete(ctx, service.ManualCompleteRequest{
		TenantID: "t1", BookingID: "b1", EndOdometer: 1100,
	}); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	_, err := f.svc.ManualComplete(ctx, service.ManualCompleteRequest{
		TenantID: "t1", BookingID: "b1", EndOdometer: 1200,
	})
	if !errors.Is(err, service.ErrTripNotStarted) {
		t.Errorf("expected ErrTripNotStarted on settled booking, got %v", err)
	}
}

package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 5. BOOKING CREATION AND ADMINISTRATION
// ──────────────────────────────────────────────

type bookingFixture struct {
	uow *MockUnitOfWork
	svc *service.BookingService
}

func newBookingFixture() *bookingFixture {
	uow := NewMockUnitOfWork()
	_, fareService := newFareFixture()
	return &bookingFixture{
		uow: uow,
		svc: service.NewBookingService(uow, uow.Bookings, fareService),
	}
}

func TestCreateBooking_FreezesFareAndIssuesOTPs(t *testing.T) {
	t.Parallel()

	f := newBookingFixture()

	booking, err := f.svc.Create(context.Background(), service.CreateBookingRequest{
		TenantID:             "t1",
		CustomerID:           "c1",
		CreatedBy:            domain.CreatedByAdmin,
		ServiceType:          domain.ServiceOneWay,
		Pickup:               "Chennai",
		Drop:                 "Vellore",
		PickupAt:             time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		DistanceKm:           40,
		PerKmRate:            decimal.NewFromInt(15),
		ExtraPerKmRate:       decimal.NewFromInt(2),
		DriverAllowance:      decimal.NewFromInt(300),
		ExtraDriverAllowance: decimal.NewFromInt(100),
		TaxPercent:           decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.BookingID == "" {
		t.Error("expected a generated booking id")
	}
	if booking.Status != domain.StatusBookingConfirmed {
		t.Errorf("expected status Booking Confirmed, got %s", booking.Status)
	}

	// Both snapshots are frozen onto the record.
	if booking.NormalFare == nil || booking.ModifiedFare == nil {
		t.Fatal("expected both fare snapshots")
	}
	if !decimalEqual(booking.NormalFare.EstimatedAmount, decimal.NewFromInt(900)) {
		t.Errorf("expected normal estimated 900, got %s", booking.NormalFare.EstimatedAmount)
	}
	if !decimalEqual(booking.ModifiedFare.EstimatedAmount, decimal.NewFromInt(1080)) {
		t.Errorf("expected modified estimated 1080, got %s", booking.ModifiedFare.EstimatedAmount)
	}
	// Headline amounts come from the modified snapshot.
	if !decimalEqual(booking.FinalAmount, booking.ModifiedFare.FinalAmount) {
		t.Errorf("expected final %s, got %s", booking.ModifiedFare.FinalAmount, booking.FinalAmount)
	}

	for _, otp := range []string{booking.StartOTP, booking.EndOTP} {
		if len(otp) != 6 {
			t.Fatalf("expected 6 digit OTP, got %q", otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("expected numeric OTP, got %q", otp)
			}
		}
	}

	if f.uow.Bookings.CountBookings() != 1 {
		t.Errorf("expected 1 stored booking, got %d", f.uow.Bookings.CountBookings())
	}
}

func TestCreateBooking_EstimateFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newBookingFixture()

	// No rate card registered for tenant t2.
	_, err := f.svc.Create(context.Background(), service.CreateBookingRequest{
		TenantID:    "t2",
		ServiceType: domain.ServiceOneWay,
		DistanceKm:  40,
		PerKmRate:   decimal.NewFromInt(15),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if f.uow.Bookings.CountBookings() != 0 {
		t.Error("expected no booking persisted on estimate failure")
	}
}

func TestDeleteBooking_ReleasesAcceptedDriver(t *testing.T) {
	t.Parallel()

	f := newBookingFixture()

	b := acceptedBooking("b1")
	f.uow.Bookings.AddBooking(b)
	f.uow.Drivers.AddDriver(assignedDriver("d1"))

	if err := f.svc.Delete(context.Background(), "t1", "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.uow.Bookings.GetBooking("t1", "b1") != nil {
		t.Error("expected booking to be deleted")
	}
	if f.uow.Drivers.GetDriver("t1", "d1").Assigned {
		t.Error("expected driver to be released")
	}
}

func TestDeleteBooking_StartedTripIsRetained(t *testing.T) {
	t.Parallel()

	f := newBookingFixture()
	f.uow.Bookings.AddBooking(startedBooking("b1"))

	if err := f.svc.Delete(context.Background(), "t1", "b1"); !errors.Is(err, service.ErrCannotDelete) {
		t.Errorf("expected ErrCannotDelete, got %v", err)
	}
	if f.uow.Bookings.GetBooking("t1", "b1") == nil {
		t.Error("expected booking to be retained")
	}
}

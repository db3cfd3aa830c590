package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// BookingService handles booking creation and administration. The dual
// fare computed at creation is frozen onto the record; dispatch and
// settlement are owned by their own services.
type BookingService struct {
	uow         repository.UnitOfWork
	bookingRepo repository.BookingRepository
	fareService *FareService
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	uow repository.UnitOfWork,
	bookingRepo repository.BookingRepository,
	fareService *FareService,
) *BookingService {
	return &BookingService{
		uow:         uow,
		bookingRepo: bookingRepo,
		fareService: fareService,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	TenantID   string
	VendorID   string
	CustomerID string
	CreatedBy  domain.CreatedBy

	ServiceType domain.ServiceType
	PackageID   string
	Pickup      string
	Drop        string
	Stops       []string
	PickupAt    time.Time
	DropAt      time.Time
	DistanceKm  float64

	PerKmRate            decimal.Decimal
	ExtraPerKmRate       decimal.Decimal
	DriverAllowance      decimal.Decimal
	ExtraDriverAllowance decimal.Decimal
	Toll                 decimal.Decimal
	Hill                 decimal.Decimal
	PermitCharge         decimal.Decimal
	ExtraToll            decimal.Decimal
	ExtraHill            decimal.Decimal
	ExtraPermitCharge    decimal.Decimal
	TaxPercent           decimal.Decimal
	ConvenienceFee       decimal.Decimal
	DiscountAmount       decimal.Decimal
	AdvanceAmount        decimal.Decimal
	OfferID              string
	PromoCodeID          string
}

// Create estimates the dual fare, freezes it and persists the booking
// in the Booking Confirmed state with fresh start and end OTPs.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if req.TenantID == "" {
		return nil, ErrInvalidTenantID
	}

	fare, err := s.fareService.Estimate(ctx, EstimateRequest{
		TenantID:             req.TenantID,
		ServiceType:          req.ServiceType,
		PackageID:            req.PackageID,
		Pickup:               req.Pickup,
		Drop:                 req.Drop,
		Stops:                req.Stops,
		PickupAt:             req.PickupAt,
		DropAt:               req.DropAt,
		DistanceKm:           req.DistanceKm,
		PerKmRate:            req.PerKmRate,
		ExtraPerKmRate:       req.ExtraPerKmRate,
		DriverAllowance:      req.DriverAllowance,
		ExtraDriverAllowance: req.ExtraDriverAllowance,
		Toll:                 req.Toll,
		Hill:                 req.Hill,
		PermitCharge:         req.PermitCharge,
		ExtraToll:            req.ExtraToll,
		ExtraHill:            req.ExtraHill,
		ExtraPermitCharge:    req.ExtraPermitCharge,
		TaxPercent:           req.TaxPercent,
		DiscountAmount:       req.DiscountAmount,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	booking := &domain.Booking{
		TenantID:   req.TenantID,
		BookingID:  uuid.NewString(),
		VendorID:   req.VendorID,
		CustomerID: req.CustomerID,
		CreatedBy:  req.CreatedBy,

		ServiceType: req.ServiceType,
		PackageID:   req.PackageID,
		Pickup:      req.Pickup,
		Drop:        req.Drop,
		Stops:       req.Stops,
		PickupAt:    req.PickupAt,
		DropAt:      req.DropAt,
		Days:        fare.Days,

		PerKmRate:            req.PerKmRate,
		ExtraPerKmRate:       req.ExtraPerKmRate,
		DriverAllowance:      req.DriverAllowance,
		ExtraDriverAllowance: req.ExtraDriverAllowance,
		Toll:                 req.Toll,
		Hill:                 req.Hill,
		PermitCharge:         req.PermitCharge,
		ExtraToll:            req.ExtraToll,
		ExtraHill:            req.ExtraHill,
		ExtraPermitCharge:    req.ExtraPermitCharge,
		TaxPercent:           req.TaxPercent,
		TaxAmount:            fare.ModifiedFare.TaxAmount,
		ConvenienceFee:       req.ConvenienceFee,
		DiscountAmount:       req.DiscountAmount,
		AdvanceAmount:        req.AdvanceAmount,
		MinKm:                fare.ModifiedFare.MinKm,
		Distance:             fare.Distance,
		Duration:             fare.Duration,
		EstimatedAmount:      fare.ModifiedFare.EstimatedAmount,
		FinalAmount:          fare.ModifiedFare.FinalAmount,
		OfferID:              req.OfferID,
		PromoCodeID:          req.PromoCodeID,

		NormalFare:   &fare.NormalFare,
		ModifiedFare: &fare.ModifiedFare,

		Status:   domain.StatusBookingConfirmed,
		StartOTP: newOTP(),
		EndOTP:   newOTP(),

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Get retrieves a booking.
func (s *BookingService) Get(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	return s.bookingRepo.GetByID(ctx, tenantID, bookingID)
}

// Estimate exposes the fare estimator without creating a booking.
func (s *BookingService) Estimate(ctx context.Context, req EstimateRequest) (*domain.DualFare, error) {
	return s.fareService.Estimate(ctx, req)
}

// Delete removes a booking that never got underway. Started and
// completed bookings are retained for settlement history.
func (s *BookingService) Delete(ctx context.Context, tenantID, bookingID string) error {
	if tenantID == "" {
		return ErrInvalidTenantID
	}
	if bookingID == "" {
		return ErrInvalidBookingID
	}

	return s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanDelete() {
			return ErrCannotDelete
		}

		if b.DriverID != "" && b.DriverAcceptance == domain.AcceptanceAccepted {
			d, err := r.Drivers.GetByIDForUpdate(ctx, tenantID, b.DriverID)
			if err == nil {
				d.Assigned = false
				if err := r.Drivers.Update(ctx, d); err != nil {
					return err
				}
			}
		}

		return r.Bookings.Delete(ctx, tenantID, bookingID)
	})
}

// newOTP returns a six digit one-time code. SMS gateways reject
// shorter codes.
func newOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

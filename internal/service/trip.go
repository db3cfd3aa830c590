package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// TripService handles the physical trip flow: OTP-gated start, OTP and
// odometer gated completion, and the back-office manual completion.
type TripService struct {
	uow         repository.UnitOfWork
	bookingRepo repository.BookingRepository
	settlement  *SettlementService
}

// NewTripService creates a new TripService.
func NewTripService(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, settlement *SettlementService) *TripService {
	return &TripService{
		uow:         uow,
		bookingRepo: bookingRepo,
		settlement:  settlement,
	}
}

// StartTripRequest contains the parameters for starting a trip.
type StartTripRequest struct {
	TenantID      string
	BookingID     string
	DriverID      string
	OTP           string
	StartOdometer float64
}

// StartTrip moves an accepted booking into the Started state. The
// customer-held start OTP proves the driver physically met the rider.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*domain.Booking, error) {
	if err := validateIDs(req.TenantID, req.BookingID, req.DriverID); err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err := s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, req.TenantID, req.BookingID)
		if err != nil {
			return err
		}
		if b.Status != domain.StatusNotStarted || b.DriverAcceptance != domain.AcceptanceAccepted {
			return ErrInvalidState
		}
		if b.DriverID != req.DriverID {
			return ErrOfferNotForDriver
		}
		if b.StartOTP == "" || req.OTP != b.StartOTP {
			return ErrInvalidOTP
		}

		now := time.Now()
		b.Status = domain.StatusStarted
		b.TripStartedAt = now
		b.StartOdometer = req.StartOdometer
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}

		lg, err := r.Logs.Get(ctx, req.TenantID, req.BookingID, req.DriverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				booking = b
				return nil
			}
			return err
		}
		lg.TripStartedAt = now
		lg.TripStatus = domain.TripStatusStarted
		if err := r.Logs.Update(ctx, lg); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// EndTripRequest contains the parameters for ending a trip.
type EndTripRequest struct {
	TenantID      string
	BookingID     string
	DriverID      string
	OTP           string
	EndOdometer   float64
	DriverCharges map[string]decimal.Decimal
	ExtraCharges  map[string]decimal.Decimal
}

// EndTrip completes a started trip through the driver flow: the end OTP
// and odometer reading gate entry into settlement.
func (s *TripService) EndTrip(ctx context.Context, req EndTripRequest) (*domain.Booking, error) {
	if err := validateIDs(req.TenantID, req.BookingID, req.DriverID); err != nil {
		return nil, err
	}

	// Pre-checks outside the settlement transaction; every one of them
	// is re-verified under the row lock inside Reconcile.
	b, err := s.getStarted(ctx, req.TenantID, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.DriverID != req.DriverID {
		return nil, ErrOfferNotForDriver
	}
	if b.EndOTP == "" || req.OTP != b.EndOTP {
		return nil, ErrInvalidOTP
	}
	if req.EndOdometer <= b.StartOdometer {
		return nil, ErrOdometerOrder
	}

	return s.settlement.Reconcile(ctx, ReconcileRequest{
		TenantID:      req.TenantID,
		BookingID:     req.BookingID,
		EndOdometer:   req.EndOdometer,
		EndedAt:       time.Now(),
		DriverCharges: req.DriverCharges,
		ExtraCharges:  req.ExtraCharges,
		FinalStatus:   domain.StatusCompleted,
	})
}

// ManualCompleteRequest contains the parameters for back-office completion.
type ManualCompleteRequest struct {
	TenantID      string
	BookingID     string
	EndOdometer   float64
	EndedAt       time.Time
	DriverCharges map[string]decimal.Decimal
	ExtraCharges  map[string]decimal.Decimal
}

// ManualComplete settles a started trip without the end OTP. Odometer
// ordering still applies; only the OTP check is bypassed.
func (s *TripService) ManualComplete(ctx context.Context, req ManualCompleteRequest) (*domain.Booking, error) {
	if req.TenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if req.BookingID == "" {
		return nil, ErrInvalidBookingID
	}

	b, err := s.getStarted(ctx, req.TenantID, req.BookingID)
	if err != nil {
		return nil, err
	}
	if req.EndOdometer <= b.StartOdometer {
		return nil, ErrOdometerOrder
	}

	endedAt := req.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	return s.settlement.Reconcile(ctx, ReconcileRequest{
		TenantID:      req.TenantID,
		BookingID:     req.BookingID,
		EndOdometer:   req.EndOdometer,
		EndedAt:       endedAt,
		DriverCharges: req.DriverCharges,
		ExtraCharges:  req.ExtraCharges,
		FinalStatus:   domain.StatusManualCompleted,
	})
}

func (s *TripService) getStarted(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.StatusStarted {
		return nil, ErrTripNotStarted
	}
	return b, nil
}

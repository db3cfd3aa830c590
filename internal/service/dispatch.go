package service

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	broadcastLockTTL = 30 * time.Second
	fanOutWorkers    = 8
)

// DispatchService owns driver assignment: targeted offers, tenant-wide
// broadcasts and the accept/reject race resolution. All state changes
// run under booking-then-driver row locks; notifications go out only
// after the transaction commits.
type DispatchService struct {
	uow           repository.UnitOfWork
	driverRepo    repository.DriverRepository
	logRepo       repository.DriverLogRepository
	presenceStore redis.PresenceStoreInterface
	lockStore     redis.LockStoreInterface
	notifier      Notifier
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	uow repository.UnitOfWork,
	driverRepo repository.DriverRepository,
	logRepo repository.DriverLogRepository,
	presenceStore redis.PresenceStoreInterface,
	lockStore redis.LockStoreInterface,
	notifier Notifier,
) *DispatchService {
	return &DispatchService{
		uow:           uow,
		driverRepo:    driverRepo,
		logRepo:       logRepo,
		presenceStore: presenceStore,
		lockStore:     lockStore,
		notifier:      notifier,
	}
}

// AssignDriver offers a booking to one driver. The offer stays pending
// until the driver accepts; a previously offered or accepted driver is
// released inside the same transaction.
func (s *DispatchService) AssignDriver(ctx context.Context, tenantID, bookingID, driverID string) (*domain.Booking, error) {
	if err := validateIDs(tenantID, bookingID, driverID); err != nil {
		return nil, err
	}

	var booking *domain.Booking
	var driver *domain.Driver

	err := s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanAssign() {
			return ErrInvalidState
		}

		d, err := r.Drivers.GetByIDForUpdate(ctx, tenantID, driverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDriverUnavailable
			}
			return err
		}
		if !d.IsActive {
			return ErrDriverUnavailable
		}
		// A driver already holding this booking may be re-offered it;
		// only an assignment elsewhere is a conflict.
		if d.Assigned && b.DriverID != driverID {
			return ErrDriverAlreadyAssigned
		}

		if err := releaseCurrentDriver(ctx, r, b); err != nil {
			return err
		}

		now := time.Now()
		b.DriverID = d.DriverID
		b.DriverName = d.Name
		b.DriverPhone = d.Phone
		b.DriverAcceptance = domain.AcceptancePending
		b.AssignedToAllDrivers = false
		b.RequestSentAt = now
		b.AcceptedAt = time.Time{}
		b.Status = domain.StatusBookingConfirmed

		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}

		if err := r.Logs.Upsert(ctx, &domain.DriverBookingLog{
			TenantID:   tenantID,
			BookingID:  bookingID,
			DriverID:   d.DriverID,
			OfferedAt:  now,
			TripStatus: domain.TripStatusOffered,
		}); err != nil {
			return err
		}

		booking, driver = b, d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pushOffer(ctx, booking, driver.DriverID)
	return booking, nil
}

// AssignAllDrivers broadcasts a booking to every reachable driver in
// the tenant. The first driver to accept wins; everyone else observes
// the mutated booking and gets a conflict.
func (s *DispatchService) AssignAllDrivers(ctx context.Context, tenantID, bookingID string) (*domain.Booking, int, error) {
	if tenantID == "" {
		return nil, 0, ErrInvalidTenantID
	}
	if bookingID == "" {
		return nil, 0, ErrInvalidBookingID
	}

	locked, err := s.lockStore.AcquireBroadcastLock(ctx, tenantID, bookingID, broadcastLockTTL)
	if err != nil {
		return nil, 0, err
	}
	if !locked {
		return nil, 0, ErrBroadcastInFlight
	}
	defer func() {
		_ = s.lockStore.ReleaseBroadcastLock(ctx, tenantID, bookingID)
	}()

	var booking *domain.Booking
	err = s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanAssign() {
			return ErrInvalidState
		}

		if err := releaseCurrentDriver(ctx, r, b); err != nil {
			return err
		}

		b.DriverID = ""
		b.DriverName = ""
		b.DriverPhone = ""
		b.DriverAcceptance = domain.AcceptancePending
		b.AssignedToAllDrivers = true
		b.RequestSentAt = time.Now()
		b.AcceptedAt = time.Time{}
		b.Status = domain.StatusBookingConfirmed

		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	targets, err := s.broadcastTargets(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if len(targets) == 0 {
		return nil, 0, ErrNoDriversAvailable
	}

	notifications := make([]Notification, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutWorkers)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			if err := s.logRepo.Upsert(gctx, &domain.DriverBookingLog{
				TenantID:   tenantID,
				BookingID:  bookingID,
				DriverID:   t.driverID,
				OfferedAt:  booking.RequestSentAt,
				TripStatus: domain.TripStatusOffered,
			}); err != nil {
				return err
			}
			notifications[i] = OfferNotification(booking, t.driverID, t.pushToken)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if err := s.notifier.NotifyDrivers(ctx, notifications); err != nil {
		log.Printf("broadcast push failed for booking %s: %v", bookingID, err)
	}
	return booking, len(targets), nil
}

// AcceptBooking resolves a pending offer in the accepting driver's
// favor. Lock order is booking row first, then driver row.
func (s *DispatchService) AcceptBooking(ctx context.Context, tenantID, bookingID, driverID string) (*domain.Booking, error) {
	if err := validateIDs(tenantID, bookingID, driverID); err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err := s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if b.DriverAcceptance != domain.AcceptancePending || b.Status != domain.StatusBookingConfirmed {
			return ErrOfferNotPending
		}
		if !b.AssignedToAllDrivers && b.DriverID != driverID {
			return ErrOfferNotForDriver
		}

		d, err := r.Drivers.GetByIDForUpdate(ctx, tenantID, driverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDriverUnavailable
			}
			return err
		}
		if !d.IsActive {
			return ErrDriverUnavailable
		}
		if d.Assigned {
			return ErrDriverAlreadyAssigned
		}

		now := time.Now()
		b.DriverID = d.DriverID
		b.DriverName = d.Name
		b.DriverPhone = d.Phone
		b.DriverAcceptance = domain.AcceptanceAccepted
		b.AcceptedAt = now
		b.Status = domain.StatusNotStarted

		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}

		d.Assigned = true
		if err := r.Drivers.Update(ctx, d); err != nil {
			return err
		}

		if err := markLogAccepted(ctx, r.Logs, tenantID, bookingID, driverID, now); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if booking.AssignedToAllDrivers {
		s.pushTaken(ctx, booking)
	}
	return booking, nil
}

// RejectBooking records a driver's decline. A targeted booking moves to
// Reassign for re-dispatch; a broadcast booking stays open for the
// remaining drivers.
func (s *DispatchService) RejectBooking(ctx context.Context, tenantID, bookingID, driverID string) (*domain.Booking, error) {
	if err := validateIDs(tenantID, bookingID, driverID); err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err := s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if b.DriverAcceptance != domain.AcceptancePending {
			return ErrOfferNotPending
		}

		if !b.AssignedToAllDrivers {
			if b.DriverID != driverID {
				return ErrOfferNotForDriver
			}
			b.DriverAcceptance = domain.AcceptanceRejected
			b.Status = domain.StatusReassign
			if err := r.Bookings.Update(ctx, b); err != nil {
				return err
			}
		}

		lg, err := r.Logs.Get(ctx, tenantID, bookingID, driverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOfferNotForDriver
			}
			return err
		}
		lg.TripStatus = domain.TripStatusCancelled
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

// CancelBooking cancels a booking before the trip starts, releasing the
// assigned driver in the same transaction.
func (s *DispatchService) CancelBooking(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	var booking *domain.Booking
	var notifyDriverID string

	err := s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanCancel() {
			return ErrCannotCancel
		}

		if b.DriverID != "" && b.DriverAcceptance == domain.AcceptanceAccepted {
			d, err := r.Drivers.GetByIDForUpdate(ctx, tenantID, b.DriverID)
			if err != nil {
				return err
			}
			d.Assigned = false
			if err := r.Drivers.Update(ctx, d); err != nil {
				return err
			}
			notifyDriverID = d.DriverID
		}

		if b.DriverID != "" {
			lg, err := r.Logs.Get(ctx, tenantID, bookingID, b.DriverID)
			if err == nil {
				lg.TripStatus = domain.TripStatusCancelled
				if err := r.Logs.Update(ctx, lg); err != nil {
					return err
				}
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		b.Status = domain.StatusCancelled
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyDriverID != "" {
		token := s.pushToken(ctx, tenantID, notifyDriverID)
		if err := s.notifier.NotifyDriver(ctx, CancelNotification(booking, notifyDriverID, token)); err != nil {
			log.Printf("cancel push failed for booking %s: %v", bookingID, err)
		}
	}
	return booking, nil
}

type broadcastTarget struct {
	driverID  string
	pushToken string
}

// broadcastTargets enumerates reachable drivers: the presence cache
// first, falling back to the driver store enriched with cached tokens.
func (s *DispatchService) broadcastTargets(ctx context.Context, tenantID string) ([]broadcastTarget, error) {
	online, err := s.presenceStore.GetOnlineDrivers(ctx, tenantID)
	if err == nil && len(online) > 0 {
		targets := make([]broadcastTarget, 0, len(online))
		for _, p := range online {
			targets = append(targets, broadcastTarget{driverID: p.DriverID, pushToken: p.PushToken})
		}
		return targets, nil
	}
	if err != nil {
		log.Printf("presence lookup failed for tenant %s, falling back to driver store: %v", tenantID, err)
	}

	drivers, err := s.driverRepo.GetAllActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	targets := make([]broadcastTarget, 0, len(drivers))
	for _, d := range drivers {
		if d.Assigned {
			continue
		}
		token := d.PushToken
		if token == "" {
			token = s.pushToken(ctx, tenantID, d.DriverID)
		}
		targets = append(targets, broadcastTarget{driverID: d.DriverID, pushToken: token})
	}
	return targets, nil
}

// pushOffer notifies a single targeted driver, best effort.
func (s *DispatchService) pushOffer(ctx context.Context, b *domain.Booking, driverID string) {
	token := s.pushToken(ctx, b.TenantID, driverID)
	if err := s.notifier.NotifyDriver(ctx, OfferNotification(b, driverID, token)); err != nil {
		log.Printf("offer push failed for booking %s driver %s: %v", b.BookingID, driverID, err)
	}
}

// pushTaken tells the losing drivers of a broadcast that the booking is
// gone, best effort.
func (s *DispatchService) pushTaken(ctx context.Context, b *domain.Booking) {
	online, err := s.presenceStore.GetOnlineDrivers(ctx, b.TenantID)
	if err != nil {
		log.Printf("presence lookup failed for booking-taken push: %v", err)
		return
	}

	var ns []Notification
	for _, p := range online {
		if p.DriverID == b.DriverID {
			continue
		}
		ns = append(ns, TakenNotification(b, p.DriverID, p.PushToken))
	}
	if len(ns) > 0 {
		_ = s.notifier.NotifyDrivers(ctx, ns)
	}
}

// pushToken is a best-effort token lookup; an unreachable driver gets
// an empty token.
func (s *DispatchService) pushToken(ctx context.Context, tenantID, driverID string) string {
	p, err := s.presenceStore.GetPresence(ctx, tenantID, driverID)
	if err != nil || p == nil {
		return ""
	}
	return p.PushToken
}

// releaseCurrentDriver frees whoever currently holds the booking. Must
// run inside the same transaction as the reassignment.
func releaseCurrentDriver(ctx context.Context, r repository.Repositories, b *domain.Booking) error {
	if b.DriverID == "" {
		return nil
	}

	if b.DriverAcceptance == domain.AcceptanceAccepted {
		d, err := r.Drivers.GetByIDForUpdate(ctx, b.TenantID, b.DriverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		d.Assigned = false
		if err := r.Drivers.Update(ctx, d); err != nil {
			return err
		}
	}

	lg, err := r.Logs.Get(ctx, b.TenantID, b.BookingID, b.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	lg.TripStatus = domain.TripStatusCancelled
	return r.Logs.Update(ctx, lg)
}

// markLogAccepted stamps the dispatch log for the winning driver,
// creating the row if the driver was reached outside a recorded offer.
func markLogAccepted(ctx context.Context, logs repository.DriverLogRepository, tenantID, bookingID, driverID string, at time.Time) error {
	lg, err := logs.Get(ctx, tenantID, bookingID, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return logs.Upsert(ctx, &domain.DriverBookingLog{
				TenantID:   tenantID,
				BookingID:  bookingID,
				DriverID:   driverID,
				OfferedAt:  at,
				AcceptedAt: at,
				TripStatus: domain.TripStatusAccepted,
			})
		}
		return err
	}

	lg.AcceptedAt = at
	lg.TripStatus = domain.TripStatusAccepted
	return logs.Update(ctx, lg)
}

func validateIDs(tenantID, bookingID, driverID string) error {
	if tenantID == "" {
		return ErrInvalidTenantID
	}
	if bookingID == "" {
		return ErrInvalidBookingID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}
	return nil
}

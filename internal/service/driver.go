package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService handles driver registration and presence heartbeats.
type DriverService struct {
	driverRepo    repository.DriverRepository
	bookingRepo   repository.BookingRepository
	presenceStore redis.PresenceStoreInterface
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	bookingRepo repository.BookingRepository,
	presenceStore redis.PresenceStoreInterface,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		bookingRepo:   bookingRepo,
		presenceStore: presenceStore,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	TenantID string
	Name     string
	Phone    string
}

// Register creates a new active driver.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.TenantID == "" {
		return nil, ErrInvalidTenantID
	}

	driver := &domain.Driver{
		TenantID: req.TenantID,
		DriverID: uuid.NewString(),
		Name:     req.Name,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// Get retrieves a driver.
func (s *DriverService) Get(ctx context.Context, tenantID, driverID string) (*domain.Driver, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, tenantID, driverID)
}

// HeartbeatRequest is one presence ping from a driver device.
type HeartbeatRequest struct {
	TenantID  string
	DriverID  string
	Lat       float64
	Lng       float64
	PushToken string
}

// Heartbeat refreshes the driver's presence entry. Inactive drivers are
// kept out of the online set so broadcasts never reach them.
func (s *DriverService) Heartbeat(ctx context.Context, req HeartbeatRequest) error {
	if req.TenantID == "" {
		return ErrInvalidTenantID
	}
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, req.TenantID, req.DriverID)
	if err != nil {
		return err
	}
	if !driver.IsActive {
		return ErrDriverUnavailable
	}

	token := req.PushToken
	if token == "" {
		token = driver.PushToken
	} else if token != driver.PushToken {
		driver.PushToken = token
		if err := s.driverRepo.Update(ctx, driver); err != nil {
			return err
		}
	}

	return s.presenceStore.SetPresence(ctx, req.TenantID, &redis.DriverPresence{
		DriverID:  req.DriverID,
		PushToken: token,
		Lat:       req.Lat,
		Lng:       req.Lng,
		LastSeen:  time.Now(),
	})
}

// GoOffline drops the driver from the online set.
func (s *DriverService) GoOffline(ctx context.Context, tenantID, driverID string) error {
	if tenantID == "" {
		return ErrInvalidTenantID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}
	return s.presenceStore.SetOffline(ctx, tenantID, driverID)
}

// NearbyDrivers returns reachable drivers within radiusKm of a point,
// nearest first. Drivers whose presence entry expired between the geo
// query and the detail read are skipped.
func (s *DriverService) NearbyDrivers(ctx context.Context, tenantID string, lat, lng, radiusKm float64) ([]*redis.DriverPresence, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}

	ids, err := s.presenceStore.FindNearbyDrivers(ctx, tenantID, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}

	nearby := make([]*redis.DriverPresence, 0, len(ids))
	for _, id := range ids {
		p, err := s.presenceStore.GetPresence(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		nearby = append(nearby, p)
	}
	return nearby, nil
}

// CurrentBooking returns the live booking binding the driver, if any.
func (s *DriverService) CurrentBooking(ctx context.Context, tenantID, driverID string) (*domain.Booking, error) {
	if tenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.bookingRepo.GetLiveByDriverID(ctx, tenantID, driverID)
}

package redis

import (
	"context"
	"time"
)

// PresenceStoreInterface defines the interface for driver presence operations.
type PresenceStoreInterface interface {
	SetPresence(ctx context.Context, tenantID string, p *DriverPresence) error
	SetOffline(ctx context.Context, tenantID, driverID string) error
	GetPresence(ctx context.Context, tenantID, driverID string) (*DriverPresence, error)
	GetOnlineDrivers(ctx context.Context, tenantID string) ([]*DriverPresence, error)
	FindNearbyDrivers(ctx context.Context, tenantID string, lat, lng, radiusKm float64) ([]string, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireBroadcastLock(ctx context.Context, tenantID, bookingID string, ttl time.Duration) (bool, error)
	ReleaseBroadcastLock(ctx context.Context, tenantID, bookingID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PresenceStoreInterface = (*PresenceStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)

package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 6. DRIVER REGISTRATION AND PRESENCE
// ──────────────────────────────────────────────

type driverFixture struct {
	drivers  *MockDriverRepository
	bookings *MockBookingRepository
	presence *MockPresenceStore
	svc      *service.DriverService
}

func newDriverFixture() *driverFixture {
	drivers := NewMockDriverRepository()
	bookings := NewMockBookingRepository()
	presence := NewMockPresenceStore()
	return &driverFixture{
		drivers:  drivers,
		bookings: bookings,
		presence: presence,
		svc:      service.NewDriverService(drivers, bookings, presence),
	}
}

func TestRegisterDriver(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()

	driver, err := f.svc.Register(context.Background(), service.RegisterDriverRequest{
		TenantID: "t1",
		Name:     "Kumar",
		Phone:    "9000000001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if driver.DriverID == "" {
		t.Error("expected a generated driver id")
	}
	if !driver.IsActive {
		t.Error("expected new driver to be active")
	}
	if driver.Assigned {
		t.Error("expected new driver to be unassigned")
	}
}

func TestHeartbeat_RefreshesPresence(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()
	f.drivers.AddDriver(activeDriver("d1"))

	err := f.svc.Heartbeat(context.Background(), service.HeartbeatRequest{
		TenantID:  "t1",
		DriverID:  "d1",
		Lat:       13.0827,
		Lng:       80.2707,
		PushToken: "tok-new",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.presence.HasPresence("t1", "d1") {
		t.Error("expected driver to be online")
	}
	// A changed push token is written back to the driver record.
	if got := f.drivers.GetDriver("t1", "d1").PushToken; got != "tok-new" {
		t.Errorf("expected push token persisted, got %q", got)
	}
}

func TestHeartbeat_InactiveDriverRejected(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()
	inactive := activeDriver("d1")
	inactive.IsActive = false
	f.drivers.AddDriver(inactive)

	err := f.svc.Heartbeat(context.Background(), service.HeartbeatRequest{
		TenantID: "t1",
		DriverID: "d1",
	})
	if !errors.Is(err, service.ErrDriverUnavailable) {
		t.Errorf("expected ErrDriverUnavailable, got %v", err)
	}
	if f.presence.HasPresence("t1", "d1") {
		t.Error("inactive driver must not enter the online set")
	}
}

func TestHeartbeat_UnknownDriver(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()

	err := f.svc.Heartbeat(context.Background(), service.HeartbeatRequest{
		TenantID: "t1",
		DriverID: "d-missing",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNearbyDrivers_ReturnsReachableDriversInTenant(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()
	f.drivers.AddDriver(activeDriver("d1"))
	f.drivers.AddDriver(activeDriver("d2"))

	ctx := context.Background()
	for _, hb := range []service.HeartbeatRequest{
		{TenantID: "t1", DriverID: "d1", Lat: 13.0827, Lng: 80.2707},
		{TenantID: "t1", DriverID: "d2", Lat: 13.0674, Lng: 80.2376},
	} {
		if err := f.svc.Heartbeat(ctx, hb); err != nil {
			t.Fatalf("heartbeat failed: %v", err)
		}
	}
	// A driver in another tenant never shows up.
	f.presence.SetOnline("t2", "d9", "tok-9")

	nearby, err := f.svc.NearbyDrivers(ctx, "t1", 13.08, 80.27, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nearby) != 2 {
		t.Fatalf("expected 2 nearby drivers, got %d", len(nearby))
	}
	seen := map[string]bool{}
	for _, p := range nearby {
		seen[p.DriverID] = true
		if p.Lat == 0 && p.Lng == 0 {
			t.Errorf("expected position on driver %s", p.DriverID)
		}
	}
	if !seen["d1"] || !seen["d2"] {
		t.Errorf("expected d1 and d2, got %v", seen)
	}

	if _, err := f.svc.NearbyDrivers(ctx, "", 13.08, 80.27, 5); !errors.Is(err, service.ErrInvalidTenantID) {
		t.Errorf("expected ErrInvalidTenantID, got %v", err)
	}
}

func TestGoOffline_RemovesPresence(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()
	f.drivers.AddDriver(activeDriver("d1"))
	f.presence.SetOnline("t1", "d1", "tok-1")

	if err := f.svc.GoOffline(context.Background(), "t1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.presence.HasPresence("t1", "d1") {
		t.Error("expected driver to be offline")
	}
}

func TestCurrentBooking(t *testing.T) {
	t.Parallel()

	f := newDriverFixture()
	f.bookings.AddBooking(acceptedBooking("b1"))

	booking, err := f.svc.CurrentBooking(context.Background(), "t1", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.BookingID != "b1" {
		t.Errorf("expected booking b1, got %s", booking.BookingID)
	}

	// Terminal bookings do not bind the driver.
	if _, err := f.svc.CurrentBooking(context.Background(), "t1", "d2"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

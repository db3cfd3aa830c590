package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is an in-memory implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

func scopedKey(tenantID, id string) string {
	return tenantID + "/" + id
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[scopedKey(b.TenantID, b.BookingID)] = b
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[scopedKey(b.TenantID, b.BookingID)] = b
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[scopedKey(tenantID, bookingID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *b
	return &copy, nil
}

func (m *MockBookingRepository) GetByIDForUpdate(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	return m.GetByID(ctx, tenantID, bookingID)
}

func (m *MockBookingRepository) GetLiveByDriverID(ctx context.Context, tenantID, driverID string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.TenantID == tenantID && b.DriverID == driverID &&
			b.DriverAcceptance == domain.AcceptanceAccepted && b.Status.IsLive() {
			copy := *b
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(b.TenantID, b.BookingID)
	if _, ok := m.bookings[key]; !ok {
		return repository.ErrNotFound
	}
	copy := *b
	m.bookings[key] = &copy
	return nil
}

func (m *MockBookingRepository) Delete(ctx context.Context, tenantID, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(tenantID, bookingID)
	if _, ok := m.bookings[key]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bookings, key)
	return nil
}

// GetBooking returns a booking for test assertions.
func (m *MockBookingRepository) GetBooking(tenantID, bookingID string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[scopedKey(tenantID, bookingID)]
}

// CountBookings returns the number of stored bookings.
func (m *MockBookingRepository) CountBookings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(d *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[scopedKey(d.TenantID, d.DriverID)] = d
}

func (m *MockDriverRepository) Create(ctx context.Context, d *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[scopedKey(d.TenantID, d.DriverID)] = d
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, tenantID, driverID string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[scopedKey(tenantID, driverID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *d
	return &copy, nil
}

func (m *MockDriverRepository) GetByIDForUpdate(ctx context.Context, tenantID, driverID string) (*domain.Driver, error) {
	return m.GetByID(ctx, tenantID, driverID)
}

func (m *MockDriverRepository) GetAllActive(ctx context.Context, tenantID string) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		if d.TenantID == tenantID && d.IsActive {
			copy := *d
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockDriverRepository) Update(ctx context.Context, d *domain.Driver) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(d.TenantID, d.DriverID)
	if _, ok := m.drivers[key]; !ok {
		return repository.ErrNotFound
	}
	copy := *d
	m.drivers[key] = &copy
	return nil
}

// GetDriver returns a driver for test assertions.
func (m *MockDriverRepository) GetDriver(tenantID, driverID string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[scopedKey(tenantID, driverID)]
}

// ──────────────────────────────────────────────
// MOCK DRIVER LOG REPOSITORY
// ──────────────────────────────────────────────

// MockDriverLogRepository is an in-memory implementation of DriverLogRepository.
type MockDriverLogRepository struct {
	mu   sync.RWMutex
	logs map[string]*domain.DriverBookingLog
	seq  int

	// Counters for verification
	UpsertCallCount int32
	UpdateCallCount int32

	// Error injection
	UpsertError error
	UpdateError error
}

// NewMockDriverLogRepository creates a new mock driver log repository.
func NewMockDriverLogRepository() *MockDriverLogRepository {
	return &MockDriverLogRepository{
		logs: make(map[string]*domain.DriverBookingLog),
	}
}

func logKey(tenantID, bookingID, driverID string) string {
	return tenantID + "/" + bookingID + "/" + driverID
}

func (m *MockDriverLogRepository) Upsert(ctx context.Context, lg *domain.DriverBookingLog) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := logKey(lg.TenantID, lg.BookingID, lg.DriverID)
	if existing, ok := m.logs[key]; ok {
		existing.OfferedAt = lg.OfferedAt
		existing.TripStatus = lg.TripStatus
		lg.ID = existing.ID
		return nil
	}
	if lg.ID == "" {
		m.seq++
		lg.ID = fmt.Sprintf("log-%d", m.seq)
	}
	copy := *lg
	m.logs[key] = &copy
	return nil
}

func (m *MockDriverLogRepository) Get(ctx context.Context, tenantID, bookingID, driverID string) (*domain.DriverBookingLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lg, ok := m.logs[logKey(tenantID, bookingID, driverID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *lg
	return &copy, nil
}

func (m *MockDriverLogRepository) Update(ctx context.Context, lg *domain.DriverBookingLog) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := logKey(lg.TenantID, lg.BookingID, lg.DriverID)
	if _, ok := m.logs[key]; !ok {
		return repository.ErrNotFound
	}
	copy := *lg
	m.logs[key] = &copy
	return nil
}

// GetLog returns a log row for test assertions.
func (m *MockDriverLogRepository) GetLog(tenantID, bookingID, driverID string) *domain.DriverBookingLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logs[logKey(tenantID, bookingID, driverID)]
}

// CountLogs returns the number of log rows.
func (m *MockDriverLogRepository) CountLogs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs)
}

// ──────────────────────────────────────────────
// MOCK RATE CARD REPOSITORY
// ──────────────────────────────────────────────

// MockRateCardRepository is an in-memory implementation of RateCardRepository.
type MockRateCardRepository struct {
	mu    sync.RWMutex
	cards map[string]*domain.RateCard
	pkgs  map[string]*domain.HourlyPackage
}

// NewMockRateCardRepository creates a new mock rate card repository.
func NewMockRateCardRepository() *MockRateCardRepository {
	return &MockRateCardRepository{
		cards: make(map[string]*domain.RateCard),
		pkgs:  make(map[string]*domain.HourlyPackage),
	}
}

// AddRateCard registers a rate card for a tenant and service.
func (m *MockRateCardRepository) AddRateCard(card *domain.RateCard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.TenantID+"/"+string(card.ServiceType)] = card
}

// AddHourlyPackage registers an hourly package.
func (m *MockRateCardRepository) AddHourlyPackage(pkg *domain.HourlyPackage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pkgs[pkg.TenantID+"/"+pkg.PackageID] = pkg
}

func (m *MockRateCardRepository) GetByService(ctx context.Context, tenantID string, svc domain.ServiceType) (*domain.RateCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	card, ok := m.cards[tenantID+"/"+string(svc)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *card
	return &copy, nil
}

func (m *MockRateCardRepository) GetHourlyPackage(ctx context.Context, tenantID, packageID string) (*domain.HourlyPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pkg, ok := m.pkgs[tenantID+"/"+packageID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *pkg
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWork runs transactions against the in-memory repositories.
// A single mutex serializes InTx calls the way row locks serialize the
// real transactions, so concurrent accepts resolve one at a time.
type MockUnitOfWork struct {
	mu sync.Mutex

	Bookings *MockBookingRepository
	Drivers  *MockDriverRepository
	Logs     *MockDriverLogRepository

	// Counters for verification
	InTxCallCount int32

	// Error injection
	InTxError error
}

// NewMockUnitOfWork creates a unit of work over fresh mock repositories.
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Bookings: NewMockBookingRepository(),
		Drivers:  NewMockDriverRepository(),
		Logs:     NewMockDriverLogRepository(),
	}
}

func (m *MockUnitOfWork) InTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	atomic.AddInt32(&m.InTxCallCount, 1)
	if m.InTxError != nil {
		return m.InTxError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(repository.Repositories{
		Bookings: m.Bookings,
		Drivers:  m.Drivers,
		Logs:     m.Logs,
	})
}

// ──────────────────────────────────────────────
// MOCK PRESENCE STORE
// ──────────────────────────────────────────────

// MockPresenceStore is an in-memory implementation of PresenceStoreInterface.
type MockPresenceStore struct {
	mu       sync.RWMutex
	presence map[string]*redis.DriverPresence

	// Error injection
	SetPresenceError      error
	GetOnlineDriversError error
}

// NewMockPresenceStore creates a new mock presence store.
func NewMockPresenceStore() *MockPresenceStore {
	return &MockPresenceStore{
		presence: make(map[string]*redis.DriverPresence),
	}
}

// SetOnline marks a driver online for test setup.
func (m *MockPresenceStore) SetOnline(tenantID, driverID, pushToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence[scopedKey(tenantID, driverID)] = &redis.DriverPresence{
		DriverID:  driverID,
		PushToken: pushToken,
		LastSeen:  time.Now(),
	}
}

func (m *MockPresenceStore) SetPresence(ctx context.Context, tenantID string, p *redis.DriverPresence) error {
	if m.SetPresenceError != nil {
		return m.SetPresenceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence[scopedKey(tenantID, p.DriverID)] = p
	return nil
}

func (m *MockPresenceStore) SetOffline(ctx context.Context, tenantID, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presence, scopedKey(tenantID, driverID))
	return nil
}

func (m *MockPresenceStore) GetPresence(ctx context.Context, tenantID, driverID string) (*redis.DriverPresence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presence[scopedKey(tenantID, driverID)]
	if !ok {
		return nil, nil
	}
	copy := *p
	return &copy, nil
}

func (m *MockPresenceStore) GetOnlineDrivers(ctx context.Context, tenantID string) ([]*redis.DriverPresence, error) {
	if m.GetOnlineDriversError != nil {
		return nil, m.GetOnlineDriversError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := tenantID + "/"
	result := make([]*redis.DriverPresence, 0, len(m.presence))
	for key, p := range m.presence {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockPresenceStore) FindNearbyDrivers(ctx context.Context, tenantID string, lat, lng, radiusKm float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// The mock does not do real geo filtering.
	prefix := tenantID + "/"
	var ids []string
	for key, p := range m.presence {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			ids = append(ids, p.DriverID)
		}
	}
	return ids, nil
}

// HasPresence checks whether a driver is online, for test assertions.
func (m *MockPresenceStore) HasPresence(tenantID, driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.presence[scopedKey(tenantID, driverID)]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireBroadcastLock(ctx context.Context, tenantID, bookingID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scopedKey(tenantID, bookingID)
	if expiry, exists := m.locks[key]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseBroadcastLock(ctx context.Context, tenantID, bookingID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scopedKey(tenantID, bookingID))
	return nil
}

// IsLocked checks whether a broadcast lock is held, for test assertions.
func (m *MockLockStore) IsLocked(tenantID, bookingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[scopedKey(tenantID, bookingID)]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records every notification instead of delivering it.
type MockNotifier struct {
	mu   sync.Mutex
	sent []service.Notification

	// Error injection
	NotifyError error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyDriver(ctx context.Context, n service.Notification) error {
	if m.NotifyError != nil {
		return m.NotifyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *MockNotifier) NotifyDrivers(ctx context.Context, ns []service.Notification) error {
	if m.NotifyError != nil {
		return m.NotifyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, ns...)
	return nil
}

// Sent returns a snapshot of recorded notifications.
func (m *MockNotifier) Sent() []service.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]service.Notification, len(m.sent))
	copy(result, m.sent)
	return result
}

// SentTo counts notifications of a type sent to a recipient.
func (m *MockNotifier) SentTo(recipientID string, typ service.NotificationType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.sent {
		if n.RecipientID == recipientID && n.Type == typ {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK ROUTE PROVIDER
// ──────────────────────────────────────────────

// MockRouteProvider returns a fixed route.
type MockRouteProvider struct {
	Route service.Route

	// Error injection
	ResolveError error
}

func (m *MockRouteProvider) Resolve(ctx context.Context, pickup, drop string, stops []string) (*service.Route, error) {
	if m.ResolveError != nil {
		return nil, m.ResolveError
	}
	route := m.Route
	return &route, nil
}

// ──────────────────────────────────────────────
// MOCK DISCOUNT PROVIDER
// ──────────────────────────────────────────────

// MockDiscountProvider returns a fixed discount reference.
type MockDiscountProvider struct {
	Discount *domain.Discount

	// Error injection
	ResolveError error
}

func (m *MockDiscountProvider) Resolve(ctx context.Context, tenantID, offerID, promoCodeID string) (*domain.Discount, error) {
	if m.ResolveError != nil {
		return nil, m.ResolveError
	}
	return m.Discount, nil
}

// Ensure mocks satisfy the interfaces they stand in for.
var (
	_ repository.BookingRepository   = (*MockBookingRepository)(nil)
	_ repository.DriverRepository    = (*MockDriverRepository)(nil)
	_ repository.DriverLogRepository = (*MockDriverLogRepository)(nil)
	_ repository.RateCardRepository  = (*MockRateCardRepository)(nil)
	_ repository.UnitOfWork          = (*MockUnitOfWork)(nil)
	_ redis.PresenceStoreInterface   = (*MockPresenceStore)(nil)
	_ redis.LockStoreInterface       = (*MockLockStore)(nil)
	_ service.Notifier               = (*MockNotifier)(nil)
	_ service.RouteProvider          = (*MockRouteProvider)(nil)
	_ service.DiscountProvider       = (*MockDiscountProvider)(nil)
)

// decimalEqual reports whether two decimals are numerically equal.
func decimalEqual(a, b decimal.Decimal) bool {
	return a.Cmp(b) == 0
}

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"dispatch/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingOffered NotificationType = "BOOKING_OFFERED"
	NotificationBookingTaken   NotificationType = "BOOKING_TAKEN"
	NotificationDriverAssigned NotificationType = "DRIVER_ASSIGNED"
	NotificationDriverRejected NotificationType = "DRIVER_REJECTED"
	NotificationTripStarted    NotificationType = "TRIP_STARTED"
	NotificationTripCompleted  NotificationType = "TRIP_COMPLETED"
	NotificationBookingCancel  NotificationType = "BOOKING_CANCELLED"
)

// Notification represents a push message to a driver or customer app.
type Notification struct {
	Type        NotificationType
	RecipientID string
	PushToken   string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// Notifier delivers notifications. Delivery is best effort and always
// happens after the database transaction commits; a failed push never
// rolls back booking state.
type Notifier interface {
	NotifyDriver(ctx context.Context, n Notification) error
	NotifyDrivers(ctx context.Context, ns []Notification) error
}

// NotificationService is a log-backed Notifier. A production build
// would plug FCM/APNS behind the same interface.
type NotificationService struct{}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyDriver delivers one notification.
func (s *NotificationService) NotifyDriver(ctx context.Context, n Notification) error {
	return s.send(ctx, n)
}

// NotifyDrivers delivers a batch of notifications, continuing past
// individual failures.
func (s *NotificationService) NotifyDrivers(ctx context.Context, ns []Notification) error {
	for _, n := range ns {
		_ = s.send(ctx, n)
	}
	return nil
}

// OfferNotification builds the push sent to a driver when a booking is
// offered to them.
func OfferNotification(b *domain.Booking, driverID, pushToken string) Notification {
	return Notification{
		Type:        NotificationBookingOffered,
		RecipientID: driverID,
		PushToken:   pushToken,
		Title:       "New Booking",
		Message:     fmt.Sprintf("%s trip from %s", b.ServiceType, b.Pickup),
		Data: map[string]interface{}{
			"booking_id":   b.BookingID,
			"service_type": b.ServiceType,
			"pickup":       b.Pickup,
			"drop":         b.Drop,
			"pickup_at":    b.PickupAt,
		},
		CreatedAt: time.Now(),
	}
}

// TakenNotification builds the push sent to the losing drivers of a
// broadcast once someone else has accepted.
func TakenNotification(b *domain.Booking, driverID, pushToken string) Notification {
	return Notification{
		Type:        NotificationBookingTaken,
		RecipientID: driverID,
		PushToken:   pushToken,
		Title:       "Booking Taken",
		Message:     "This booking has been accepted by another driver",
		Data: map[string]interface{}{
			"booking_id": b.BookingID,
		},
		CreatedAt: time.Now(),
	}
}

// CancelNotification builds the push sent to the assigned driver when a
// booking is cancelled.
func CancelNotification(b *domain.Booking, driverID, pushToken string) Notification {
	return Notification{
		Type:        NotificationBookingCancel,
		RecipientID: driverID,
		PushToken:   pushToken,
		Title:       "Booking Cancelled",
		Message:     fmt.Sprintf("Booking %s has been cancelled", b.BookingID),
		Data: map[string]interface{}{
			"booking_id": b.BookingID,
		},
		CreatedAt: time.Now(),
	}
}

// send delivers a notification (log implementation).
func (s *NotificationService) send(_ context.Context, n Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		n.Type, n.RecipientID, n.Title, n.Message)
	return nil
}

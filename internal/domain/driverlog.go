package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus is the terminal status of a dispatch attempt.
type TripStatus string

const (
	TripStatusOffered   TripStatus = "Offered"
	TripStatusAccepted  TripStatus = "Driver Accepted"
	TripStatusStarted   TripStatus = "Started"
	TripStatusCompleted TripStatus = "Completed"
	TripStatusCancelled TripStatus = "Cancelled"
)

// DriverBookingLog is one row per (booking, driver) dispatch attempt.
// Created when a driver is targeted, updated as the trip progresses,
// never deleted.
type DriverBookingLog struct {
	ID                   string
	TenantID             string
	BookingID            string
	DriverID             string
	OfferedAt            time.Time
	AcceptedAt           time.Time
	TripStartedAt        time.Time
	TripCompletedAt      time.Time
	ActiveDrivingMinutes int
	TraveledDistance     float64
	NetEarnings          decimal.Decimal
	DeductionAmount      decimal.Decimal
	TripStatus           TripStatus
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus represents the current lifecycle state of a booking.
type BookingStatus string

const (
	StatusBookingConfirmed BookingStatus = "Booking Confirmed"
	StatusReassign         BookingStatus = "Reassign"
	StatusNotStarted       BookingStatus = "Not-Started"
	StatusStarted          BookingStatus = "Started"
	StatusCompleted        BookingStatus = "Completed"
	StatusManualCompleted  BookingStatus = "Manual Completed"
	StatusCancelled        BookingStatus = "Cancelled"
)

// ServiceType represents the trip product a booking was made against.
type ServiceType string

const (
	ServiceOneWay        ServiceType = "One Way"
	ServiceRoundTrip     ServiceType = "Round Trip"
	ServiceHourlyPackage ServiceType = "Hourly Package"
)

// Acceptance represents the driver's response state on a booking.
type Acceptance string

const (
	AcceptanceNone     Acceptance = ""
	AcceptancePending  Acceptance = "pending"
	AcceptanceAccepted Acceptance = "accepted"
	AcceptanceRejected Acceptance = "rejected"
)

// CreatedBy identifies who originated the booking. Vendor-originated
// bookings follow a different commission split at settlement.
type CreatedBy string

const (
	CreatedByAdmin  CreatedBy = "Admin"
	CreatedByVendor CreatedBy = "Vendor"
	CreatedByUser   CreatedBy = "User"
)

// Booking is the central aggregate: route, frozen fare snapshots,
// assignment state, trip-completion fields and settlement outputs.
type Booking struct {
	TenantID   string
	BookingID  string
	VendorID   string
	CustomerID string
	CreatedBy  CreatedBy

	ServiceType ServiceType
	PackageID   string
	Pickup      string
	Drop        string
	Stops       []string
	PickupAt    time.Time
	DropAt      time.Time
	Days        int

	// Fare inputs, frozen at creation.
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
	TaxAmount            decimal.Decimal
	ConvenienceFee       decimal.Decimal
	DiscountAmount       decimal.Decimal
	AdvanceAmount        decimal.Decimal
	MinKm                float64
	Distance             float64
	Duration             string
	EstimatedAmount      decimal.Decimal
	FinalAmount          decimal.Decimal
	OfferID              string
	PromoCodeID          string

	// Frozen fare snapshots, never silently recomputed.
	NormalFare   *FareSnapshot
	ModifiedFare *FareSnapshot

	// Assignment state.
	DriverID             string
	DriverName           string
	DriverPhone          string
	DriverAcceptance     Acceptance
	AssignedToAllDrivers bool
	RequestSentAt        time.Time
	AcceptedAt           time.Time

	Status BookingStatus

	// Trip completion inputs.
	StartOTP      string
	EndOTP        string
	StartOdometer float64
	EndOdometer   float64
	TripStartedAt time.Time
	TripEndedAt   time.Time
	DriverCharges map[string]decimal.Decimal
	ExtraCharges  map[string]decimal.Decimal

	// Settlement outputs, populated only after completion.
	CompletedDistance     float64
	CompletedDuration     string
	CompletedBaseAmount   decimal.Decimal
	CompletedTaxAmount    decimal.Decimal
	CompletedFinalAmount  decimal.Decimal
	DriverDeductionAmount decimal.Decimal
	DriverBreakup         *CommissionBreakup
	VendorBreakup         *VendorBreakup
	AdminCommission       decimal.Decimal
	VendorEarnings        decimal.Decimal

	PaymentStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the booking record is sealed. Terminal
// bookings are immutable except for payment-status fields.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusManualCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsLive reports whether a booking in this state binds its accepted
// driver. A driver may hold at most one live booking at a time.
func (s BookingStatus) IsLive() bool {
	return s == StatusNotStarted || s == StatusStarted
}

// CanAssign reports whether a driver may be (re)assigned in this state.
func (s BookingStatus) CanAssign() bool {
	return !s.IsTerminal() && s != StatusStarted
}

// CanCancel reports whether the booking may still be cancelled.
// Cancellation is only legal before the trip physically starts.
func (s BookingStatus) CanCancel() bool {
	switch s {
	case StatusBookingConfirmed, StatusReassign, StatusNotStarted:
		return true
	}
	return false
}

// CanDelete reports whether the record may be removed. Deletion is
// rejected once the trip has started.
func (s BookingStatus) CanDelete() bool {
	switch s {
	case StatusStarted, StatusCompleted, StatusManualCompleted:
		return false
	}
	return true
}

// transitions is the legal state machine. Reassign is re-entrant into
// the assignment step; no transition skips a state.
var transitions = map[BookingStatus][]BookingStatus{
	StatusBookingConfirmed: {StatusBookingConfirmed, StatusNotStarted, StatusReassign, StatusCancelled},
	StatusReassign:         {StatusBookingConfirmed, StatusCancelled},
	StatusNotStarted:       {StatusBookingConfirmed, StatusStarted, StatusReassign, StatusCancelled},
	StatusStarted:          {StatusCompleted, StatusManualCompleted},
}

// CanTransition reports whether moving from s to next is legal.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

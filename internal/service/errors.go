package service

import "errors"

var (
	// ErrInvalidTenantID is returned when tenant ID is empty.
	ErrInvalidTenantID = errors.New("invalid tenant id")

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidServiceType is returned when the service type is unknown.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidDateRange is returned when the drop date is before the pickup date.
	ErrInvalidDateRange = errors.New("drop date before pickup date")

	// ErrInvalidDistance is returned when the trip distance is negative.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrInvalidState is returned when the booking is not in a state that
	// permits the requested operation.
	ErrInvalidState = errors.New("booking not in a valid state for this operation")

	// ErrDriverAlreadyAssigned is returned when the driver is bound to
	// another live booking.
	ErrDriverAlreadyAssigned = errors.New("driver already on an active booking")

	// ErrDriverUnavailable is returned when the target driver is inactive.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrNoDriversAvailable is returned when a broadcast finds no one to offer to.
	ErrNoDriversAvailable = errors.New("no drivers available")

	// ErrOfferNotPending is returned when accepting or rejecting an offer
	// that is no longer open.
	ErrOfferNotPending = errors.New("offer no longer pending")

	// ErrOfferNotForDriver is returned when a driver responds to an offer
	// that was not directed at them.
	ErrOfferNotForDriver = errors.New("offer not directed at this driver")

	// ErrBroadcastInFlight is returned when a broadcast for the booking is
	// already being fanned out.
	ErrBroadcastInFlight = errors.New("broadcast already in flight")

	// ErrInvalidOTP is returned when the start or end code does not match.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrOdometerOrder is returned when the end odometer reads below the start.
	ErrOdometerOrder = errors.New("end odometer below start odometer")

	// ErrTripNotStarted is returned when ending a trip that never started.
	ErrTripNotStarted = errors.New("trip not started")

	// ErrCannotCancel is returned when cancelling after the trip started.
	ErrCannotCancel = errors.New("booking can no longer be cancelled")

	// ErrCannotDelete is returned when deleting a started or completed booking.
	ErrCannotDelete = errors.New("booking cannot be deleted in current state")
)

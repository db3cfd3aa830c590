package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dispatch/internal/service"
)

// TripHandler handles HTTP requests for the physical trip flow.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// StartTripRequest is the HTTP request body for starting a trip.
type StartTripRequest struct {
	DriverID      string  `json:"driver_id"`
	OTP           string  `json:"otp"`
	StartOdometer float64 `json:"start_odometer"`
}

// EndTripRequest is the HTTP request body for ending a trip.
type EndTripRequest struct {
	DriverID      string                     `json:"driver_id"`
	OTP           string                     `json:"otp"`
	EndOdometer   float64                    `json:"end_odometer"`
	DriverCharges map[string]decimal.Decimal `json:"driver_charges,omitempty"`
	ExtraCharges  map[string]decimal.Decimal `json:"extra_charges,omitempty"`
}

// ManualCompleteRequest is the HTTP request body for back-office completion.
type ManualCompleteRequest struct {
	EndOdometer   float64                    `json:"end_odometer"`
	EndedAt       string                     `json:"ended_at,omitempty"`
	DriverCharges map[string]decimal.Decimal `json:"driver_charges,omitempty"`
	ExtraCharges  map[string]decimal.Decimal `json:"extra_charges,omitempty"`
}

// StartTrip handles POST /v1/bookings/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		TenantID:      tenantID(c),
		BookingID:     c.Param("id"),
		DriverID:      req.DriverID,
		OTP:           req.OTP,
		StartOdometer: req.StartOdometer,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// EndTrip handles POST /v1/bookings/:id/end
func (h *TripHandler) EndTrip(c *gin.Context) {
	var req EndTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.tripService.EndTrip(c.Request.Context(), service.EndTripRequest{
		TenantID:      tenantID(c),
		BookingID:     c.Param("id"),
		DriverID:      req.DriverID,
		OTP:           req.OTP,
		EndOdometer:   req.EndOdometer,
		DriverCharges: req.DriverCharges,
		ExtraCharges:  req.ExtraCharges,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// ManualComplete handles POST /v1/bookings/:id/manual-complete
func (h *TripHandler) ManualComplete(c *gin.Context) {
	var req ManualCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var endedAt time.Time
	if req.EndedAt != "" {
		var err error
		endedAt, err = time.Parse(time.RFC3339, req.EndedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid ended_at timestamp"})
			return
		}
	}

	booking, err := h.tripService.ManualComplete(c.Request.Context(), service.ManualCompleteRequest{
		TenantID:      tenantID(c),
		BookingID:     c.Param("id"),
		EndOdometer:   req.EndOdometer,
		EndedAt:       endedAt,
		DriverCharges: req.DriverCharges,
		ExtraCharges:  req.ExtraCharges,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

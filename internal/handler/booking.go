package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService  *service.BookingService
	dispatchService *service.DispatchService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, dispatchService *service.DispatchService) *BookingHandler {
	return &BookingHandler{
		bookingService:  bookingService,
		dispatchService: dispatchService,
	}
}

// FareFieldsRequest carries the fare inputs shared by estimate and create.
type FareFieldsRequest struct {
	ServiceType string   `json:"service_type"`
	PackageID   string   `json:"package_id,omitempty"`
	Pickup      string   `json:"pickup"`
	Drop        string   `json:"drop"`
	Stops       []string `json:"stops,omitempty"`
	PickupAt    string   `json:"pickup_at"`
	DropAt      string   `json:"drop_at,omitempty"`
	DistanceKm  float64  `json:"distance_km,omitempty"`

	PerKmRate            decimal.Decimal `json:"price_per_km"`
	ExtraPerKmRate       decimal.Decimal `json:"extra_price_per_km"`
	DriverAllowance      decimal.Decimal `json:"driver_allowance"`
	ExtraDriverAllowance decimal.Decimal `json:"extra_driver_allowance"`
	Toll                 decimal.Decimal `json:"toll"`
	Hill                 decimal.Decimal `json:"hill"`
	PermitCharge         decimal.Decimal `json:"permit_charge"`
	ExtraToll            decimal.Decimal `json:"extra_toll"`
	ExtraHill            decimal.Decimal `json:"extra_hill"`
	ExtraPermitCharge    decimal.Decimal `json:"extra_permit_charge"`
	TaxPercent           decimal.Decimal `json:"tax_percentage"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	FareFieldsRequest

	VendorID       string          `json:"vendor_id,omitempty"`
	CustomerID     string          `json:"customer_id"`
	CreatedBy      string          `json:"created_by"`
	ConvenienceFee decimal.Decimal `json:"convenience_fee"`
	AdvanceAmount  decimal.Decimal `json:"advance_amount"`
	OfferID        string          `json:"offer_id,omitempty"`
	PromoCodeID    string          `json:"promo_code_id,omitempty"`
}

// AssignDriverRequest is the HTTP request body for a targeted assignment.
type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	BookingID   string   `json:"booking_id"`
	VendorID    string   `json:"vendor_id,omitempty"`
	CustomerID  string   `json:"customer_id,omitempty"`
	CreatedBy   string   `json:"created_by"`
	ServiceType string   `json:"service_type"`
	Pickup      string   `json:"pickup"`
	Drop        string   `json:"drop"`
	Stops       []string `json:"stops,omitempty"`
	PickupAt    string   `json:"pickup_at,omitempty"`
	DropAt      string   `json:"drop_at,omitempty"`
	Days        int      `json:"days"`
	Distance    float64  `json:"distance"`
	Duration    string   `json:"duration,omitempty"`

	EstimatedAmount decimal.Decimal      `json:"estimated_amount"`
	FinalAmount     decimal.Decimal      `json:"final_amount"`
	NormalFare      *domain.FareSnapshot `json:"normal_fare,omitempty"`
	ModifiedFare    *domain.FareSnapshot `json:"modified_fare,omitempty"`

	DriverID             string `json:"driver_id,omitempty"`
	DriverName           string `json:"driver_name,omitempty"`
	DriverPhone          string `json:"driver_phone,omitempty"`
	DriverAcceptance     string `json:"driver_acceptance,omitempty"`
	AssignedToAllDrivers bool   `json:"assigned_to_all_drivers"`
	Status               string `json:"status"`

	StartOTP string `json:"start_otp,omitempty"`
	EndOTP   string `json:"end_otp,omitempty"`

	CompletedDistance     float64                   `json:"completed_distance,omitempty"`
	CompletedDuration     string                    `json:"completed_duration,omitempty"`
	CompletedBaseAmount   decimal.Decimal           `json:"completed_base_amount"`
	CompletedTaxAmount    decimal.Decimal           `json:"completed_tax_amount"`
	CompletedFinalAmount  decimal.Decimal           `json:"completed_final_amount"`
	DriverDeductionAmount decimal.Decimal           `json:"driver_deduction_amount"`
	DriverBreakup         *domain.CommissionBreakup `json:"driver_breakup,omitempty"`
	VendorBreakup         *domain.VendorBreakup     `json:"vendor_breakup,omitempty"`
	AdminCommission       decimal.Decimal           `json:"admin_commission"`
	VendorEarnings        decimal.Decimal           `json:"vendor_earnings"`
}

// BroadcastResponse is the HTTP response for a broadcast assignment.
type BroadcastResponse struct {
	Booking        BookingResponse `json:"booking"`
	DriversOffered int             `json:"drivers_offered"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickupAt, dropAt, err := parseTripTimes(req.PickupAt, req.DropAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.bookingService.Create(c.Request.Context(), service.CreateBookingRequest{
		TenantID:             tenantID(c),
		VendorID:             req.VendorID,
		CustomerID:           req.CustomerID,
		CreatedBy:            domain.CreatedBy(req.CreatedBy),
		ServiceType:          domain.ServiceType(req.ServiceType),
		PackageID:            req.PackageID,
		Pickup:               req.Pickup,
		Drop:                 req.Drop,
		Stops:                req.Stops,
		PickupAt:             pickupAt,
		DropAt:               dropAt,
		DistanceKm:           req.DistanceKm,
		PerKmRate:            req.PerKmRate,
		ExtraPerKmRate:       req.ExtraPerKmRate,
		DriverAllowance:      req.DriverAllowance,
		ExtraDriverAllowance: req.ExtraDriverAllowance,
		Toll:                 req.Toll,
		Hill:                 req.Hill,
		PermitCharge:         req.PermitCharge,
		ExtraToll:            req.ExtraToll,
		ExtraHill:            req.ExtraHill,
		ExtraPermitCharge:    req.ExtraPermitCharge,
		TaxPercent:           req.TaxPercent,
		ConvenienceFee:       req.ConvenienceFee,
		DiscountAmount:       req.DiscountAmount,
		AdvanceAmount:        req.AdvanceAmount,
		OfferID:              req.OfferID,
		PromoCodeID:          req.PromoCodeID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// EstimateFare handles POST /v1/bookings/estimate
func (h *BookingHandler) EstimateFare(c *gin.Context) {
	var req FareFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickupAt, dropAt, err := parseTripTimes(req.PickupAt, req.DropAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	fare, err := h.bookingService.Estimate(c.Request.Context(), service.EstimateRequest{
		TenantID:             tenantID(c),
		ServiceType:          domain.ServiceType(req.ServiceType),
		PackageID:            req.PackageID,
		Pickup:               req.Pickup,
		Drop:                 req.Drop,
		Stops:                req.Stops,
		PickupAt:             pickupAt,
		DropAt:               dropAt,
		DistanceKm:           req.DistanceKm,
		PerKmRate:            req.PerKmRate,
		ExtraPerKmRate:       req.ExtraPerKmRate,
		DriverAllowance:      req.DriverAllowance,
		ExtraDriverAllowance: req.ExtraDriverAllowance,
		Toll:                 req.Toll,
		Hill:                 req.Hill,
		PermitCharge:         req.PermitCharge,
		ExtraToll:            req.ExtraToll,
		ExtraHill:            req.ExtraHill,
		ExtraPermitCharge:    req.ExtraPermitCharge,
		TaxPercent:           req.TaxPercent,
		DiscountAmount:       req.DiscountAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, fare)
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.Get(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// AssignDriver handles POST /v1/bookings/:id/assign
func (h *BookingHandler) AssignDriver(c *gin.Context) {
	var req AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.dispatchService.AssignDriver(c.Request.Context(), tenantID(c), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// AssignAllDrivers handles POST /v1/bookings/:id/assign-all
func (h *BookingHandler) AssignAllDrivers(c *gin.Context) {
	booking, offered, err := h.dispatchService.AssignAllDrivers(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, BroadcastResponse{
		Booking:        toBookingResponse(booking),
		DriversOffered: offered,
	})
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.dispatchService.CancelBooking(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// DeleteBooking handles DELETE /v1/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	if err := h.bookingService.Delete(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		BookingID:   b.BookingID,
		VendorID:    b.VendorID,
		CustomerID:  b.CustomerID,
		CreatedBy:   string(b.CreatedBy),
		ServiceType: string(b.ServiceType),
		Pickup:      b.Pickup,
		Drop:        b.Drop,
		Stops:       b.Stops,
		Days:        b.Days,
		Distance:    b.Distance,
		Duration:    b.Duration,

		EstimatedAmount: b.EstimatedAmount,
		FinalAmount:     b.FinalAmount,
		NormalFare:      b.NormalFare,
		ModifiedFare:    b.ModifiedFare,

		DriverID:             b.DriverID,
		DriverName:           b.DriverName,
		DriverPhone:          b.DriverPhone,
		DriverAcceptance:     string(b.DriverAcceptance),
		AssignedToAllDrivers: b.AssignedToAllDrivers,
		Status:               string(b.Status),

		StartOTP: b.StartOTP,
		EndOTP:   b.EndOTP,

		CompletedDistance:     b.CompletedDistance,
		CompletedDuration:     b.CompletedDuration,
		CompletedBaseAmount:   b.CompletedBaseAmount,
		CompletedTaxAmount:    b.CompletedTaxAmount,
		CompletedFinalAmount:  b.CompletedFinalAmount,
		DriverDeductionAmount: b.DriverDeductionAmount,
		DriverBreakup:         b.DriverBreakup,
		VendorBreakup:         b.VendorBreakup,
		AdminCommission:       b.AdminCommission,
		VendorEarnings:        b.VendorEarnings,
	}

	if !b.PickupAt.IsZero() {
		resp.PickupAt = b.PickupAt.Format(time.RFC3339)
	}
	if !b.DropAt.IsZero() {
		resp.DropAt = b.DropAt.Format(time.RFC3339)
	}
	return resp
}

// parseTripTimes parses the RFC3339 pickup and optional drop timestamps.
func parseTripTimes(pickup, drop string) (time.Time, time.Time, error) {
	var pickupAt, dropAt time.Time
	var err error

	if pickup != "" {
		pickupAt, err = time.Parse(time.RFC3339, pickup)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if drop != "" {
		dropAt, err = time.Parse(time.RFC3339, drop)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return pickupAt, dropAt, nil
}

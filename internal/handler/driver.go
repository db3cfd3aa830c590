package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests for the driver-side API.
type DriverHandler struct {
	driverService   *service.DriverService
	dispatchService *service.DispatchService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService, dispatchService *service.DispatchService) *DriverHandler {
	return &DriverHandler{
		driverService:   driverService,
		dispatchService: dispatchService,
	}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// HeartbeatRequest is the HTTP request body for a presence ping.
type HeartbeatRequest struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	PushToken string  `json:"push_token,omitempty"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	DriverID      string          `json:"driver_id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	IsActive      bool            `json:"is_active"`
	Assigned      bool            `json:"assigned"`
	BookingCount  int             `json:"booking_count"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

// RegisterDriver handles POST /v1/drivers
func (h *DriverHandler) RegisterDriver(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		TenantID: tenantID(c),
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.Get(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// Heartbeat handles POST /v1/drivers/:id/heartbeat
func (h *DriverHandler) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.driverService.Heartbeat(c.Request.Context(), service.HeartbeatRequest{
		TenantID:  tenantID(c),
		DriverID:  c.Param("id"),
		Lat:       req.Lat,
		Lng:       req.Lng,
		PushToken: req.PushToken,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NearbyDriverResponse is one reachable driver near a point.
type NearbyDriverResponse struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	LastSeen string  `json:"last_seen"`
}

// NearbyDrivers handles GET /v1/drivers/nearby
func (h *DriverHandler) NearbyDrivers(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}
	radiusKm := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid radius_km"})
			return
		}
		radiusKm = r
	}

	nearby, err := h.driverService.NearbyDrivers(c.Request.Context(), tenantID(c), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]NearbyDriverResponse, 0, len(nearby))
	for _, p := range nearby {
		resp = append(resp, NearbyDriverResponse{
			DriverID: p.DriverID,
			Lat:      p.Lat,
			Lng:      p.Lng,
			LastSeen: p.LastSeen.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, gin.H{"drivers": resp})
}

// GoOffline handles POST /v1/drivers/:id/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	if err := h.driverService.GoOffline(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AcceptBooking handles POST /v1/drivers/:id/bookings/:bookingId/accept
func (h *DriverHandler) AcceptBooking(c *gin.Context) {
	booking, err := h.dispatchService.AcceptBooking(c.Request.Context(), tenantID(c), c.Param("bookingId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// RejectBooking handles POST /v1/drivers/:id/bookings/:bookingId/reject
func (h *DriverHandler) RejectBooking(c *gin.Context) {
	booking, err := h.dispatchService.RejectBooking(c.Request.Context(), tenantID(c), c.Param("bookingId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CurrentBooking handles GET /v1/drivers/:id/bookings/current
func (h *DriverHandler) CurrentBooking(c *gin.Context) {
	booking, err := h.driverService.CurrentBooking(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active booking"})
			return
		}
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		DriverID:      d.DriverID,
		Name:          d.Name,
		Phone:         d.Phone,
		IsActive:      d.IsActive,
		Assigned:      d.Assigned,
		BookingCount:  d.BookingCount,
		TotalEarnings: d.TotalEarnings,
	}
}

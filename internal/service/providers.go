package service

import (
	"context"

	"dispatch/internal/domain"
)

// Route is a resolved pickup-to-drop route.
type Route struct {
	DistanceKm float64
	Duration   string
}

// RouteProvider resolves a route between two addresses. Callers may
// also supply a distance directly, in which case the provider is not
// consulted.
type RouteProvider interface {
	Resolve(ctx context.Context, pickup, drop string, stops []string) (*Route, error)
}

// DiscountProvider resolves offer and promo code references. A missing
// or expired reference resolves to nil with no error: settlement then
// applies a zero discount rather than failing the trip.
type DiscountProvider interface {
	Resolve(ctx context.Context, tenantID, offerID, promoCodeID string) (*domain.Discount, error)
}

package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"dispatch/internal/service"
)

// RouteService resolves trip routes through the Google Maps Directions
// API. It satisfies service.RouteProvider.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Resolve returns the driving distance and duration from pickup to
// drop through the given intermediate stops.
func (s *RouteService) Resolve(ctx context.Context, pickup, drop string, stops []string) (*service.Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      pickup,
		Destination: drop,
		Waypoints:   stops,
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found between %q and %q", pickup, drop)
	}

	meters := 0
	seconds := 0.0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		seconds += leg.Duration.Seconds()
	}

	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60

	return &service.Route{
		DistanceKm: float64(meters) / 1000.0,
		Duration:   fmt.Sprintf("%dh %dm", hours, minutes),
	}, nil
}

// Ensure interface is satisfied.
var _ service.RouteProvider = (*RouteService)(nil)

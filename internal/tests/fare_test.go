package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// 1. FARE ESTIMATION
// ──────────────────────────────────────────────

func newFareFixture() (*MockRateCardRepository, *service.FareService) {
	cards := NewMockRateCardRepository()
	cards.AddRateCard(&domain.RateCard{
		TenantID:    "t1",
		ServiceType: domain.ServiceOneWay,
		MinKm:       25,
	})
	cards.AddRateCard(&domain.RateCard{
		TenantID:    "t1",
		ServiceType: domain.ServiceRoundTrip,
		MinKm:       30,
	})
	cards.AddHourlyPackage(&domain.HourlyPackage{
		TenantID:       "t1",
		PackageID:      "pkg-8h",
		Hours:          8,
		Price:          decimal.NewFromInt(2000),
		IncludedKm:     80,
		ExtraRatePerKm: decimal.NewFromInt(10),
	})
	return cards, service.NewFareService(cards, nil)
}

func TestBillableDays(t *testing.T) {
	t.Parallel()

	date := func(day, hour int) time.Time {
		return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		service  domain.ServiceType
		pickupAt time.Time
		dropAt   time.Time
		want     int
		wantErr  error
	}{
		{"round trip same day", domain.ServiceRoundTrip, date(1, 9), date(1, 21), 1, nil},
		{"round trip inclusive both ends", domain.ServiceRoundTrip, date(1, 10), date(3, 18), 3, nil},
		{"round trip crossing midnight", domain.ServiceRoundTrip, date(1, 23), date(2, 1), 2, nil},
		{"round trip drop before pickup", domain.ServiceRoundTrip, date(3, 10), date(1, 10), 0, service.ErrInvalidDateRange},
		{"round trip zero drop time", domain.ServiceRoundTrip, date(1, 10), time.Time{}, 1, nil},
		{"one way ignores drop date", domain.ServiceOneWay, date(1, 10), date(5, 10), 1, nil},
		{"hourly package single day", domain.ServiceHourlyPackage, date(1, 10), date(2, 10), 1, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := service.BillableDays(tt.service, tt.pickupAt, tt.dropAt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d days, got %d", tt.want, got)
			}
		})
	}
}

func TestEstimate_OneWay_TaxOnDistanceComponentOnly(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:        "t1",
		ServiceType:     domain.ServiceOneWay,
		DistanceKm:      40,
		PerKmRate:       decimal.NewFromInt(15),
		DriverAllowance: decimal.NewFromInt(300),
		TaxPercent:      decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 40km x 15 = 600, plus 300 allowance.
	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(900)) {
		t.Errorf("expected estimated 900, got %s", fare.NormalFare.EstimatedAmount)
	}
	// Tax applies to the 600 distance component, not the 900 total.
	if !decimalEqual(fare.NormalFare.TaxAmount, decimal.NewFromInt(30)) {
		t.Errorf("expected tax 30, got %s", fare.NormalFare.TaxAmount)
	}
	if !decimalEqual(fare.NormalFare.FinalAmount, decimal.NewFromInt(900)) {
		t.Errorf("expected final 900, got %s", fare.NormalFare.FinalAmount)
	}
	if fare.Days != 1 {
		t.Errorf("expected 1 day, got %d", fare.Days)
	}
}

func TestEstimate_ModifiedFareIncludesSurcharges(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:             "t1",
		ServiceType:          domain.ServiceOneWay,
		DistanceKm:           40,
		PerKmRate:            decimal.NewFromInt(15),
		ExtraPerKmRate:       decimal.NewFromInt(2),
		DriverAllowance:      decimal.NewFromInt(300),
		ExtraDriverAllowance: decimal.NewFromInt(100),
		TaxPercent:           decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Normal fare ignores every extra component.
	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(900)) {
		t.Errorf("expected normal estimated 900, got %s", fare.NormalFare.EstimatedAmount)
	}

	// Modified: 40km x (15+2) = 680, plus 300+100 allowance = 1080.
	if !decimalEqual(fare.ModifiedFare.EstimatedAmount, decimal.NewFromInt(1080)) {
		t.Errorf("expected modified estimated 1080, got %s", fare.ModifiedFare.EstimatedAmount)
	}
	if !decimalEqual(fare.ModifiedFare.TaxAmount, decimal.NewFromInt(34)) {
		t.Errorf("expected modified tax 34, got %s", fare.ModifiedFare.TaxAmount)
	}

	// The snapshot keeps base and extra rates separate.
	if !decimalEqual(fare.ModifiedFare.PerKmRate, decimal.NewFromInt(15)) {
		t.Errorf("expected snapshot per-km rate 15, got %s", fare.ModifiedFare.PerKmRate)
	}
	if !decimalEqual(fare.ModifiedFare.ExtraPerKmRate, decimal.NewFromInt(2)) {
		t.Errorf("expected snapshot extra per-km rate 2, got %s", fare.ModifiedFare.ExtraPerKmRate)
	}
}

func TestEstimate_MinimumKmFloor(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:    "t1",
		ServiceType: domain.ServiceOneWay,
		DistanceKm:  10,
		PerKmRate:   decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 10km is under the 25km minimum, so 25km is billed.
	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(375)) {
		t.Errorf("expected estimated 375, got %s", fare.NormalFare.EstimatedAmount)
	}
	if fare.NormalFare.Distance != 25 {
		t.Errorf("expected billable distance 25, got %f", fare.NormalFare.Distance)
	}
	// The raw route distance is reported unchanged.
	if fare.Distance != 10 {
		t.Errorf("expected raw distance 10, got %f", fare.Distance)
	}
}

func TestEstimate_RoundTripScalesByDays(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:        "t1",
		ServiceType:     domain.ServiceRoundTrip,
		DistanceKm:      250,
		PickupAt:        time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		DropAt:          time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC),
		PerKmRate:       decimal.NewFromInt(15),
		DriverAllowance: decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fare.Days != 3 {
		t.Fatalf("expected 3 days, got %d", fare.Days)
	}
	// 250km x 15 + 300 allowance x 3 days = 4650.
	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(4650)) {
		t.Errorf("expected estimated 4650, got %s", fare.NormalFare.EstimatedAmount)
	}
}

func TestEstimate_RoundTripMinKmFloorScalesByDays(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	// 50km over 3 days is under the 30km/day minimum: 90km is billed.
	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:    "t1",
		ServiceType: domain.ServiceRoundTrip,
		DistanceKm:  50,
		PickupAt:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		DropAt:      time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC),
		PerKmRate:   decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(900)) {
		t.Errorf("expected estimated 900, got %s", fare.NormalFare.EstimatedAmount)
	}
}

func TestEstimate_DiscountClampedToEstimate(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	tests := []struct {
		name      string
		discount  decimal.Decimal
		wantFinal decimal.Decimal
	}{
		{"normal discount", decimal.NewFromInt(100), decimal.NewFromInt(800)},
		{"discount exceeding estimate", decimal.NewFromInt(2000), decimal.Zero},
		{"negative discount ignored", decimal.NewFromInt(-50), decimal.NewFromInt(900)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
				TenantID:        "t1",
				ServiceType:     domain.ServiceOneWay,
				DistanceKm:      40,
				PerKmRate:       decimal.NewFromInt(15),
				DriverAllowance: decimal.NewFromInt(300),
				DiscountAmount:  tt.discount,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !decimalEqual(fare.NormalFare.FinalAmount, tt.wantFinal) {
				t.Errorf("expected final %s, got %s", tt.wantFinal, fare.NormalFare.FinalAmount)
			}
		})
	}
}

func TestEstimate_HourlyPackage(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:        "t1",
		ServiceType:     domain.ServiceHourlyPackage,
		PackageID:       "pkg-8h",
		DriverAllowance: decimal.NewFromInt(300),
		TaxPercent:      decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Package price 2000 plus 300 allowance.
	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(2300)) {
		t.Errorf("expected estimated 2300, got %s", fare.NormalFare.EstimatedAmount)
	}
	// Tax applies to the package price only.
	if !decimalEqual(fare.NormalFare.TaxAmount, decimal.NewFromInt(100)) {
		t.Errorf("expected tax 100, got %s", fare.NormalFare.TaxAmount)
	}
	if fare.Duration != "8 hours" {
		t.Errorf("expected duration '8 hours', got %q", fare.Duration)
	}
}

func TestEstimate_ResolvesDistanceViaRouteProvider(t *testing.T) {
	t.Parallel()

	cards, _ := newFareFixture()
	routes := &MockRouteProvider{Route: service.Route{DistanceKm: 40, Duration: "1h 5m"}}
	fareService := service.NewFareService(cards, routes)

	fare, err := fareService.Estimate(context.Background(), service.EstimateRequest{
		TenantID:    "t1",
		ServiceType: domain.ServiceOneWay,
		Pickup:      "Chennai",
		Drop:        "Vellore",
		PerKmRate:   decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fare.Distance != 40 {
		t.Errorf("expected resolved distance 40, got %f", fare.Distance)
	}
	if fare.Duration != "1h 5m" {
		t.Errorf("expected duration '1h 5m', got %q", fare.Duration)
	}
	if !decimalEqual(fare.NormalFare.EstimatedAmount, decimal.NewFromInt(600)) {
		t.Errorf("expected estimated 600, got %s", fare.NormalFare.EstimatedAmount)
	}
}

func TestEstimate_InputValidation(t *testing.T) {
	t.Parallel()

	_, fareService := newFareFixture()

	tests := []struct {
		name    string
		req     service.EstimateRequest
		wantErr error
	}{
		{
			"missing tenant",
			service.EstimateRequest{ServiceType: domain.ServiceOneWay, DistanceKm: 10},
			service.ErrInvalidTenantID,
		},
		{
			"negative distance",
			service.EstimateRequest{TenantID: "t1", ServiceType: domain.ServiceOneWay, DistanceKm: -5},
			service.ErrInvalidDistance,
		},
		{
			"unknown service type",
			service.EstimateRequest{TenantID: "t1", ServiceType: "Shared Pool", DistanceKm: 10},
			service.ErrInvalidServiceType,
		},
		{
			"no distance and no route provider",
			service.EstimateRequest{TenantID: "t1", ServiceType: domain.ServiceOneWay},
			service.ErrInvalidDistance,
		},
		{
			"round trip drop before pickup",
			service.EstimateRequest{
				TenantID:    "t1",
				ServiceType: domain.ServiceRoundTrip,
				DistanceKm:  100,
				PickupAt:    time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
				DropAt:      time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
			},
			service.ErrInvalidDateRange,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := fareService.Estimate(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

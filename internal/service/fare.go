package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// FareService computes the dual fare estimate frozen onto a booking at
// creation time.
type FareService struct {
	rateCardRepo  repository.RateCardRepository
	routeProvider RouteProvider
}

// NewFareService creates a new FareService.
func NewFareService(rateCardRepo repository.RateCardRepository, routeProvider RouteProvider) *FareService {
	return &FareService{
		rateCardRepo:  rateCardRepo,
		routeProvider: routeProvider,
	}
}

// EstimateRequest contains the fare inputs for a prospective booking.
type EstimateRequest struct {
	TenantID    string
	ServiceType domain.ServiceType
	PackageID   string

	Pickup   string
	Drop     string
	Stops    []string
	PickupAt time.Time
	DropAt   time.Time

	// DistanceKm, when positive, skips the route provider.
	DistanceKm float64

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
	DiscountAmount       decimal.Decimal
}

// BillableDays derives the number of billable days for a service. Round
// trips count calendar days touched, inclusive on both ends; every
// other service is a single day.
func BillableDays(service domain.ServiceType, pickupAt, dropAt time.Time) (int, error) {
	if service != domain.ServiceRoundTrip {
		return 1, nil
	}
	if dropAt.IsZero() {
		return 1, nil
	}

	pickup := midnight(pickupAt)
	drop := midnight(dropAt)
	if drop.Before(pickup) {
		return 0, ErrInvalidDateRange
	}

	days := int(drop.Sub(pickup).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Estimate computes the dual fare for a prospective booking. The result
// is persisted verbatim at creation and never silently recomputed.
func (s *FareService) Estimate(ctx context.Context, req EstimateRequest) (*domain.DualFare, error) {
	if req.TenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if req.DistanceKm < 0 {
		return nil, ErrInvalidDistance
	}

	days, err := BillableDays(req.ServiceType, req.PickupAt, req.DropAt)
	if err != nil {
		return nil, err
	}

	switch req.ServiceType {
	case domain.ServiceHourlyPackage:
		return s.estimateHourly(ctx, req, days)
	case domain.ServiceOneWay, domain.ServiceRoundTrip:
		return s.estimateDistanceRated(ctx, req, days)
	default:
		return nil, ErrInvalidServiceType
	}
}

func (s *FareService) estimateDistanceRated(ctx context.Context, req EstimateRequest, days int) (*domain.DualFare, error) {
	distance := req.DistanceKm
	duration := ""
	if distance <= 0 {
		if s.routeProvider == nil {
			return nil, ErrInvalidDistance
		}
		route, err := s.routeProvider.Resolve(ctx, req.Pickup, req.Drop, req.Stops)
		if err != nil {
			return nil, err
		}
		distance = route.DistanceKm
		duration = route.Duration
	}

	card, err := s.rateCardRepo.GetByService(ctx, req.TenantID, req.ServiceType)
	if err != nil {
		return nil, err
	}

	// Allowance is a per-day component; scale it before composition.
	daysDec := decimal.NewFromInt(int64(days))
	allowance := req.DriverAllowance.Mul(daysDec)
	extraAllowance := req.ExtraDriverAllowance.Mul(daysDec)

	billable := distance
	if floor := card.MinKm * float64(days); billable < floor {
		billable = floor
	}

	normal := composeSnapshot(snapshotInput{
		distance:  billable,
		perKmRate: req.PerKmRate,
		allowance: allowance,
		toll:      req.Toll,
		hill:      req.Hill,
		permit:    req.PermitCharge,
		taxPct:    req.TaxPercent,
		discount:  req.DiscountAmount,
		days:      days,
		minKm:     card.MinKm,
	})

	modified := composeSnapshot(snapshotInput{
		distance:   billable,
		perKmRate:  req.PerKmRate,
		extraPerKm: req.ExtraPerKmRate,
		allowance:  allowance.Add(extraAllowance),
		toll:       req.Toll.Add(req.ExtraToll),
		hill:       req.Hill.Add(req.ExtraHill),
		permit:     req.PermitCharge.Add(req.ExtraPermitCharge),
		taxPct:     req.TaxPercent,
		discount:   req.DiscountAmount,
		days:       days,
		minKm:      card.MinKm,
	})

	return &domain.DualFare{
		NormalFare:   normal,
		ModifiedFare: modified,
		Distance:     distance,
		Duration:     duration,
		Days:         days,
	}, nil
}

func (s *FareService) estimateHourly(ctx context.Context, req EstimateRequest, days int) (*domain.DualFare, error) {
	pkg, err := s.rateCardRepo.GetHourlyPackage(ctx, req.TenantID, req.PackageID)
	if err != nil {
		return nil, err
	}

	compose := func(base, allowance, toll, hill, permit decimal.Decimal) domain.FareSnapshot {
		estimated := base.Add(toll).Add(hill).Add(permit).Add(allowance)
		tax := domain.PercentCeil(base, req.TaxPercent)
		discount := clampDiscount(req.DiscountAmount, estimated)
		return domain.FareSnapshot{
			Distance:        req.DistanceKm,
			PerKmRate:       pkg.ExtraRatePerKm,
			DriverAllowance: allowance,
			Toll:            toll,
			Hill:            hill,
			PermitCharge:    permit,
			EstimatedAmount: estimated,
			TaxAmount:       tax,
			FinalAmount:     estimated.Sub(discount).Ceil(),
			Days:            days,
		}
	}

	normal := compose(pkg.Price, req.DriverAllowance, req.Toll, req.Hill, req.PermitCharge)
	modified := compose(pkg.Price,
		req.DriverAllowance.Add(req.ExtraDriverAllowance),
		req.Toll.Add(req.ExtraToll),
		req.Hill.Add(req.ExtraHill),
		req.PermitCharge.Add(req.ExtraPermitCharge))
	modified.ExtraPerKmRate = req.ExtraPerKmRate

	return &domain.DualFare{
		NormalFare:   normal,
		ModifiedFare: modified,
		Distance:     req.DistanceKm,
		Duration:     fmt.Sprintf("%d hours", pkg.Hours),
		Days:         days,
	}, nil
}

type snapshotInput struct {
	distance   float64
	perKmRate  decimal.Decimal
	extraPerKm decimal.Decimal
	allowance  decimal.Decimal
	toll       decimal.Decimal
	hill       decimal.Decimal
	permit     decimal.Decimal
	taxPct     decimal.Decimal
	discount   decimal.Decimal
	days       int
	minKm      float64
}

// composeSnapshot applies the single fare formula. Tax is charged on
// the distance component only; fixed charges and allowance ride on top
// untaxed.
func composeSnapshot(in snapshotInput) domain.FareSnapshot {
	kmPrice := decimal.NewFromFloat(in.distance).Mul(in.perKmRate.Add(in.extraPerKm))
	estimated := kmPrice.Add(in.toll).Add(in.hill).Add(in.permit).Add(in.allowance)
	tax := domain.PercentCeil(kmPrice, in.taxPct)
	discount := clampDiscount(in.discount, estimated)

	return domain.FareSnapshot{
		Distance:        in.distance,
		PerKmRate:       in.perKmRate,
		ExtraPerKmRate:  in.extraPerKm,
		DriverAllowance: in.allowance,
		Toll:            in.toll,
		Hill:            in.hill,
		PermitCharge:    in.permit,
		EstimatedAmount: estimated,
		TaxAmount:       tax,
		FinalAmount:     estimated.Sub(discount).Ceil(),
		Days:            in.days,
		MinKm:           in.minKm,
	}
}

// clampDiscount keeps a discount inside [0, estimated].
func clampDiscount(discount, estimated decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(estimated) {
		return estimated
	}
	return discount
}

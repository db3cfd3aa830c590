package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// adminExtraSharePct is the platform's fixed cut of the extra surcharge
// components on vendor-originated bookings.
var adminExtraSharePct = decimal.NewFromInt(10)

// SettlementService recomputes the authoritative fare from physical
// trip evidence and splits it between driver, vendor and platform. The
// entire write-back is one transaction; a failed settlement leaves the
// booking Started and is safe to retry.
type SettlementService struct {
	uow              repository.UnitOfWork
	rateCardRepo     repository.RateCardRepository
	discountProvider DiscountProvider
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	uow repository.UnitOfWork,
	rateCardRepo repository.RateCardRepository,
	discountProvider DiscountProvider,
) *SettlementService {
	return &SettlementService{
		uow:              uow,
		rateCardRepo:     rateCardRepo,
		discountProvider: discountProvider,
	}
}

// ReconcileRequest carries the trip-end evidence into settlement.
type ReconcileRequest struct {
	TenantID      string
	BookingID     string
	EndOdometer   float64
	EndedAt       time.Time
	DriverCharges map[string]decimal.Decimal
	ExtraCharges  map[string]decimal.Decimal

	// FinalStatus is Completed for the driver flow and ManualCompleted
	// for the back-office path.
	FinalStatus domain.BookingStatus
}

// Reconcile settles a started booking. Commercial terms and the
// discount reference are read first; the booking is then re-checked
// under a row lock so a concurrent settlement of the same trip cannot
// double-pay the driver.
func (s *SettlementService) Reconcile(ctx context.Context, req ReconcileRequest) (*domain.Booking, error) {
	if req.TenantID == "" {
		return nil, ErrInvalidTenantID
	}
	if req.BookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if !req.FinalStatus.IsTerminal() {
		return nil, ErrInvalidState
	}

	var booking *domain.Booking
	err := s.uow.InTx(ctx, func(r repository.Repositories) error {
		b, err := r.Bookings.GetByIDForUpdate(ctx, req.TenantID, req.BookingID)
		if err != nil {
			return err
		}
		if b.Status != domain.StatusStarted {
			return ErrInvalidState
		}
		if req.EndOdometer <= b.StartOdometer {
			return ErrOdometerOrder
		}

		var card *domain.RateCard
		var pkg *domain.HourlyPackage
		if b.ServiceType == domain.ServiceHourlyPackage {
			pkg, err = s.rateCardRepo.GetHourlyPackage(ctx, b.TenantID, b.PackageID)
		} else {
			card, err = s.rateCardRepo.GetByService(ctx, b.TenantID, b.ServiceType)
		}
		if err != nil {
			return err
		}

		// A missing offer or promo reference settles as zero discount.
		discount, err := s.discountProvider.Resolve(ctx, b.TenantID, b.OfferID, b.PromoCodeID)
		if err != nil {
			return err
		}

		result, err := computeSettlement(settlementInput{
			booking:       b,
			card:          card,
			pkg:           pkg,
			discount:      discount,
			endOdometer:   req.EndOdometer,
			endedAt:       req.EndedAt,
			driverCharges: req.DriverCharges,
			extraCharges:  req.ExtraCharges,
		})
		if err != nil {
			return err
		}

		applySettlement(b, result, req.FinalStatus)
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}

		if b.DriverID != "" {
			d, err := r.Drivers.GetByIDForUpdate(ctx, b.TenantID, b.DriverID)
			if err != nil {
				return err
			}
			d.Assigned = false
			d.BookingCount++
			d.TotalEarnings = d.TotalEarnings.Add(result.NetPayout)
			if err := r.Drivers.Update(ctx, d); err != nil {
				return err
			}

			if err := closeDriverLog(ctx, r.Logs, b, result); err != nil {
				return err
			}
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

type settlementInput struct {
	booking       *domain.Booking
	card          *domain.RateCard
	pkg           *domain.HourlyPackage
	discount      *domain.Discount
	endOdometer   float64
	endedAt       time.Time
	driverCharges map[string]decimal.Decimal
	extraCharges  map[string]decimal.Decimal
}

type settlementResult struct {
	ActualKm    float64
	Duration    string
	Days        int
	BaseFare    decimal.Decimal
	Tax         decimal.Decimal
	Allowance   decimal.Decimal
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal

	Deduction     decimal.Decimal
	NetPayout     decimal.Decimal
	DriverBreakup *domain.CommissionBreakup
	VendorBreakup *domain.VendorBreakup

	AdminCommission decimal.Decimal
	VendorEarnings  decimal.Decimal

	EndOdometer   float64
	EndedAt       time.Time
	DriverCharges map[string]decimal.Decimal
	ExtraCharges  map[string]decimal.Decimal
}

// computeSettlement is the pure fare and commission math for one trip.
func computeSettlement(in settlementInput) (*settlementResult, error) {
	b := in.booking
	actualKm := in.endOdometer - b.StartOdometer

	days, err := BillableDays(b.ServiceType, b.TripStartedAt, in.endedAt)
	if err != nil {
		return nil, err
	}

	baseFare, extraKmCharge := settledBaseFare(in, actualKm, days)

	discountAmount := in.discount.Amount(baseFare)
	tax := domain.PercentCeil(baseFare, b.TaxPercent)
	allowance := rescaledAllowance(b, days)
	driverChargesSum := domain.SumCharges(in.driverCharges)
	extraChargesSum := domain.SumCharges(in.extraCharges)

	finalAmount := baseFare.
		Add(tax).
		Add(allowance).
		Add(b.ConvenienceFee).
		Add(driverChargesSum).
		Add(extraChargesSum).
		Sub(discountAmount).
		Sub(b.AdvanceAmount).
		Ceil()

	vendorOriginated := b.VendorID != ""

	var driverPct, vendorPct, commissionTaxPct decimal.Decimal
	if in.card != nil {
		driverPct = in.card.DriverCommissionPct
		vendorPct = in.card.VendorCommissionPct
		commissionTaxPct = in.card.CommissionTaxPercent
	}

	commission := domain.PercentCeil(baseFare, driverPct)
	commissionTax := decimal.Zero
	if !vendorOriginated {
		commissionTax = domain.PercentCeil(commission, commissionTaxPct)
	}

	daysDec := decimal.NewFromInt(int64(days))
	extraAllowance := b.ExtraDriverAllowance.Mul(daysDec)
	extrasSum := b.ExtraToll.
		Add(b.ExtraHill).
		Add(b.ExtraPermitCharge).
		Add(extraAllowance).
		Add(extraKmCharge)

	deduction := commission.
		Add(commissionTax).
		Add(tax).
		Add(extrasSum).
		Add(b.ConvenienceFee)
	if !vendorOriginated {
		deduction = deduction.Add(extraChargesSum)
	}

	result := &settlementResult{
		ActualKm:    actualKm,
		Duration:    formatDuration(b.TripStartedAt, in.endedAt),
		Days:        days,
		BaseFare:    baseFare,
		Tax:         tax,
		Allowance:   allowance,
		Discount:    discountAmount,
		FinalAmount: finalAmount,
		Deduction:   deduction,
		NetPayout:   finalAmount.Sub(deduction),
		DriverBreakup: &domain.CommissionBreakup{
			BaseKmPrice:          baseFare,
			PerKmRate:            b.PerKmRate,
			CommissionPercent:    driverPct,
			CommissionAmount:     commission,
			CommissionTaxPercent: commissionTaxPct,
			CommissionTax:        commissionTax,
			Tax:                  tax,
			ExtraKmCharge:        extraKmCharge,
			ExtraToll:            b.ExtraToll,
			ExtraHill:            b.ExtraHill,
			ExtraPermitCharge:    b.ExtraPermitCharge,
			ExtraDriverAllowance: extraAllowance,
			ConvenienceFee:       b.ConvenienceFee,
			ExtraCharges:         extraChargesSum,
			TotalDeduction:       deduction,
		},
		EndOdometer:   in.endOdometer,
		EndedAt:       in.endedAt,
		DriverCharges: in.driverCharges,
		ExtraCharges:  in.extraCharges,
	}

	if vendorOriginated {
		adminCommission := domain.PercentCeil(baseFare, vendorPct)
		extraShare := domain.PercentCeil(extrasSum, adminExtraSharePct)
		vendorEarnings := deduction.
			Sub(adminCommission).
			Sub(commissionTax).
			Sub(tax).
			Sub(b.ConvenienceFee).
			Sub(extraShare)

		result.AdminCommission = adminCommission
		result.VendorEarnings = vendorEarnings
		result.VendorBreakup = &domain.VendorBreakup{
			BaseKmPrice:         baseFare,
			Tax:                 tax,
			CommissionPercent:   driverPct,
			CommissionTax:       commissionTax,
			AdminCommission:     adminCommission,
			AdminCommissionPct:  vendorPct,
			ConvenienceFee:      b.ConvenienceFee,
			ExtraComponentShare: extraShare,
			VendorEarnings:      vendorEarnings,
		}
	}

	return result, nil
}

// settledBaseFare computes the distance-rated or package base fare and
// the extra-km charge component of the deduction.
func settledBaseFare(in settlementInput, actualKm float64, days int) (base, extraKmCharge decimal.Decimal) {
	b := in.booking

	if b.ServiceType == domain.ServiceHourlyPackage && in.pkg != nil {
		base = in.pkg.Price
		overKm := actualKm - in.pkg.IncludedKm
		if overKm > 0 {
			over := decimal.NewFromFloat(overKm)
			extraKmCharge = over.Mul(in.pkg.ExtraRatePerKm)
			if b.VendorID != "" {
				// Vendor bookings carry a second surcharge tier on overage.
				extraKmCharge = extraKmCharge.Add(over.Mul(b.ExtraPerKmRate))
			}
			base = base.Add(extraKmCharge)
		}
		return base, extraKmCharge
	}

	billable := actualKm
	if in.card != nil {
		if floor := in.card.MinKm * float64(days); billable < floor {
			billable = floor
		}
	}
	billableDec := decimal.NewFromFloat(billable)
	base = billableDec.Mul(b.PerKmRate.Add(b.ExtraPerKmRate))
	extraKmCharge = billableDec.Mul(b.ExtraPerKmRate)
	return base, extraKmCharge
}

// rescaledAllowance recomputes the per-day driver allowance against the
// actual trip days, from the frozen modified snapshot when present.
func rescaledAllowance(b *domain.Booking, days int) decimal.Decimal {
	daysDec := decimal.NewFromInt(int64(days))

	if b.ModifiedFare != nil && b.ModifiedFare.Days > 0 {
		perDay := b.ModifiedFare.DriverAllowance.Div(decimal.NewFromInt(int64(b.ModifiedFare.Days)))
		return perDay.Mul(daysDec)
	}
	return b.DriverAllowance.Add(b.ExtraDriverAllowance).Mul(daysDec)
}

// formatDuration renders a trip duration as whole hours plus minutes.
func formatDuration(start, end time.Time) string {
	if start.IsZero() || end.Before(start) {
		return "0h 0m"
	}
	d := end.Sub(start)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) - hours*60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// applySettlement writes the computed figures onto the booking.
func applySettlement(b *domain.Booking, r *settlementResult, status domain.BookingStatus) {
	b.EndOdometer = r.EndOdometer
	b.TripEndedAt = r.EndedAt
	b.DriverCharges = r.DriverCharges
	b.ExtraCharges = r.ExtraCharges
	b.Days = r.Days
	b.DiscountAmount = r.Discount

	b.CompletedDistance = r.ActualKm
	b.CompletedDuration = r.Duration
	b.CompletedBaseAmount = r.BaseFare
	b.CompletedTaxAmount = r.Tax
	b.CompletedFinalAmount = r.FinalAmount
	b.DriverDeductionAmount = r.Deduction
	b.DriverBreakup = r.DriverBreakup
	b.VendorBreakup = r.VendorBreakup
	b.AdminCommission = r.AdminCommission
	b.VendorEarnings = r.VendorEarnings

	b.Status = status
}

// closeDriverLog seals the dispatch log for the driver who ran the trip.
func closeDriverLog(ctx context.Context, logs repository.DriverLogRepository, b *domain.Booking, r *settlementResult) error {
	lg, err := logs.Get(ctx, b.TenantID, b.BookingID, b.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			lg = &domain.DriverBookingLog{
				TenantID:  b.TenantID,
				BookingID: b.BookingID,
				DriverID:  b.DriverID,
				OfferedAt: b.RequestSentAt,
			}
			if err := logs.Upsert(ctx, lg); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	minutes := 0
	if !b.TripStartedAt.IsZero() && r.EndedAt.After(b.TripStartedAt) {
		minutes = int(r.EndedAt.Sub(b.TripStartedAt).Minutes())
	}

	lg.TripCompletedAt = r.EndedAt
	lg.ActiveDrivingMinutes = minutes
	lg.TraveledDistance = r.ActualKm
	lg.NetEarnings = r.NetPayout
	lg.DeductionAmount = r.Deduction
	lg.TripStatus = domain.TripStatusCompleted
	return logs.Update(ctx, lg)
}

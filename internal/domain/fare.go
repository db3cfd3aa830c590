package domain

import "github.com/shopspring/decimal"

// FareSnapshot is one frozen fare composition. Two snapshots are kept
// per booking: the base contractual fare and the surcharged variant.
type FareSnapshot struct {
	Distance        float64         `json:"distance"`
	PerKmRate       decimal.Decimal `json:"price_per_km"`
	ExtraPerKmRate  decimal.Decimal `json:"extra_price_per_km"`
	DriverAllowance decimal.Decimal `json:"driver_allowance"`
	Toll            decimal.Decimal `json:"toll"`
	Hill            decimal.Decimal `json:"hill"`
	PermitCharge    decimal.Decimal `json:"permit_charge"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	Days            int             `json:"days"`
	MinKm           float64         `json:"min_km"`
}

// DualFare is the estimator output: the same formula composed twice,
// once with base components only and once including every surcharge.
type DualFare struct {
	NormalFare   FareSnapshot `json:"normal_fare"`
	ModifiedFare FareSnapshot `json:"modified_fare"`
	Distance     float64      `json:"distance"`
	Duration     string       `json:"duration"`
	Days         int          `json:"days"`
}

// CommissionBreakup decomposes the driver-side deduction for a
// completed trip.
type CommissionBreakup struct {
	BaseKmPrice          decimal.Decimal `json:"base_km_price"`
	PerKmRate            decimal.Decimal `json:"price_per_km"`
	CommissionPercent    decimal.Decimal `json:"commission_percentage"`
	CommissionAmount     decimal.Decimal `json:"commission_amount"`
	CommissionTaxPercent decimal.Decimal `json:"commission_tax_percentage"`
	CommissionTax        decimal.Decimal `json:"commission_tax"`
	Tax                  decimal.Decimal `json:"gst"`
	ExtraKmCharge        decimal.Decimal `json:"extra_km_charge"`
	ExtraToll            decimal.Decimal `json:"extra_toll"`
	ExtraHill            decimal.Decimal `json:"extra_hill"`
	ExtraPermitCharge    decimal.Decimal `json:"extra_permit_charge"`
	ExtraDriverAllowance decimal.Decimal `json:"extra_driver_allowance"`
	ConvenienceFee       decimal.Decimal `json:"convenience_fee"`
	ExtraCharges         decimal.Decimal `json:"extra_charges"`
	TotalDeduction       decimal.Decimal `json:"total_deduction"`
}

// VendorBreakup captures the vendor-side split when the booking was
// vendor-originated. The platform takes the delta between the driver
// and vendor commission percentages.
type VendorBreakup struct {
	BaseKmPrice         decimal.Decimal `json:"base_km_price"`
	Tax                 decimal.Decimal `json:"gst"`
	CommissionPercent   decimal.Decimal `json:"commission_percentage"`
	CommissionTax       decimal.Decimal `json:"commission_tax"`
	AdminCommission     decimal.Decimal `json:"admin_commission"`
	AdminCommissionPct  decimal.Decimal `json:"admin_commission_percentage"`
	ConvenienceFee      decimal.Decimal `json:"convenience_fee"`
	ExtraComponentShare decimal.Decimal `json:"extra_component_admin_share"`
	VendorEarnings      decimal.Decimal `json:"vendor_earnings"`
}

var hundred = decimal.NewFromInt(100)

// PercentCeil computes base × pct / 100 rounded up to the nearest
// currency unit. Every intermediate money rounding in fare and
// settlement math uses ceiling, never floor or banker's rounding.
func PercentCeil(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred).Ceil()
}

// SumCharges totals a label→amount charge map.
func SumCharges(charges map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range charges {
		total = total.Add(v)
	}
	return total
}

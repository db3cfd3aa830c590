package domain

import "github.com/shopspring/decimal"

// RateCard holds the tenant's per-service commercial terms used by the
// estimator and the settlement engine.
type RateCard struct {
	TenantID             string
	ServiceType          ServiceType
	MinKm                float64
	TaxPercent           decimal.Decimal
	DriverCommissionPct  decimal.Decimal
	VendorCommissionPct  decimal.Decimal
	CommissionTaxPercent decimal.Decimal
}

// HourlyPackage defines a fixed-price package with an included
// distance and an overage rate.
type HourlyPackage struct {
	TenantID       string
	PackageID      string
	Hours          int
	Price          decimal.Decimal
	IncludedKm     float64
	ExtraRatePerKm decimal.Decimal
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RateCardRepository is a PostgreSQL implementation of repository.RateCardRepository.
type RateCardRepository struct {
	q Querier
}

// NewRateCardRepository creates a new PostgreSQL rate card repository.
func NewRateCardRepository(db *sql.DB) *RateCardRepository {
	return &RateCardRepository{q: db}
}

// GetByService retrieves the rate card for a service type.
func (r *RateCardRepository) GetByService(ctx context.Context, tenantID string, service domain.ServiceType) (*domain.RateCard, error) {
	query := `SELECT tenant_id, service_type, min_km, tax_percent,
			driver_commission_pct, vendor_commission_pct, commission_tax_percent
		FROM rate_cards WHERE tenant_id = $1 AND service_type = $2`

	var rc domain.RateCard
	err := r.q.QueryRowContext(ctx, query, tenantID, service).Scan(
		&rc.TenantID, &rc.ServiceType, &rc.MinKm, &rc.TaxPercent,
		&rc.DriverCommissionPct, &rc.VendorCommissionPct, &rc.CommissionTaxPercent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rc, nil
}

// GetHourlyPackage retrieves an hourly package definition.
func (r *RateCardRepository) GetHourlyPackage(ctx context.Context, tenantID, packageID string) (*domain.HourlyPackage, error) {
	query := `SELECT tenant_id, package_id, hours, price, included_km, extra_rate_per_km
		FROM hourly_packages WHERE tenant_id = $1 AND package_id = $2`

	var p domain.HourlyPackage
	err := r.q.QueryRowContext(ctx, query, tenantID, packageID).Scan(
		&p.TenantID, &p.PackageID, &p.Hours, &p.Price, &p.IncludedKm, &p.ExtraRatePerKm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

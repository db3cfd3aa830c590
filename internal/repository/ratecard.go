package repository

import (
	"context"

	"dispatch/internal/domain"
)

// RateCardRepository reads the tenant's commercial terms. Rate cards
// and packages are administered elsewhere; this core only reads them.
type RateCardRepository interface {
	// GetByService retrieves the rate card for a service type.
	GetByService(ctx context.Context, tenantID string, service domain.ServiceType) (*domain.RateCard, error)

	// GetHourlyPackage retrieves an hourly package definition.
	GetHourlyPackage(ctx context.Context, tenantID, packageID string) (*domain.HourlyPackage, error)
}

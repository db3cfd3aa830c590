package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
)

// DiscountRepository resolves offer and promo code references against
// their PostgreSQL tables. A missing or inactive reference resolves to
// nil without error.
type DiscountRepository struct {
	q Querier
}

// NewDiscountRepository creates a new PostgreSQL discount repository.
func NewDiscountRepository(db *sql.DB) *DiscountRepository {
	return &DiscountRepository{q: db}
}

// Resolve looks up the booking's stored offer first, then its promo
// code. Whichever resolves first wins; neither resolving is not an
// error.
func (r *DiscountRepository) Resolve(ctx context.Context, tenantID, offerID, promoCodeID string) (*domain.Discount, error) {
	if offerID != "" {
		d, err := r.lookup(ctx,
			`SELECT discount_type, discount_value FROM offers
				WHERE tenant_id = $1 AND offer_id = $2 AND is_active = true`,
			tenantID, offerID)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}

	if promoCodeID != "" {
		d, err := r.lookup(ctx,
			`SELECT discount_type, discount_value FROM promo_codes
				WHERE tenant_id = $1 AND promo_code_id = $2 AND is_active = true`,
			tenantID, promoCodeID)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}

	return nil, nil
}

func (r *DiscountRepository) lookup(ctx context.Context, query, tenantID, refID string) (*domain.Discount, error) {
	var d domain.Discount
	err := r.q.QueryRowContext(ctx, query, tenantID, refID).Scan(&d.Type, &d.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

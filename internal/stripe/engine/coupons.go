package engine

import (
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
)

// CouponCreateParams describe a discount template.
type CouponCreateParams struct {
	ID               string
	AmountOff        int64
	PercentOff       int64
	Currency         string
	Duration         string
	DurationInMonths int64
	MaxRedemptions   int64
	RedeemBy         int64
	Metadata         map[string]string
}

// CreateCoupon registers a coupon. Exactly one of amount_off and percent_off
// must be set.
func (e *Engine) CreateCoupon(ctx *Context, params CouponCreateParams) (*domain.Coupon, error) {
	if (params.AmountOff > 0) == (params.PercentOff > 0) {
		return nil, domain.InvalidRequestf("amount_off", "exactly one of amount_off and percent_off required")
	}
	if params.PercentOff < 0 || params.PercentOff > 100 {
		return nil, domain.InvalidRequestf("percent_off", "invalid percent_off: %d", params.PercentOff)
	}

	duration := domain.CouponDuration(params.Duration)
	switch duration {
	case domain.CouponDurationOnce, domain.CouponDurationForever:
	case domain.CouponDurationRepeating:
		if params.DurationInMonths <= 0 {
			return nil, domain.InvalidRequestf("duration_in_months", "duration_in_months required for repeating coupons")
		}
	default:
		return nil, domain.InvalidRequestf("duration", "invalid duration: %s", params.Duration)
	}

	tenant := e.store.Tenant(ctx.Identity())
	if params.ID != "" {
		if _, exists := tenant.Coupons.Get(params.ID); exists {
			return nil, domain.InvalidRequestf("id", "coupon already exists: %s", params.ID)
		}
	}

	return e.factory.Coupon(ctx, model.CouponParams{
		ID:               params.ID,
		AmountOff:        params.AmountOff,
		PercentOff:       params.PercentOff,
		Currency:         params.Currency,
		Duration:         duration,
		DurationInMonths: params.DurationInMonths,
		MaxRedemptions:   params.MaxRedemptions,
		RedeemBy:         params.RedeemBy,
		Metadata:         params.Metadata,
	}), nil
}

// RetrieveCoupon fetches a coupon.
func (e *Engine) RetrieveCoupon(ctx *Context, id string) (*domain.Coupon, error) {
	coupon, ok := e.store.Tenant(ctx.Identity()).Coupons.Get(id)
	if !ok || coupon.Deleted {
		return nil, domain.NoSuch("coupon", "coupon", id)
	}
	return coupon, nil
}

// DeleteCoupon marks the coupon deleted. Discounts already applied keep
// working; new applications resolve to no discount.
func (e *Engine) DeleteCoupon(ctx *Context, id string) (*Deleted, error) {
	tenant := e.store.Tenant(ctx.Identity())
	coupon, ok := tenant.Coupons.Get(id)
	if !ok || coupon.Deleted {
		return nil, domain.NoSuch("coupon", "coupon", id)
	}

	tenant.Coupons.Update(id, func(c *domain.Coupon) {
		c.Deleted = true
		c.Valid = false
	})

	return deletedOf(id, "coupon"), nil
}

// ListCoupons pages through the coupons, newest first.
func (e *Engine) ListCoupons(ctx *Context, query model.ListQuery) (*model.List, error) {
	coupons := e.store.Tenant(ctx.Identity()).Coupons.Find(func(c *domain.Coupon) bool {
		return !c.Deleted
	})
	items := model.Items(coupons, func(c *domain.Coupon) model.Item {
		return model.Item{ID: c.ID, Created: c.Created, Value: c}
	})
	return model.Paginate(items, query, "/v1/coupons"), nil
}

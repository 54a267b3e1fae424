// Package seed bootstraps tenants from the organizations file: API keys,
// catalog plans, coupons and webhook endpoints. Seeding is idempotent so a
// loaded snapshot is never clobbered, and seed writes emit no events.
package seed

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/config"
	"github.com/mdbarr/mock-services/internal/stripe/domain"
	"github.com/mdbarr/mock-services/internal/stripe/model"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

// Seeder applies organization seeds to the store.
type Seeder struct {
	store    *store.Store
	factory  *model.Factory
	livemode bool
	log      *zap.Logger
}

// New builds a seeder.
func New(st *store.Store, factory *model.Factory, cfg config.Config, log *zap.Logger) *Seeder {
	return &Seeder{
		store:    st,
		factory:  factory,
		livemode: cfg.Livemode,
		log:      log.Named("seed"),
	}
}

// Apply registers every organization's keys and catalog objects. Objects
// whose id already exists are left alone.
func (s *Seeder) Apply(orgs []config.Organization) {
	for _, org := range orgs {
		s.applyOrg(org)
	}
}

func (s *Seeder) applyOrg(org config.Organization) {
	scope := model.SystemScope{Org: org.Name, Live: s.livemode}
	tenant := s.store.Tenant(org.Name)

	s.store.AddKeys(org.Name, domain.Keys{
		SecretKey:      org.SecretKey,
		PublishableKey: org.PublishableKey,
	})

	for _, plan := range org.Plans {
		if _, exists := tenant.Plans.Get(plan.ID); exists {
			continue
		}
		s.factory.Plan(scope, model.PlanParams{
			ID:              plan.ID,
			Amount:          plan.Amount,
			Currency:        plan.Currency,
			Interval:        plan.Interval,
			IntervalCount:   plan.IntervalCount,
			Name:            plan.Name,
			TrialPeriodDays: plan.TrialPeriodDays,
		})
	}

	for _, coupon := range org.Coupons {
		if _, exists := tenant.Coupons.Get(coupon.ID); exists {
			continue
		}
		s.factory.Coupon(scope, model.CouponParams{
			ID:               coupon.ID,
			AmountOff:        coupon.AmountOff,
			PercentOff:       coupon.PercentOff,
			Duration:         domain.CouponDuration(coupon.Duration),
			DurationInMonths: coupon.DurationInMonths,
			MaxRedemptions:   coupon.MaxRedemptions,
		})
	}

	for _, webhook := range org.Webhooks {
		existing := tenant.Webhooks.Find(func(wh *domain.WebhookEndpoint) bool {
			return wh.URL == webhook.URL
		})
		if len(existing) > 0 {
			continue
		}
		s.factory.WebhookEndpoint(scope, webhook.URL, webhook.SharedSecret, webhook.Events)
	}

	s.log.Info("organization seeded",
		zap.String("org", org.Name),
		zap.Int("plans", len(org.Plans)),
		zap.Int("coupons", len(org.Coupons)),
		zap.Int("webhooks", len(org.Webhooks)))
}

var Module = fx.Module("seed",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, seeder *Seeder, holder *config.OrganizationsHolder) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			seeder.Apply(holder.Get())
			return nil
		},
	})
}

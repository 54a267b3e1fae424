package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Organization seeds one tenant: its API keys and the catalog objects it
// starts with.
type Organization struct {
	Name           string        `mapstructure:"name"`
	SecretKey      string        `mapstructure:"secretKey"`
	PublishableKey string        `mapstructure:"publishableKey"`
	Plans          []PlanSeed    `mapstructure:"plans"`
	Coupons        []CouponSeed  `mapstructure:"coupons"`
	Webhooks       []WebhookSeed `mapstructure:"webhooks"`
}

// PlanSeed declares a catalog plan.
type PlanSeed struct {
	ID              string `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	Amount          int64  `mapstructure:"amount"`
	Currency        string `mapstructure:"currency"`
	Interval        string `mapstructure:"interval"`
	IntervalCount   int64  `mapstructure:"intervalCount"`
	TrialPeriodDays int64  `mapstructure:"trialPeriodDays"`
}

// CouponSeed declares a coupon.
type CouponSeed struct {
	ID               string `mapstructure:"id"`
	AmountOff        int64  `mapstructure:"amountOff"`
	PercentOff       int64  `mapstructure:"percentOff"`
	Duration         string `mapstructure:"duration"`
	DurationInMonths int64  `mapstructure:"durationInMonths"`
	MaxRedemptions   int64  `mapstructure:"maxRedemptions"`
}

// WebhookSeed declares a delivery endpoint.
type WebhookSeed struct {
	URL          string   `mapstructure:"url"`
	SharedSecret string   `mapstructure:"sharedSecret"`
	Events       []string `mapstructure:"events"`
}

// OrganizationsHolder hot-reloads the organizations file.
type OrganizationsHolder struct {
	current atomic.Value // holds []Organization
}

// NewOrganizationsHolder reads organizations.yml and watches it for changes.
// A missing file yields an empty seed set, not an error.
func NewOrganizationsHolder() (*OrganizationsHolder, error) {
	v := viper.New()

	v.SetConfigName("organizations")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/mock-services")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &OrganizationsHolder{}
	holder.current.Store([]Organization{})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return holder, nil
	}

	var orgs []Organization
	if err := v.UnmarshalKey("organizations", &orgs); err != nil {
		return nil, err
	}
	if err := validateOrganizations(orgs); err != nil {
		return nil, err
	}
	holder.current.Store(orgs)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated []Organization
		if err := v.UnmarshalKey("organizations", &updated); err != nil {
			log.Printf("[organizations] reload failed: %v", err)
			return
		}
		if err := validateOrganizations(updated); err != nil {
			log.Printf("[organizations] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[organizations] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the current seed set.
func (h *OrganizationsHolder) Get() []Organization {
	return h.current.Load().([]Organization)
}

func validateOrganizations(orgs []Organization) error {
	seen := map[string]bool{}
	for _, org := range orgs {
		if strings.TrimSpace(org.Name) == "" {
			return errors.New("organization name cannot be empty")
		}
		if seen[org.Name] {
			return fmt.Errorf("duplicate organization: %s", org.Name)
		}
		seen[org.Name] = true
		if strings.TrimSpace(org.SecretKey) == "" {
			return fmt.Errorf("organization %s: secretKey cannot be empty", org.Name)
		}
	}
	return nil
}

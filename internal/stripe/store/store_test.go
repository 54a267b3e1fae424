package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
)

func TestCollectionOrderAndFind(t *testing.T) {
	c := newCollection[*domain.Plan]()
	c.Add("plan_a", &domain.Plan{ID: "plan_a", Amount: 100})
	c.Add("plan_b", &domain.Plan{ID: "plan_b", Amount: 200})
	c.Add("plan_c", &domain.Plan{ID: "plan_c", Amount: 300})

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, "plan_a", all[0].ID)
	assert.Equal(t, "plan_c", all[2].ID)

	expensive := c.Find(func(p *domain.Plan) bool { return p.Amount > 100 })
	require.Len(t, expensive, 2)
	assert.Equal(t, "plan_b", expensive[0].ID)
}

func TestCollectionUpdateAndDelete(t *testing.T) {
	c := newCollection[*domain.Coupon]()
	c.Add("cou_1", &domain.Coupon{ID: "cou_1", TimesRedeemed: 0})

	updated, ok := c.Update("cou_1", func(coupon *domain.Coupon) {
		coupon.TimesRedeemed++
	})
	require.True(t, ok)
	assert.Equal(t, int64(1), updated.TimesRedeemed)

	_, ok = c.Update("cou_missing", func(*domain.Coupon) {})
	assert.False(t, ok)

	removed, ok := c.Delete("cou_1")
	require.True(t, ok)
	assert.Equal(t, "cou_1", removed.ID)
	assert.Zero(t, c.Len())
}

func TestTenantIsolation(t *testing.T) {
	s := New()
	s.Tenant("acme").Customers.Add("cus_1", &domain.Customer{ID: "cus_1"})

	_, ok := s.Tenant("globex").Customers.Get("cus_1")
	assert.False(t, ok, "wrong-tenant lookup must behave as not found")

	_, ok = s.Tenant("acme").Customers.Get("cus_1")
	assert.True(t, ok)
}

func TestLookupKey(t *testing.T) {
	s := New()
	s.AddKeys("acme", domain.Keys{
		SecretKey:      "sk_test_acme",
		PublishableKey: "pk_test_acme",
	})

	identity, admin, ok := s.LookupKey("sk_test_acme")
	require.True(t, ok)
	assert.Equal(t, "acme", identity)
	assert.True(t, admin)

	identity, admin, ok = s.LookupKey("pk_test_acme")
	require.True(t, ok)
	assert.Equal(t, "acme", identity)
	assert.False(t, admin)

	_, _, ok = s.LookupKey("sk_test_unknown")
	assert.False(t, ok)
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mock-services.json")

	s := New()
	s.AddKeys("acme", domain.Keys{SecretKey: "sk_test_acme"})
	s.Tenant("acme").Customers.Add("cus_1", &domain.Customer{ID: "cus_1", Email: "jo@example.com"})
	s.Tenant("acme").Customers.Add("cus_2", &domain.Customer{ID: "cus_2"})
	s.Tenant("acme").Plans.Add("gold", &domain.Plan{ID: "gold", Amount: 1000})

	require.NoError(t, s.Save(path))

	restored := New()
	require.NoError(t, restored.Load(path))

	customer, ok := restored.Tenant("acme").Customers.Get("cus_1")
	require.True(t, ok)
	assert.Equal(t, "jo@example.com", customer.Email)

	all := restored.Tenant("acme").Customers.All()
	require.Len(t, all, 2)
	assert.Equal(t, "cus_1", all[0].ID, "insertion order survives the round trip")

	identity, admin, ok := restored.LookupKey("sk_test_acme")
	require.True(t, ok)
	assert.Equal(t, "acme", identity)
	assert.True(t, admin)
}

func TestLoadMissingFile(t *testing.T) {
	s := New()
	require.NoError(t, s.Load(filepath.Join(t.TempDir(), "absent.json")))
	assert.Empty(t, s.Identities())
}

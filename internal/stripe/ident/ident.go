// Package ident generates opaque, monotonically distinguishable resource ids.
package ident

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
)

// Generator produces ids of the form <kind-prefix>_<ulid>. Ids generated by
// one Generator sort in creation order within a kind, which keeps cursor
// pagination stable.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// New returns a Generator seeded from the wall clock.
func New() *Generator {
	seed := time.Now().UnixNano()
	return &Generator{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// ID returns a fresh id in the prefix's namespace.
func (g *Generator) ID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	return prefix + "_" + strings.ToLower(id.String())
}

// RequestID returns a resource-independent request id.
func (g *Generator) RequestID() string {
	return g.ID(domain.PrefixRequest)
}

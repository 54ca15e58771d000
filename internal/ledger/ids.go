package ledger

import (
	"math/rand/v2"
	"sync"
	"time"
)

// IDGenerator issues entry ids from the clock in milliseconds times 1000
// plus a random suffix. Ids are strictly increasing, so they never collide
// with each other or with any id reported through Observe.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()*1000 + rand.Int64N(1000)
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe records an id already in use.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}

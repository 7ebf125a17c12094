// Package cooldown gates how often the same generated-alert condition may
// fire. State is in-memory only: a restart resets all cooldowns, which at
// worst allows one extra duplicate notification. That tradeoff is
// intentional; do not back this with persistent storage.
package cooldown

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between two notifications for the same
// key unless the caller supplies its own.
const DefaultCooldown = 15 * time.Minute

// Tracker remembers when each key last fired. Keys are expected to be one
// per condition x target x severity tuple, so the map is unbounded but
// small.
type Tracker struct {
	mu        sync.Mutex
	lastFired map[string]time.Time

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// ShouldFire reports whether enough time has elapsed since key last fired.
// The first call for a key always fires. A true result records the new
// fire time as a side effect; a false result never mutates state.
func (t *Tracker) ShouldFire(key string, cooldown time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	last, ok := t.lastFired[key]
	if ok && now.Sub(last) <= cooldown {
		return false
	}

	t.lastFired[key] = now
	return true
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastFired)
}

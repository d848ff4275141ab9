// Package quota bounds the outbound request rate to a remote service
// with a sliding window over the trailing quota period.
package quota

import "time"

// Guard tracks the expiry timestamps of outstanding request slots.
// One Guard belongs to exactly one client; it is not safe for
// concurrent use.
type Guard struct {
	limit    int
	period   time.Duration
	expiries []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New builds a Guard allowing at most limit requests per period.
func New(limit int, period time.Duration) *Guard {
	return &Guard{
		limit:  limit,
		period: period,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Acquire blocks until one more request fits within the quota, then
// records the new request's expiry and returns.
func (g *Guard) Acquire() {
	g.trim()
	if len(g.expiries) >= g.limit {
		// Expiries are monotonically increasing: waiting out the
		// oldest one, plus a one-second safety margin, frees a slot.
		g.sleep(g.expiries[0].Sub(g.now()) + time.Second)
		g.trim()
	}
	g.expiries = append(g.expiries, g.now().Add(g.period))
}

// trim drops expired slots from the front of the window.
func (g *Guard) trim() {
	now := g.now()
	i := 0
	for i < len(g.expiries) && g.expiries[i].Before(now) {
		i++
	}
	g.expiries = g.expiries[i:]
}

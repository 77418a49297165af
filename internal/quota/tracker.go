// Package quota tracks the daily YouTube Data API unit budget.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/metrics"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

// DailyLimit is the number of units the API project may spend per day.
const DailyLimit = 10000

// Per-operation unit costs.
const (
	CostChannels = 1
	CostVideos   = 1
	CostComments = 1
	CostReply    = 1
)

// Counter is the persisted quota state.
type Counter struct {
	UsedUnits int       `json:"usedUnits"`
	ResetDate time.Time `json:"resetDate"`
}

// Tracker applies calendar-day rollover and charges units against DailyLimit.
// Every operation is a single atomic store update.
type Tracker struct {
	store store.Store
	limit int
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

// NewTracker creates a tracker whose day boundary is midnight in loc.
// A nil loc means the server's local time zone.
func NewTracker(s store.Store, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		store: s,
		limit: DailyLimit,
		loc:   loc,
		now:   time.Now,
		log:   log.With().Str("component", "quota").Logger(),
	}
}

// Limit returns the daily ceiling.
func (t *Tracker) Limit() int {
	return t.limit
}

func (t *Tracker) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(t.loc).Date()
	by, bm, bd := b.In(t.loc).Date()
	return ay == by && am == bm && ad == bd
}

// rollover zeroes c when its reset date is not today. It reports whether c changed.
func (t *Tracker) rollover(c *Counter, exists bool, now time.Time) bool {
	if exists && t.sameDay(c.ResetDate, now) {
		return false
	}
	if exists {
		t.log.Info().Int("used", c.UsedUnits).Time("reset_date", c.ResetDate).Msg("daily quota rolled over")
	}
	*c = Counter{UsedUnits: 0, ResetDate: now}
	return true
}

func (t *Tracker) update(ctx context.Context, fn func(c *Counter, now time.Time) bool) (Counter, error) {
	var snapshot Counter
	now := t.now()
	err := store.UpdateJSON(ctx, t.store, store.QuotaKey, func(c *Counter, exists bool) (bool, error) {
		write := t.rollover(c, exists, now)
		if fn != nil && fn(c, now) {
			write = true
		}
		snapshot = *c
		return write, nil
	})
	if err != nil {
		return Counter{}, fmt.Errorf("quota update: %w", err)
	}
	metrics.QuotaUsed.Set(float64(snapshot.UsedUnits))
	return snapshot, nil
}

// Snapshot returns the counter after applying rollover.
func (t *Tracker) Snapshot(ctx context.Context) (Counter, error) {
	return t.update(ctx, nil)
}

// Usage returns the units used today.
func (t *Tracker) Usage(ctx context.Context) (int, error) {
	c, err := t.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return c.UsedUnits, nil
}

// Check reports whether a call of the given cost fits in today's budget.
func (t *Tracker) Check(ctx context.Context, cost int) (bool, error) {
	used, err := t.Usage(ctx)
	if err != nil {
		return false, err
	}
	return used+cost <= t.limit, nil
}

// Charge adds cost to today's usage and stamps the reset date.
func (t *Tracker) Charge(ctx context.Context, cost int) error {
	_, err := t.update(ctx, func(c *Counter, now time.Time) bool {
		c.UsedUnits += cost
		c.ResetDate = now
		return true
	})
	return err
}

// Exhaust marks today's budget as spent. Used when the API itself reports
// the daily limit so later calls fail fast without a round trip.
func (t *Tracker) Exhaust(ctx context.Context) error {
	_, err := t.update(ctx, func(c *Counter, now time.Time) bool {
		if c.UsedUnits >= t.limit {
			return false
		}
		c.UsedUnits = t.limit
		c.ResetDate = now
		return true
	})
	return err
}

package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

func newTestTracker(t *testing.T, now time.Time) (*Tracker, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	tr := NewTracker(s, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, s
}

func seed(t *testing.T, s store.Store, c Counter) {
	t.Helper()
	require.NoError(t, store.SetJSON(context.Background(), s, store.QuotaKey, c))
}

func TestTracker_CheckAtCeiling(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tr, s := newTestTracker(t, now)
	seed(t, s, Counter{UsedUnits: 9999, ResetDate: now.Add(-time.Hour)})

	ok, err := tr.Check(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tr.Check(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTracker_RolloverPersistsReset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 0, 5, 0, 0, time.UTC)
	tr, s := newTestTracker(t, now)
	seed(t, s, Counter{UsedUnits: 4321, ResetDate: now.Add(-10 * time.Minute)})

	used, err := tr.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, used)

	var persisted Counter
	require.NoError(t, store.GetJSON(ctx, s, store.QuotaKey, &persisted))
	assert.Equal(t, 0, persisted.UsedUnits)
	assert.True(t, persisted.ResetDate.Equal(now))
}

func TestTracker_SameDayKeepsUsage(t *testing.T) {
	now := time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)
	tr, s := newTestTracker(t, now)
	seed(t, s, Counter{UsedUnits: 17, ResetDate: time.Date(2024, 5, 10, 0, 0, 1, 0, time.UTC)})

	used, err := tr.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 17, used)
}

func TestTracker_DayBoundaryFollowsLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	s := store.NewMemory()
	tr := NewTracker(s, tokyo)
	// 14:30 UTC on the 9th is 23:30 JST; 15:30 UTC is 00:30 JST on the 10th.
	tr.now = func() time.Time { return time.Date(2024, 5, 9, 15, 30, 0, 0, time.UTC) }
	seed(t, s, Counter{UsedUnits: 50, ResetDate: time.Date(2024, 5, 9, 14, 30, 0, 0, time.UTC)})

	used, err := tr.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestTracker_ChargeStampsResetDate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	tr, s := newTestTracker(t, now)

	require.NoError(t, tr.Charge(ctx, 1))
	require.NoError(t, tr.Charge(ctx, 3))

	var c Counter
	require.NoError(t, store.GetJSON(ctx, s, store.QuotaKey, &c))
	assert.Equal(t, 4, c.UsedUnits)
	assert.True(t, c.ResetDate.Equal(now))
}

func TestTracker_ConcurrentChargesAreNotLost(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Charge(ctx, 1))
		}()
	}
	wg.Wait()

	used, err := tr.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, used)
}

func TestTracker_Exhaust(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, time.Now())
	require.NoError(t, tr.Charge(ctx, 5))

	require.NoError(t, tr.Exhaust(ctx))

	ok, err := tr.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	used, _ := tr.Usage(ctx)
	assert.Equal(t, DailyLimit, used)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

func TestResource_TTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, ResourceChannels.TTL())
	assert.Equal(t, 12*time.Hour, ResourceVideos.TTL())
	assert.Equal(t, 30*time.Minute, ResourceComments.TTL())
}

func TestEntry_Expired(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{Data: []byte(`[]`), Timestamp: ts}

	assert.False(t, e.Expired(30*time.Minute, ts.Add(30*time.Minute)))
	assert.True(t, e.Expired(30*time.Minute, ts.Add(31*time.Minute)))
	assert.True(t, e.Expired(ResourceComments.TTL(), ts.Add(31*time.Minute)))
	assert.False(t, e.Expired(ResourceVideos.TTL(), ts.Add(31*time.Minute)))
}

func TestLayer_SetGetOverwrites(t *testing.T) {
	ctx := context.Background()
	l := New(store.NewMemory())
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return first })

	key := Key("u1", ResourceVideos, "UC1")
	require.NoError(t, l.Set(ctx, key, []string{"a"}))

	later := first.Add(time.Hour)
	l.SetClock(func() time.Time { return later })
	require.NoError(t, l.Set(ctx, key, []string{"b", "c"}))

	e, ok := l.Get(ctx, key)
	require.True(t, ok)
	assert.True(t, e.Timestamp.Equal(later))

	var got []string
	require.NoError(t, e.Decode(&got))
	assert.Equal(t, []string{"b", "c"}, got)
}

func TestLayer_MissingAndCorruptEntriesAreAbsent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	l := New(s)

	_, ok := l.Get(ctx, "nope")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "bad", []byte("not json")))
	_, ok = l.Get(ctx, "bad")
	assert.False(t, ok)
}

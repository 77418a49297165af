// Package cache stores timestamped API snapshots in the key-value store.
// It never evaluates freshness on its own; callers decide whether an
// expired entry is still acceptable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

// Resource is the type of cached data.
type Resource string

const (
	ResourceChannels Resource = "channels"
	ResourceVideos   Resource = "videos"
	ResourceComments Resource = "comments"
)

// TTL is how long an entry of this resource type counts as fresh.
func (r Resource) TTL() time.Duration {
	switch r {
	case ResourceChannels:
		return 24 * time.Hour
	case ResourceVideos:
		return 12 * time.Hour
	case ResourceComments:
		return 30 * time.Minute
	default:
		return 0
	}
}

// Entry is a cached snapshot.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Expired reports whether now - Timestamp exceeds ttl.
func (e Entry) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.Timestamp) > ttl
}

// Decode unmarshals the snapshot into dst.
func (e Entry) Decode(dst any) error {
	return json.Unmarshal(e.Data, dst)
}

// Layer reads and writes entries.
type Layer struct {
	store store.Store
	now   func() time.Time
}

// New creates a cache layer on top of s.
func New(s store.Store) *Layer {
	return &Layer{store: s, now: time.Now}
}

// Key builds the entry key for a user's resource.
func Key(userID string, r Resource, id string) string {
	return store.CacheKey(userID, string(r), id)
}

// Get returns the entry at key. A missing or unreadable entry reports false.
func (l *Layer) Get(ctx context.Context, key string) (Entry, bool) {
	var e Entry
	if err := store.GetJSON(ctx, l.store, key, &e); err != nil {
		return Entry{}, false
	}
	if e.Timestamp.IsZero() || len(e.Data) == 0 {
		return Entry{}, false
	}
	return e, true
}

// Set stores data stamped with the current time, replacing any prior entry.
func (l *Layer) Set(ctx context.Context, key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return store.SetJSON(ctx, l.store, key, Entry{Data: raw, Timestamp: l.now()})
}

// Now returns the layer's clock reading.
func (l *Layer) Now() time.Time {
	return l.now()
}

// SetClock overrides the layer's clock.
func (l *Layer) SetClock(now func() time.Time) {
	l.now = now
}

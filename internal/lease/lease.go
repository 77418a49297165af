// Package lease provides short-lived exclusive leases so that only one
// pipeline run works on a given comment at a time.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

const DefaultTTL = 2 * time.Minute

// ErrHeld is returned by Acquire when another owner holds an unexpired lease.
var ErrHeld = errors.New("lease is held by another owner")

// Leaser grants and releases leases.
type Leaser interface {
	// Acquire takes the lease for owner. It succeeds when no lease exists, the
	// existing lease expired, or owner already holds it (refresh).
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (*model.Lease, error)

	// Release removes the lease if owner holds it. Releasing a lease that is
	// gone or owned by someone else is not an error.
	Release(ctx context.Context, key, owner string) error
}

func expiry(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl).Unix()
}

// README: AcceptanceArbiter: transactional accept with bounded retries on store contention.
package ride

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"londa/internal/metrics"
)

const acceptBackoff = 25 * time.Millisecond

// Arbiter guarantees at most one driver moves a ride from pending to accepted.
// Isolation comes from Repository.Update; losers read the winner's driver_id
// and fail with ErrAlreadyClaimed.
type Arbiter struct {
	svc      *Service
	attempts int
}

func newArbiter(svc *Service, attempts int) *Arbiter {
	if attempts < 1 {
		attempts = 1
	}
	return &Arbiter{svc: svc, attempts: attempts}
}

func (a *Arbiter) Accept(ctx context.Context, cmd AcceptCommand) (*Ride, error) {
	for attempt := 1; ; attempt++ {
		r, err := a.svc.apply(ctx, cmd.RideID, EventAccept, cmd.DriverID, RoleDriver, func(r *Ride, now time.Time) error {
			return r.Accept(cmd.DriverID, now)
		})
		if !errors.Is(err, ErrContention) || attempt >= a.attempts {
			return r, err
		}
		metrics.AcceptRetries.Inc()

		wait := time.Duration(attempt)*acceptBackoff + time.Duration(rand.Int63n(int64(acceptBackoff)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// README: Redis pub/sub fan-out of ride transitions for live clients.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

type Broadcaster struct {
	rdb *redis.Client
}

func NewBroadcaster(rdb *redis.Client) *Broadcaster {
	return &Broadcaster{rdb: rdb}
}

func Channel(rideID types.ID) string {
	return fmt.Sprintf("ride:%s:updates", rideID)
}

func (b *Broadcaster) OnTransition(ctx context.Context, t ride.Transition) error {
	payload, err := json.Marshal(FromTransition(t))
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel(t.RideID), payload).Err()
}

// Subscribe delivers records for one ride until ctx is done. The returned
// channel is closed when the subscription ends.
func (b *Broadcaster) Subscribe(ctx context.Context, rideID types.ID) (<-chan Record, error) {
	sub := b.rdb.Subscribe(ctx, Channel(rideID))
	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe ride updates: %w", err)
	}

	out := make(chan Record, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var rec Record
				if err := json.Unmarshal([]byte(m.Payload), &rec); err != nil {
					slog.Warn("drop malformed ride update", "ride_id", rideID, "err", err)
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

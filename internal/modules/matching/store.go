// README: Dispatch bookkeeping and per-ride decline lists backed by Redis.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"londa/internal/types"
)

const (
	notifiedKeyPrefix = "matching:ride:%s:notified"
	declinedKeyPrefix = "matching:ride:%s:declined"
)

// DispatchStore remembers who was notified about a ride and who declined it.
type DispatchStore interface {
	RecordDispatch(ctx context.Context, rideID types.ID, driverIDs []types.ID, ttl time.Duration) error
	Notified(ctx context.Context, rideID types.ID) ([]types.ID, error)
	RecordDecline(ctx context.Context, rideID, driverID types.ID, ttl time.Duration) error
	// Declined reports, for each ride id, whether driverID declined it.
	Declined(ctx context.Context, driverID types.ID, rideIDs []types.ID) (map[types.ID]bool, error)
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// RecordDispatch records the set of drivers notified about a ride.
func (s *Store) RecordDispatch(ctx context.Context, rideID types.ID, driverIDs []types.ID, ttl time.Duration) error {
	if len(driverIDs) == 0 {
		return nil
	}
	ttl = max(ttl, minDispatchTTL)
	members := make([]interface{}, len(driverIDs))
	for i, d := range driverIDs {
		members[i] = string(d)
	}
	pipe := s.redis.Pipeline()
	pipe.SAdd(ctx, notifiedKey(rideID), members...)
	pipe.Expire(ctx, notifiedKey(rideID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Notified(ctx context.Context, rideID types.ID) ([]types.ID, error) {
	members, err := s.redis.SMembers(ctx, notifiedKey(rideID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

func (s *Store) RecordDecline(ctx context.Context, rideID, driverID types.ID, ttl time.Duration) error {
	ttl = max(ttl, minDispatchTTL)
	pipe := s.redis.Pipeline()
	pipe.SAdd(ctx, declinedKey(rideID), string(driverID))
	pipe.Expire(ctx, declinedKey(rideID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Declined(ctx context.Context, driverID types.ID, rideIDs []types.ID) (map[types.ID]bool, error) {
	out := make(map[types.ID]bool, len(rideIDs))
	if len(rideIDs) == 0 {
		return out, nil
	}
	pipe := s.redis.Pipeline()
	cmds := make([]*redis.BoolCmd, len(rideIDs))
	for i, id := range rideIDs {
		cmds[i] = pipe.SIsMember(ctx, declinedKey(id), string(driverID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, id := range rideIDs {
		if cmds[i].Val() {
			out[id] = true
		}
	}
	return out, nil
}

func notifiedKey(rideID types.ID) string {
	return fmt.Sprintf(notifiedKeyPrefix, string(rideID))
}

func declinedKey(rideID types.ID) string {
	return fmt.Sprintf(declinedKeyPrefix, string(rideID))
}

package matching

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"londa/internal/types"
)

func setupStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	addr := os.Getenv("LONDA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LONDA_TEST_REDIS_ADDR not set; skipping Redis-backed dispatch tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), rdb
}

func TestStoreRecordDispatchWritesOnlyNotifiedSet(t *testing.T) {
	ctx := context.Background()
	s, rdb := setupStore(t)
	rideID := types.NewID()
	t.Cleanup(func() { rdb.Del(ctx, notifiedKey(rideID), declinedKey(rideID)) })

	if err := s.RecordDispatch(ctx, rideID, []types.ID{"d1", "d2"}, 10*time.Minute); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}
	keys, err := rdb.Keys(ctx, "matching:ride:"+string(rideID)+":*").Result()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != notifiedKey(rideID) {
		t.Fatalf("unexpected keys %v", keys)
	}
	got, err := s.Notified(ctx, rideID)
	if err != nil || len(got) != 2 {
		t.Fatalf("notified = %v, %v", got, err)
	}
	if ttl := rdb.TTL(ctx, notifiedKey(rideID)).Val(); ttl <= 0 || ttl > 10*time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestStoreRecordDispatchWithoutDrivers(t *testing.T) {
	ctx := context.Background()
	s, rdb := setupStore(t)
	rideID := types.NewID()

	if err := s.RecordDispatch(ctx, rideID, nil, time.Minute); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}
	if n := rdb.Exists(ctx, notifiedKey(rideID)).Val(); n != 0 {
		t.Fatalf("expected no keys for an empty dispatch, got %d", n)
	}
}

func TestStoreDeclined(t *testing.T) {
	ctx := context.Background()
	s, rdb := setupStore(t)
	r1, r2 := types.NewID(), types.NewID()
	t.Cleanup(func() { rdb.Del(ctx, declinedKey(r1), declinedKey(r2)) })

	if err := s.RecordDecline(ctx, r1, "d1", time.Minute); err != nil {
		t.Fatalf("record decline: %v", err)
	}
	got, err := s.Declined(ctx, "d1", []types.ID{r1, r2})
	if err != nil {
		t.Fatalf("declined: %v", err)
	}
	if !got[r1] || got[r2] {
		t.Fatalf("unexpected declined map %v", got)
	}
}

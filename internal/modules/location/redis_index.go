// README: GeoIndex backed by a Redis GEO set of online drivers.
package location

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"londa/internal/metrics"
	"londa/internal/types"
)

const driverGeoKey = "drivers:geo"

// Redis computes distances on a slightly larger sphere; widen the search a
// little and let rankCandidates apply the exact radius.
const redisRadiusSlack = 1.001

type RedisIndex struct {
	redis *redis.Client
}

func NewRedisIndex(rdb *redis.Client) *RedisIndex {
	return &RedisIndex{redis: rdb}
}

// Upsert records an online driver's position.
func (x *RedisIndex) Upsert(ctx context.Context, driverID types.ID, p types.Point) error {
	return x.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(driverID),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

// Remove drops a driver that went offline or busy.
func (x *RedisIndex) Remove(ctx context.Context, driverID types.ID) error {
	return x.redis.ZRem(ctx, driverGeoKey, string(driverID)).Err()
}

func (x *RedisIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if err := ValidatePoint(p); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	defer func(start time.Time) { metrics.NearbyLatency.Observe(time.Since(start).Seconds()) }(time.Now())

	res, err := x.redis.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusKm * redisRadiusSlack,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geosearch: %w", err)
	}

	drivers := make([]DriverPosition, len(res))
	for i, r := range res {
		loc := types.Point{Lat: r.Latitude, Lng: r.Longitude}
		drivers[i] = DriverPosition{DriverID: types.ID(r.Name), Location: &loc}
	}
	out, _ := rankCandidates(p, drivers, radiusKm, limit)
	return out, nil
}

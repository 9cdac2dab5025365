// README: Pricing service computes fare quotes from driving distance, falling back to the base fare.
package pricing

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"londa/internal/config"
	"londa/internal/maps"
	"londa/internal/metrics"
	"londa/internal/modules/location"
	"londa/internal/types"
)

type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination types.Point) (maps.RouteEstimate, error)
}

type RateSource interface {
	GetRate(ctx context.Context, rideType string) (Rate, error)
}

type Service struct {
	routes   RouteEstimator
	rates    RateSource
	fallback Rate
}

// NewService builds a pricing service. rates may be nil, in which case every
// ride type uses the configured default rate.
func NewService(routes RouteEstimator, rates RateSource, cfg config.FareConfig) *Service {
	base := types.NewMoney(cfg.Default, cfg.Currency)
	return &Service{
		routes: routes,
		rates:  rates,
		fallback: Rate{
			BaseFare: base.Amount,
			PerKm:    types.NewMoney(cfg.PerKm, cfg.Currency).Amount,
			Currency: cfg.Currency,
		},
	}
}

// DefaultFare is the fare charged when no quote is available.
func (s *Service) DefaultFare() types.Money {
	return types.Money{Amount: s.fallback.BaseFare, Currency: s.fallback.Currency}
}

// Quote never fails: any upstream problem degrades to the base fare.
func (s *Service) Quote(ctx context.Context, pickup, dropoff types.Point, rideType string) Quote {
	rate := s.rate(ctx, rideType)
	base := types.Money{Amount: rate.BaseFare, Currency: rate.Currency}
	q := Quote{RideType: rideType, EstimatedFare: base, BaseFare: base}

	est, err := s.routes.Estimate(ctx, pickup, dropoff)
	if err != nil {
		if !errors.Is(err, maps.ErrUnavailable) {
			slog.WarnContext(ctx, "route estimate failed", "err", err)
		}
		metrics.FareFallbacks.Inc()
		q.Fallback = true
		q.DistanceKm = location.Distance(pickup, dropoff)
		return q
	}

	q.DistanceKm = est.DistanceKm
	q.DurationMinutes = est.Duration.Minutes()
	q.EstimatedFare.Amount += int64(math.Round(float64(rate.PerKm) * est.DistanceKm))
	return q
}

func (s *Service) rate(ctx context.Context, rideType string) Rate {
	r := s.fallback
	r.RideType = rideType
	if s.rates == nil {
		return r
	}
	got, err := s.rates.GetRate(ctx, rideType)
	if err != nil {
		if !errors.Is(err, ErrRateNotFound) {
			slog.WarnContext(ctx, "rate lookup failed; using default rate", "ride_type", rideType, "err", err)
		}
		return r
	}
	return got
}

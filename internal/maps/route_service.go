package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"londa/internal/types"
)

var (
	// ErrUnavailable is returned when no API key is configured or the API call fails.
	ErrUnavailable = errors.New("mapping service unavailable")
	ErrNoRoute     = errors.New("no route found")
)

// RouteEstimate is a driving distance and duration between two points.
type RouteEstimate struct {
	DistanceKm   float64
	Duration     time.Duration
	DistanceText string
	DurationText string
}

type Step struct {
	Instruction string
	DistanceKm  float64
	Duration    time.Duration
}

type Directions struct {
	DistanceKm   float64
	Duration     time.Duration
	StartAddress string
	EndAddress   string
	Steps        []Step
}

// RouteService handles driving estimates and directions via the Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a RouteService. An empty apiKey yields a service
// whose calls all fail with ErrUnavailable.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	if apiKey == "" {
		return &RouteService{}, nil
	}
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

func (s *RouteService) Enabled() bool {
	return s != nil && s.client != nil
}

// Estimate returns the driving distance and duration from origin to destination.
func (s *RouteService) Estimate(ctx context.Context, origin, destination types.Point) (RouteEstimate, error) {
	if !s.Enabled() {
		return RouteEstimate{}, ErrUnavailable
	}
	resp, err := s.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(origin)},
		Destinations: []string{latLng(destination)},
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		return RouteEstimate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return RouteEstimate{}, ErrNoRoute
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return RouteEstimate{}, fmt.Errorf("%w: element status %s", ErrNoRoute, el.Status)
	}
	return RouteEstimate{
		DistanceKm:   float64(el.Distance.Meters) / 1000,
		Duration:     el.Duration,
		DistanceText: el.Distance.HumanReadable,
		DurationText: el.Duration.Round(time.Minute).String(),
	}, nil
}

// Directions returns turn-by-turn driving directions for the first route.
func (s *RouteService) Directions(ctx context.Context, origin, destination types.Point) (*Directions, error) {
	if !s.Enabled() {
		return nil, ErrUnavailable
	}
	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	out := &Directions{
		DistanceKm:   float64(leg.Distance.Meters) / 1000,
		Duration:     leg.Duration,
		StartAddress: leg.StartAddress,
		EndAddress:   leg.EndAddress,
	}
	for _, st := range leg.Steps {
		out.Steps = append(out.Steps, Step{
			Instruction: st.HTMLInstructions,
			DistanceKm:  float64(st.Distance.Meters) / 1000,
			Duration:    st.Duration,
		})
	}
	return out, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

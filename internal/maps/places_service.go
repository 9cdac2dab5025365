package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"londa/internal/types"
)

// Place is a geocoding result.
type Place struct {
	Location         types.Point
	FormattedAddress string
	PlaceID          string
}

// PlacesService handles forward and reverse geocoding.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a PlacesService sharing the RouteService client.
func NewPlacesService(routes *RouteService) *PlacesService {
	return &PlacesService{client: routes.client}
}

// Geocode resolves an address; a nil Place means no match.
func (s *PlacesService) Geocode(ctx context.Context, address string) (*Place, error) {
	if s.client == nil {
		return nil, ErrUnavailable
	}
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	r := results[0]
	return &Place{
		Location:         types.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng, Address: r.FormattedAddress},
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
	}, nil
}

// ReverseGeocode resolves coordinates to an address; a nil Place means no match.
func (s *PlacesService) ReverseGeocode(ctx context.Context, p types.Point) (*Place, error) {
	if s.client == nil {
		return nil, ErrUnavailable
	}
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	p.Address = results[0].FormattedAddress
	return &Place{Location: p, FormattedAddress: results[0].FormattedAddress, PlaceID: results[0].PlaceID}, nil
}

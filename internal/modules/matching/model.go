// README: Matching request types and dispatch limits.
package matching

import (
	"time"

	"londa/internal/modules/location"
	"londa/internal/modules/pricing"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

const (
	// MaxRadiusKm bounds rider-facing nearby searches.
	MaxRadiusKm = 100.0
	// DefaultAvailableLimit is the page size of a driver's available-ride list.
	DefaultAvailableLimit = 50
	// minDispatchTTL keeps dispatch keys around for rides created just before their TTL.
	minDispatchTTL = time.Minute
)

type RequestCommand struct {
	RiderID        types.ID
	Pickup         types.Point
	Dropoff        types.Point
	RideType       string
	PassengerCount int
}

// Dispatch is the result of a ride request: the new ride plus who was told about it.
type Dispatch struct {
	Ride       *ride.Ride
	Quote      pricing.Quote
	Candidates []location.Candidate
}

type DeclineCommand struct {
	RideID   types.ID
	DriverID types.ID
	Reason   string
}

// README: Fare rate per ride type and the quote returned to callers.
package pricing

import "londa/internal/types"

// Rate amounts are in minor units.
type Rate struct {
	RideType string
	BaseFare int64
	PerKm    int64
	Currency string
}

// Quote is a fare estimate. Fallback is true when the mapping provider could
// not be reached and the base fare was charged.
type Quote struct {
	RideType        string
	EstimatedFare   types.Money
	BaseFare        types.Money
	DistanceKm      float64
	DurationMinutes float64
	Fallback        bool
}

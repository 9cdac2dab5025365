// README: Base handler utilities (binding, query parsing, ride views).
package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"londa/internal/http/middleware"
	"londa/internal/http/response"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

// isValidID accepts the uuid-shaped ids the stores generate and Firebase uids.
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

// bind decodes the JSON body; failures surface as VALIDATION_ERROR.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", response.ErrValidation, err))
		return false
	}
	return true
}

func requireID(c *gin.Context, field, v string) (types.ID, bool) {
	if !isValidID(v) {
		response.Error(c, fmt.Errorf("%w: %s is required", response.ErrValidation, field))
		return "", false
	}
	return types.ID(v), true
}

func queryInt(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be an integer between %d and %d", response.ErrValidation, key, lo, hi)
	}
	return n, nil
}

func queryFloat(c *gin.Context, key string, def float64, required bool) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%w: %s is required", response.ErrValidation, key)
		}
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", response.ErrValidation, key)
	}
	return f, nil
}

func queryPoint(c *gin.Context) (types.Point, error) {
	lat, err := queryFloat(c, "latitude", 0, true)
	if err != nil {
		return types.Point{}, err
	}
	lng, err := queryFloat(c, "longitude", 0, true)
	if err != nil {
		return types.Point{}, err
	}
	return types.Point{Lat: lat, Lng: lng}, nil
}

func pageQuery(c *gin.Context) (ride.PageQuery, error) {
	page, err := queryInt(c, "page", 1, 1, 1_000_000)
	if err != nil {
		return ride.PageQuery{}, err
	}
	limit, err := queryInt(c, "limit", ride.DefaultPageLimit, 1, ride.MaxPageLimit)
	if err != nil {
		return ride.PageQuery{}, err
	}
	return ride.PageQuery{Page: page, Limit: limit}, nil
}

func caller(c *gin.Context) types.ID {
	return middleware.CallerUID(c)
}

type rideView struct {
	ID                 types.ID     `json:"id"`
	UserID             types.ID     `json:"userId"`
	DriverID           *types.ID    `json:"driverId"`
	Pickup             types.Point  `json:"pickupLocation"`
	Dropoff            types.Point  `json:"dropoffLocation"`
	Status             ride.Status  `json:"status"`
	RideType           string       `json:"rideType"`
	PassengerCount     int          `json:"passengerCount"`
	EstimatedFare      types.Money  `json:"estimatedFare"`
	FinalFare          *types.Money `json:"finalFare"`
	Rating             *int         `json:"rating"`
	Review             *string      `json:"review"`
	CancellationReason *string      `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
	ExpiresAt          time.Time    `json:"expiresAt"`
	AcceptedAt         *time.Time   `json:"acceptedAt,omitempty"`
	StartedAt          *time.Time   `json:"startedAt,omitempty"`
	CompletedAt        *time.Time   `json:"completedAt,omitempty"`
	CancelledAt        *time.Time   `json:"cancelledAt,omitempty"`
}

func toRideView(r *ride.Ride) rideView {
	return rideView{
		ID:                 r.ID,
		UserID:             r.RiderID,
		DriverID:           r.DriverID,
		Pickup:             r.Pickup,
		Dropoff:            r.Dropoff,
		Status:             r.Status,
		RideType:           r.RideType,
		PassengerCount:     r.PassengerCount,
		EstimatedFare:      r.EstimatedFare,
		FinalFare:          r.FinalFare,
		Rating:             r.Rating,
		Review:             r.Review,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ExpiresAt:          r.ExpiresAt,
		AcceptedAt:         r.AcceptedAt,
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
		CancelledAt:        r.CancelledAt,
	}
}

func toRideViews(rides []ride.Ride) []rideView {
	out := make([]rideView, 0, len(rides))
	for i := range rides {
		out = append(out, toRideView(&rides[i]))
	}
	return out
}

type ridePage struct {
	Rides   []rideView `json:"rides"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
	HasMore bool       `json:"hasMore"`
}

func toRidePage(p ride.Page) ridePage {
	return ridePage{Rides: toRideViews(p.Rides), Total: p.Total, Page: p.Page, Limit: p.Limit, HasMore: p.HasMore}
}

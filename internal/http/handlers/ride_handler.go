// README: Rider-facing ride handlers: request, cancel, rate, status, history, nearby drivers.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/events"
	"londa/internal/modules/location"
	"londa/internal/modules/matching"
	"londa/internal/modules/pricing"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

type EventHistory interface {
	History(ctx context.Context, rideID types.ID) ([]events.Record, error)
}

type UpdateFeed interface {
	Subscribe(ctx context.Context, rideID types.ID) (<-chan events.Record, error)
}

type RideHandler struct {
	rides    *ride.Service
	matching *matching.Service
	// history and updates are nil when their backends are not configured.
	history EventHistory
	updates UpdateFeed
}

func NewRideHandler(rides *ride.Service, matchingSvc *matching.Service, history EventHistory, updates UpdateFeed) *RideHandler {
	return &RideHandler{rides: rides, matching: matchingSvc, history: history, updates: updates}
}

type requestRideReq struct {
	Pickup         *types.Point `json:"pickup_location" binding:"required"`
	Dropoff        *types.Point `json:"dropoff_location" binding:"required"`
	RideType       string       `json:"ride_type"`
	PassengerCount *int         `json:"passengerCount"`
}

type quoteView struct {
	RideType        string      `json:"rideType"`
	EstimatedFare   types.Money `json:"estimatedFare"`
	BaseFare        types.Money `json:"baseFare"`
	DistanceKm      float64     `json:"distanceKm"`
	DurationMinutes float64     `json:"durationMinutes"`
	Fallback        bool        `json:"fallback"`
}

func toQuoteView(q pricing.Quote) quoteView {
	return quoteView{
		RideType:        q.RideType,
		EstimatedFare:   q.EstimatedFare,
		BaseFare:        q.BaseFare,
		DistanceKm:      q.DistanceKm,
		DurationMinutes: q.DurationMinutes,
		Fallback:        q.Fallback,
	}
}

type candidateView struct {
	DriverID   types.ID    `json:"driverId"`
	Location   types.Point `json:"location"`
	DistanceKm float64     `json:"distanceKm"`
}

func toCandidateViews(cs []location.Candidate) []candidateView {
	out := make([]candidateView, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateView{DriverID: c.DriverID, Location: c.Location, DistanceKm: c.DistanceKm})
	}
	return out
}

func (h *RideHandler) RequestRide(c *gin.Context) {
	var req requestRideReq
	if !bind(c, &req) {
		return
	}
	passengers := 1
	if req.PassengerCount != nil {
		passengers = *req.PassengerCount
	}
	d, err := h.matching.RequestRide(c.Request.Context(), matching.RequestCommand{
		RiderID:        caller(c),
		Pickup:         *req.Pickup,
		Dropoff:        *req.Dropoff,
		RideType:       req.RideType,
		PassengerCount: passengers,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Ride requested successfully", gin.H{
		"ride":            toRideView(d.Ride),
		"quote":           toQuoteView(d.Quote),
		"driversNotified": len(d.Candidates),
	})
}

type cancelRideReq struct {
	RideID string `json:"ride_id"`
	Reason string `json:"reason"`
}

func (h *RideHandler) CancelRide(c *gin.Context) {
	var req cancelRideReq
	if !bind(c, &req) {
		return
	}
	id, ok := requireID(c, "ride_id", req.RideID)
	if !ok {
		return
	}
	r, err := h.rides.Cancel(c.Request.Context(), ride.CancelCommand{RideID: id, RiderID: caller(c), Reason: req.Reason})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride cancelled successfully", toRideView(r))
}

type rateRideReq struct {
	RideID string `json:"ride_id"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (h *RideHandler) RateRide(c *gin.Context) {
	var req rateRideReq
	if !bind(c, &req) {
		return
	}
	id, ok := requireID(c, "ride_id", req.RideID)
	if !ok {
		return
	}
	r, err := h.rides.Rate(c.Request.Context(), ride.RateCommand{RideID: id, RiderID: caller(c), Rating: req.Rating, Review: req.Review})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride rated successfully", toRideView(r))
}

// visibleRide loads a ride the caller rides in or drives.
func (h *RideHandler) visibleRide(c *gin.Context) (*ride.Ride, bool) {
	id, ok := requireID(c, "ride id", c.Param("id"))
	if !ok {
		return nil, false
	}
	r, err := h.rides.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !r.Involves(caller(c)) {
		response.Error(c, fmt.Errorf("%w: ride belongs to another user", response.ErrForbidden))
		return nil, false
	}
	return r, true
}

func (h *RideHandler) RideStatus(c *gin.Context) {
	r, ok := h.visibleRide(c)
	if !ok {
		return
	}
	response.OK(c, "Ride status retrieved successfully", toRideView(r))
}

func (h *RideHandler) GetRides(c *gin.Context) {
	q, err := pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.rides.ListForRider(c.Request.Context(), caller(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Rides retrieved successfully", toRidePage(p))
}

func (h *RideHandler) NearbyDrivers(c *gin.Context) {
	p, err := queryPoint(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	radius, err := queryFloat(c, "radius", 0, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("radius") != "" && radius <= 0 {
		response.Error(c, fmt.Errorf("%w: radius must be greater than 0", response.ErrValidation))
		return
	}
	cs, err := h.matching.NearbyDrivers(c.Request.Context(), p, radius, 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Nearby drivers retrieved successfully", gin.H{
		"drivers": toCandidateViews(cs),
		"count":   len(cs),
	})
}

func (h *RideHandler) RideEvents(c *gin.Context) {
	r, ok := h.visibleRide(c)
	if !ok {
		return
	}
	if h.history == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, "ride event history is not enabled", nil)
		return
	}
	recs, err := h.history.History(c.Request.Context(), r.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if recs == nil {
		recs = []events.Record{}
	}
	response.OK(c, "Ride events retrieved successfully", gin.H{"events": recs})
}

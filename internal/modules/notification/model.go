// README: Push message catalogue for ride lifecycle notifications.
package notification

import (
	"fmt"
	"strconv"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

type Kind string

const (
	KindRideRequested Kind = "ride_requested"
	KindRideAccepted  Kind = "ride_accepted"
	KindRideStarted   Kind = "ride_started"
	KindRideCompleted Kind = "ride_completed"
	KindRideCancelled Kind = "ride_cancelled"
	KindRideExpired   Kind = "ride_expired"
)

// Message is provider independent; Data values are strings because FCM data
// payloads only carry strings.
type Message struct {
	Kind  Kind
	Title string
	Body  string
	Data  map[string]string
}

// Result is the outcome of one recipient in a fan-out.
type Result struct {
	UserID types.ID
	Err    error
}

func placeName(p types.Point, def string) string {
	if p.Name != "" {
		return p.Name
	}
	return def
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func RideRequested(r ride.Ride) Message {
	return Message{
		Kind:  KindRideRequested,
		Title: "New Ride Request",
		Body:  fmt.Sprintf("Ride from %s to %s", placeName(r.Pickup, "pickup"), placeName(r.Dropoff, "dropoff")),
		Data: map[string]string{
			"type":          string(KindRideRequested),
			"rideId":        string(r.ID),
			"pickupLat":     formatCoord(r.Pickup.Lat),
			"pickupLng":     formatCoord(r.Pickup.Lng),
			"dropoffLat":    formatCoord(r.Dropoff.Lat),
			"dropoffLng":    formatCoord(r.Dropoff.Lng),
			"estimatedFare": strconv.FormatFloat(r.EstimatedFare.Major(), 'f', 2, 64),
		},
	}
}

func RideAccepted(r ride.Ride, driverName, vehicle string) Message {
	if driverName == "" {
		driverName = "Your driver"
	}
	return Message{
		Kind:  KindRideAccepted,
		Title: "Ride Accepted",
		Body:  fmt.Sprintf("%s has accepted your ride request", driverName),
		Data: map[string]string{
			"type":          string(KindRideAccepted),
			"rideId":        string(r.ID),
			"driverName":    driverName,
			"driverVehicle": vehicle,
		},
	}
}

func RideStarted(r ride.Ride) Message {
	return Message{
		Kind:  KindRideStarted,
		Title: "Ride Started",
		Body:  "Your driver has started the ride",
		Data:  map[string]string{"type": string(KindRideStarted), "rideId": string(r.ID)},
	}
}

func RideCompleted(r ride.Ride) Message {
	fare := r.EstimatedFare
	if r.FinalFare != nil {
		fare = *r.FinalFare
	}
	return Message{
		Kind:  KindRideCompleted,
		Title: "Ride Completed",
		Body:  fmt.Sprintf("Your ride has been completed. Fare: %s", fare),
		Data: map[string]string{
			"type":      string(KindRideCompleted),
			"rideId":    string(r.ID),
			"finalFare": strconv.FormatFloat(fare.Major(), 'f', 2, 64),
		},
	}
}

func RideCancelled(r ride.Ride) Message {
	reason := ""
	if r.CancellationReason != nil {
		reason = *r.CancellationReason
	}
	body := reason
	if body == "" {
		body = "The ride has been cancelled"
	}
	return Message{
		Kind:  KindRideCancelled,
		Title: "Ride Cancelled",
		Body:  body,
		Data:  map[string]string{"type": string(KindRideCancelled), "rideId": string(r.ID), "reason": reason},
	}
}

func RideExpired(r ride.Ride) Message {
	return Message{
		Kind:  KindRideExpired,
		Title: "Ride Request Expired",
		Body:  "No driver accepted your request in time. Please try again.",
		Data:  map[string]string{"type": string(KindRideExpired), "rideId": string(r.ID)},
	}
}

// README: Ride transition record shared by the ledger, the Kafka stream and live updates.
package events

import (
	"time"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

// Record is the wire and storage form of a ride.Transition.
type Record struct {
	RideID    types.ID    `json:"rideId"`
	From      ride.Status `json:"from,omitempty"`
	To        ride.Status `json:"to"`
	Event     ride.Event  `json:"event"`
	ActorID   types.ID    `json:"actorId,omitempty"`
	ActorRole string      `json:"actorRole"`
	DriverID  *types.ID   `json:"driverId,omitempty"`
	Reason    *string     `json:"reason,omitempty"`
	At        time.Time   `json:"at"`
}

func FromTransition(t ride.Transition) Record {
	rec := Record{
		RideID:    t.RideID,
		From:      t.From,
		To:        t.To,
		Event:     t.Event,
		ActorID:   t.ActorID,
		ActorRole: t.ActorRole,
		DriverID:  t.Ride.DriverID,
		Reason:    t.Ride.CancellationReason,
		At:        t.At.UTC(),
	}
	if rec.DriverID == nil {
		rec.DriverID = t.PreviousDriverID
	}
	if t.To != ride.StatusCancelled {
		rec.Reason = nil
	}
	return rec
}

// README: Ride observer that pushes lifecycle notifications to riders and drivers.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

// DriverDirectory resolves the display details shown to riders.
type DriverDirectory interface {
	DisplayInfo(ctx context.Context, driverID types.ID) (name, vehicle string, err error)
}

type RideObserver struct {
	svc     *Service
	drivers DriverDirectory
}

func NewRideObserver(svc *Service, drivers DriverDirectory) *RideObserver {
	return &RideObserver{svc: svc, drivers: drivers}
}

func (o *RideObserver) OnTransition(ctx context.Context, t ride.Transition) error {
	var (
		to  types.ID
		msg Message
	)
	switch t.Event {
	case ride.EventAccept:
		name, vehicle := "", ""
		if o.drivers != nil && t.Ride.DriverID != nil {
			var err error
			name, vehicle, err = o.drivers.DisplayInfo(ctx, *t.Ride.DriverID)
			if err != nil {
				slog.WarnContext(ctx, "driver lookup for notification failed", "driver_id", *t.Ride.DriverID, "err", err)
			}
		}
		to, msg = t.Ride.RiderID, RideAccepted(t.Ride, name, vehicle)
	case ride.EventStart:
		to, msg = t.Ride.RiderID, RideStarted(t.Ride)
	case ride.EventComplete:
		to, msg = t.Ride.RiderID, RideCompleted(t.Ride)
	case ride.EventCancel:
		// pending cancellations reach notified drivers through matching
		if t.PreviousDriverID == nil {
			return nil
		}
		to, msg = *t.PreviousDriverID, RideCancelled(t.Ride)
	case ride.EventExpire:
		to, msg = t.Ride.RiderID, RideExpired(t.Ride)
	default:
		return nil
	}

	err := o.svc.NotifyUser(ctx, to, msg)
	if errors.Is(err, ErrNoToken) {
		slog.DebugContext(ctx, "recipient has no device token", "user_id", to, "kind", msg.Kind)
		return nil
	}
	return err
}

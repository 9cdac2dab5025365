// README: Pure state machine: each method validates input, then status, then the actor guard.
package ride

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"londa/internal/types"
)

var (
	ErrNotFound          = errors.New("ride not found")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrAlreadyClaimed    = errors.New("ride already claimed by another driver")
	ErrNotAssigned       = errors.New("ride is not assigned to this driver")
	ErrNotRideOwner      = errors.New("ride belongs to another rider")
	ErrContention        = errors.New("ride store contention")
	ErrBadRequest        = errors.New("bad request")
)

// TransitionError is an ErrIllegalTransition naming the current status and the attempted event.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s requires %s, ride is %s", e.Event.verb(), requiredStatuses(e.Event), e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func (e Event) verb() string {
	switch e {
	case EventAccept:
		return "accept"
	case EventCancel:
		return "cancel"
	case EventStart:
		return "start"
	case EventComplete:
		return "complete"
	case EventRate:
		return "rate"
	}
	return string(e)
}

func requiredStatuses(ev Event) string {
	var from []string
	for _, s := range Statuses {
		if _, ok := CanTransition(s, ev); ok {
			from = append(from, string(s))
		}
	}
	if len(from) == 0 {
		return "nothing"
	}
	return strings.Join(from, " or ")
}

func (r *Ride) check(ev Event) (Status, error) {
	to, ok := CanTransition(r.Status, ev)
	if !ok {
		return "", &TransitionError{From: r.Status, Event: ev}
	}
	return to, nil
}

// Accept is the one exception to status-before-actor: a set driver_id means
// the ride was claimed, which a racing driver must see as ErrAlreadyClaimed.
func (r *Ride) Accept(driverID types.ID, now time.Time) error {
	if driverID == "" {
		return fmt.Errorf("%w: driver id is required", ErrBadRequest)
	}
	if r.DriverID != nil {
		return ErrAlreadyClaimed
	}
	to, err := r.check(EventAccept)
	if err != nil {
		return err
	}
	r.Status = to
	r.DriverID = &driverID
	r.AcceptedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel releases any assigned driver so that driver_id stays null outside
// accepted, started and completed.
func (r *Ride) Cancel(riderID types.ID, reason string, now time.Time) error {
	to, err := r.check(EventCancel)
	if err != nil {
		return err
	}
	if r.RiderID != riderID {
		return ErrNotRideOwner
	}
	r.Status = to
	r.DriverID = nil
	if reason != "" {
		r.CancellationReason = &reason
	}
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Ride) Start(driverID types.ID, now time.Time) error {
	to, err := r.check(EventStart)
	if err != nil {
		return err
	}
	if !r.AssignedTo(driverID) {
		return ErrNotAssigned
	}
	r.Status = to
	r.StartedAt = &now
	r.UpdatedAt = now
	return nil
}

// Complete records the final fare; a nil fare charges the estimate.
func (r *Ride) Complete(driverID types.ID, fare *types.Money, now time.Time) error {
	if fare != nil && fare.Amount < 0 {
		return fmt.Errorf("%w: final fare cannot be negative", ErrBadRequest)
	}
	to, err := r.check(EventComplete)
	if err != nil {
		return err
	}
	if !r.AssignedTo(driverID) {
		return ErrNotAssigned
	}
	final := r.EstimatedFare
	if fare != nil {
		final = *fare
		if final.Currency == "" {
			final.Currency = r.EstimatedFare.Currency
		}
	}
	r.Status = to
	r.FinalFare = &final
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Ride) Rate(riderID types.ID, rating int, review string, now time.Time) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrBadRequest)
	}
	if utf8.RuneCountInString(review) > MaxReviewLength {
		return fmt.Errorf("%w: review must be at most %d characters", ErrBadRequest, MaxReviewLength)
	}
	to, err := r.check(EventRate)
	if err != nil {
		return err
	}
	if r.RiderID != riderID {
		return ErrNotRideOwner
	}
	r.Status = to
	r.Rating = &rating
	if review != "" {
		r.Review = &review
	} else {
		r.Review = nil
	}
	r.UpdatedAt = now
	return nil
}

// Expire soft-cancels a pending ride whose TTL has passed.
func (r *Ride) Expire(now time.Time) error {
	to, err := r.check(EventExpire)
	if err != nil {
		return err
	}
	reason := ReasonExpired
	r.Status = to
	r.CancellationReason = &reason
	r.CancelledAt = &now
	r.UpdatedAt = now
	return nil
}

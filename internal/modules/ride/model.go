// README: Ride aggregate, status/event definitions and the transition table.
package ride

import (
	"time"

	"londa/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusAccepted, StatusStarted, StatusCompleted, StatusCancelled}

type Event string

const (
	// EventRequest only appears on the creation transition.
	EventRequest  Event = "rider_request"
	EventAccept   Event = "driver_accept"
	EventCancel   Event = "rider_cancel"
	EventStart    Event = "driver_start"
	EventComplete Event = "driver_complete"
	EventRate     Event = "rider_rate"
	EventExpire   Event = "expire"
)

// Events lists every event the state machine can be asked to apply.
var Events = []Event{EventAccept, EventCancel, EventStart, EventComplete, EventRate, EventExpire}

const (
	DefaultRideType = "standard"
	MaxPassengers   = 8
	MaxReviewLength = 500
	ReasonExpired   = "expired"
	RoleRider       = "rider"
	RoleDriver      = "driver"
	RoleSystem      = "system"
)

type Ride struct {
	ID                 types.ID
	RiderID            types.ID
	DriverID           *types.ID
	Pickup             types.Point
	Dropoff            types.Point
	Status             Status
	RideType           string
	PassengerCount     int
	EstimatedFare      types.Money
	FinalFare          *types.Money
	Rating             *int
	Review             *string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ExpiresAt          time.Time
	AcceptedAt         *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
}

// Involves reports whether id is the ride's rider or assigned driver.
func (r *Ride) Involves(id types.ID) bool {
	return r.RiderID == id || (r.DriverID != nil && *r.DriverID == id)
}

// AssignedTo reports whether driverID is the ride's assigned driver.
func (r *Ride) AssignedTo(driverID types.ID) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

func (r *Ride) expiryDue(now time.Time) bool {
	return r.Status == StatusPending && !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Transition is emitted for every committed state change, including creation.
type Transition struct {
	RideID    types.ID
	From      Status
	To        Status
	Event     Event
	ActorID   types.ID
	ActorRole string
	// PreviousDriverID is the driver assigned before the transition; set when
	// a cancellation released an accepted ride.
	PreviousDriverID *types.ID
	Ride             Ride
	At               time.Time
}

// AllowedTransitions represents the ride state flow as code.
var AllowedTransitions = map[Status]map[Event]Status{
	StatusPending: {
		EventAccept: StatusAccepted,
		EventCancel: StatusCancelled,
		EventExpire: StatusCancelled,
	},
	StatusAccepted: {
		EventCancel: StatusCancelled,
		EventStart:  StatusStarted,
	},
	StatusStarted: {
		EventComplete: StatusCompleted,
	},
	StatusCompleted: {
		EventRate: StatusCompleted,
	},
}

func CanTransition(from Status, ev Event) (Status, bool) {
	next, ok := AllowedTransitions[from][ev]
	return next, ok
}

type PageQuery struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize clamps the page to >= 1 and the limit to [1, MaxPageLimit].
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Page struct {
	Rides   []Ride
	Total   int
	Page    int
	Limit   int
	HasMore bool
}

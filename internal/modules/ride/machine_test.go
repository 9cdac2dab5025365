package ride

import (
	"errors"
	"strings"
	"testing"
	"time"

	"londa/internal/types"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// rideIn builds a ride that satisfies the driver/fare invariants for status.
func rideIn(status Status) *Ride {
	r := &Ride{
		ID:             "ride-1",
		RiderID:        "rider-1",
		Status:         status,
		RideType:       DefaultRideType,
		PassengerCount: 1,
		EstimatedFare:  types.NewMoney(13, "NAD"),
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
		ExpiresAt:      testNow.Add(10 * time.Minute),
	}
	switch status {
	case StatusAccepted, StatusStarted, StatusCompleted:
		r.DriverID = types.IDPtr("driver-1")
	}
	if status == StatusCompleted {
		fare := r.EstimatedFare
		r.FinalFare = &fare
	}
	return r
}

// applyEvent fires ev with actors that satisfy every guard, so only the
// status check can reject it.
func applyEvent(r *Ride, ev Event, now time.Time) error {
	switch ev {
	case EventAccept:
		return r.Accept("driver-2", now)
	case EventCancel:
		return r.Cancel("rider-1", "changed plans", now)
	case EventStart:
		return r.Start("driver-1", now)
	case EventComplete:
		return r.Complete("driver-1", nil, now)
	case EventRate:
		return r.Rate("rider-1", 5, "smooth ride", now)
	case EventExpire:
		return r.Expire(now)
	}
	panic("unknown event " + ev)
}

func TestStateMachine_EveryStatusEventPair(t *testing.T) {
	for _, status := range Statuses {
		for _, ev := range Events {
			t.Run(string(status)+"/"+string(ev), func(t *testing.T) {
				r := rideIn(status)
				before := *r
				err := applyEvent(r, ev, testNow.Add(time.Minute))

				want, legal := CanTransition(status, ev)
				if legal {
					if err != nil {
						t.Fatalf("expected legal transition, got %v", err)
					}
					if r.Status != want {
						t.Fatalf("status = %s, want %s", r.Status, want)
					}
					return
				}

				if err == nil {
					t.Fatalf("expected failure, ride moved to %s", r.Status)
				}
				if ev == EventAccept && before.DriverID != nil {
					if !errors.Is(err, ErrAlreadyClaimed) {
						t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
					}
				} else {
					var te *TransitionError
					if !errors.As(err, &te) || !errors.Is(err, ErrIllegalTransition) {
						t.Fatalf("expected IllegalTransition, got %v", err)
					}
					if te.From != status || te.Event != ev {
						t.Fatalf("error names %s/%s, want %s/%s", te.From, te.Event, status, ev)
					}
				}
				if r.Status != before.Status || r.UpdatedAt != before.UpdatedAt || (r.DriverID == nil) != (before.DriverID == nil) {
					t.Fatalf("failed transition mutated the ride: %+v", r)
				}
			})
		}
	}
}

func TestStateMachine_InvariantsHoldAfterEveryLegalTransition(t *testing.T) {
	for _, status := range Statuses {
		for _, ev := range Events {
			if _, ok := CanTransition(status, ev); !ok {
				continue
			}
			r := rideIn(status)
			if err := applyEvent(r, ev, testNow); err != nil {
				t.Fatalf("%s/%s: %v", status, ev, err)
			}
			hasDriver := r.Status == StatusAccepted || r.Status == StatusStarted || r.Status == StatusCompleted
			if (r.DriverID != nil) != hasDriver {
				t.Errorf("%s/%s: driver_id set=%v in status %s", status, ev, r.DriverID != nil, r.Status)
			}
			if (r.FinalFare != nil) != (r.Status == StatusCompleted) {
				t.Errorf("%s/%s: final_fare set=%v in status %s", status, ev, r.FinalFare != nil, r.Status)
			}
		}
	}
}

func TestRate_OnPendingNamesRequiredStatus(t *testing.T) {
	err := rideIn(StatusPending).Rate("rider-1", 4, "", testNow)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected IllegalTransition, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate requires completed") {
		t.Errorf("message %q should say rate requires completed", err)
	}
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"accept without driver id", func() error { return rideIn(StatusPending).Accept("", testNow) }, ErrBadRequest},
		{"start by other driver", func() error { return rideIn(StatusAccepted).Start("driver-9", testNow) }, ErrNotAssigned},
		{"complete by other driver", func() error { return rideIn(StatusStarted).Complete("driver-9", nil, testNow) }, ErrNotAssigned},
		{"cancel by other rider", func() error { return rideIn(StatusPending).Cancel("rider-9", "", testNow) }, ErrNotRideOwner},
		{"rate by other rider", func() error { return rideIn(StatusCompleted).Rate("rider-9", 5, "", testNow) }, ErrNotRideOwner},
		{"rating zero", func() error { return rideIn(StatusCompleted).Rate("rider-1", 0, "", testNow) }, ErrBadRequest},
		{"rating six", func() error { return rideIn(StatusCompleted).Rate("rider-1", 6, "", testNow) }, ErrBadRequest},
		{"review too long", func() error {
			return rideIn(StatusCompleted).Rate("rider-1", 5, strings.Repeat("é", MaxReviewLength+1), testNow)
		}, ErrBadRequest},
		{"negative fare", func() error {
			m := types.NewMoney(-1, "NAD")
			return rideIn(StatusStarted).Complete("driver-1", &m, testNow)
		}, ErrBadRequest},
		{"duplicate start", func() error { return rideIn(StatusStarted).Start("driver-1", testNow) }, ErrIllegalTransition},
		{"second complete", func() error { return rideIn(StatusCompleted).Complete("driver-1", nil, testNow) }, ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckOrder(t *testing.T) {
	negative := types.NewMoney(-1, "NAD")
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"bad rating before status", func() error { return rideIn(StatusPending).Rate("rider-1", 9, "", testNow) }, ErrBadRequest},
		{"bad fare before status", func() error { return rideIn(StatusAccepted).Complete("driver-1", &negative, testNow) }, ErrBadRequest},
		{"bad fare before actor", func() error { return rideIn(StatusStarted).Complete("driver-9", &negative, testNow) }, ErrBadRequest},
		{"claim before status", func() error { return rideIn(StatusCompleted).Accept("driver-2", testNow) }, ErrAlreadyClaimed},
		{"status before rider", func() error { return rideIn(StatusPending).Rate("rider-9", 5, "", testNow) }, ErrIllegalTransition},
		{"status before driver", func() error { return rideIn(StatusPending).Start("driver-9", testNow) }, ErrIllegalTransition},
		{"status before canceller", func() error { return rideIn(StatusCompleted).Cancel("rider-9", "", testNow) }, ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCancel_ReleasesDriver(t *testing.T) {
	r := rideIn(StatusAccepted)
	if err := r.Cancel("rider-1", "driver too far", testNow); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if r.DriverID != nil {
		t.Errorf("driver_id should be cleared, got %s", *r.DriverID)
	}
	if r.CancellationReason == nil || *r.CancellationReason != "driver too far" {
		t.Errorf("unexpected reason %v", r.CancellationReason)
	}
}

func TestComplete_FareDefaultsToEstimate(t *testing.T) {
	r := rideIn(StatusStarted)
	if err := r.Complete("driver-1", nil, testNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.FinalFare == nil || r.FinalFare.Amount != 1300 || r.FinalFare.Currency != "NAD" {
		t.Errorf("unexpected final fare %v", r.FinalFare)
	}

	r = rideIn(StatusStarted)
	fare := types.Money{Amount: 2150}
	if err := r.Complete("driver-1", &fare, testNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.FinalFare.Amount != 2150 || r.FinalFare.Currency != "NAD" {
		t.Errorf("unexpected final fare %v", r.FinalFare)
	}
}

package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

type memTokens struct {
	mu      sync.Mutex
	tokens  map[types.ID]string
	deleted []types.ID
}

func newMemTokens(pairs ...string) *memTokens {
	m := &memTokens{tokens: map[types.ID]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.tokens[types.ID(pairs[i])] = pairs[i+1]
	}
	return m
}

func (m *memTokens) Save(_ context.Context, userID types.ID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = token
	return nil
}

func (m *memTokens) Token(_ context.Context, userID types.ID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[userID]
	if !ok {
		return "", ErrNoToken
	}
	return t, nil
}

func (m *memTokens) Delete(_ context.Context, userID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	m.deleted = append(m.deleted, userID)
	return nil
}

type fakePush struct {
	mu   sync.Mutex
	sent map[string][]Message
	fail map[string]error
}

func newFakePush() *fakePush {
	return &fakePush{sent: map[string][]Message{}, fail: map[string]error{}}
}

func (p *fakePush) Send(_ context.Context, token string, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[token]; err != nil {
		return err
	}
	p.sent[token] = append(p.sent[token], msg)
	return nil
}

func (p *fakePush) count(token string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent[token])
}

func TestNotifyUsersIsolatesFailures(t *testing.T) {
	tokens := newMemTokens("d1", "tok1", "d2", "tok2", "d3", "tok3")
	push := newFakePush()
	push.fail["tok2"] = errors.New("boom")
	svc := NewService(tokens, push, 2)

	results := svc.NotifyUsers(context.Background(), []types.ID{"d1", "d2", "d3", "d4"}, Message{Kind: KindRideRequested})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("healthy recipients failed: %+v", results)
	}
	if results[1].Err == nil {
		t.Fatalf("expected d2 to fail")
	}
	if !errors.Is(results[3].Err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken for d4, got %v", results[3].Err)
	}
	if push.count("tok1") != 1 || push.count("tok3") != 1 {
		t.Fatalf("expected one push each for d1 and d3")
	}
}

func TestNotifyUserDropsUnregisteredToken(t *testing.T) {
	tokens := newMemTokens("r1", "stale")
	push := newFakePush()
	push.fail["stale"] = ErrUnregistered
	svc := NewService(tokens, push, 1)

	err := svc.NotifyUser(context.Background(), "r1", Message{Kind: KindRideStarted})
	if !errors.Is(err, ErrUnregistered) {
		t.Fatalf("expected ErrUnregistered, got %v", err)
	}
	if _, err := tokens.Token(context.Background(), "r1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected token to be deleted")
	}
}

func TestRegisterTokenValidates(t *testing.T) {
	svc := NewService(newMemTokens(), newFakePush(), 1)
	if err := svc.RegisterToken(context.Background(), "u1", ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if err := svc.RegisterToken(context.Background(), "u1", "tok"); err != nil {
		t.Fatalf("register: %v", err)
	}
}

type staticDrivers struct{}

func (staticDrivers) DisplayInfo(context.Context, types.ID) (string, string, error) {
	return "Ndapewa", "Toyota Corolla", nil
}

func TestRideObserverRecipients(t *testing.T) {
	driver := types.ID("d1")
	base := ride.Ride{
		ID:            "ride-1",
		RiderID:       "r1",
		DriverID:      &driver,
		EstimatedFare: types.NewMoney(13, "NAD"),
		Pickup:        types.Point{Lat: -22.57, Lng: 17.08, Name: "Maerua Mall"},
		Dropoff:       types.Point{Lat: -22.56, Lng: 17.07},
		CreatedAt:     time.Now(),
	}

	tests := []struct {
		name      string
		event     ride.Event
		prevDrv   *types.ID
		wantToken string
		wantKind  Kind
	}{
		{"accept goes to rider", ride.EventAccept, nil, "rider-tok", KindRideAccepted},
		{"start goes to rider", ride.EventStart, nil, "rider-tok", KindRideStarted},
		{"complete goes to rider", ride.EventComplete, nil, "rider-tok", KindRideCompleted},
		{"cancel goes to released driver", ride.EventCancel, &driver, "driver-tok", KindRideCancelled},
		{"expire goes to rider", ride.EventExpire, nil, "rider-tok", KindRideExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			push := newFakePush()
			obs := NewRideObserver(NewService(newMemTokens("r1", "rider-tok", "d1", "driver-tok"), push, 1), staticDrivers{})
			err := obs.OnTransition(context.Background(), ride.Transition{Event: tt.event, Ride: base, PreviousDriverID: tt.prevDrv})
			if err != nil {
				t.Fatalf("observer: %v", err)
			}
			msgs := push.sent[tt.wantToken]
			if len(msgs) != 1 || msgs[0].Kind != tt.wantKind {
				t.Fatalf("expected one %s to %s, got %+v", tt.wantKind, tt.wantToken, push.sent)
			}
		})
	}
}

func TestRideObserverSkipsPendingCancel(t *testing.T) {
	push := newFakePush()
	obs := NewRideObserver(NewService(newMemTokens("r1", "rider-tok"), push, 1), nil)
	if err := obs.OnTransition(context.Background(), ride.Transition{Event: ride.EventCancel, Ride: ride.Ride{RiderID: "r1"}}); err != nil {
		t.Fatalf("observer: %v", err)
	}
	if len(push.sent) != 0 {
		t.Fatalf("expected no pushes, got %+v", push.sent)
	}
}

func TestMessageCatalogue(t *testing.T) {
	final := types.NewMoney(42.5, "NAD")
	r := ride.Ride{ID: "x", FinalFare: &final, Pickup: types.Point{Name: "A"}, Dropoff: types.Point{Name: "B"}}
	if got := RideCompleted(r).Body; got != "Your ride has been completed. Fare: NAD 42.50" {
		t.Fatalf("unexpected completed body %q", got)
	}
	if got := RideRequested(r).Body; got != "Ride from A to B" {
		t.Fatalf("unexpected requested body %q", got)
	}
	if got := RideAccepted(r, "", "").Body; got != "Your driver has accepted your ride request" {
		t.Fatalf("unexpected accepted body %q", got)
	}
	msg := buildFCMMessage("tok", RideStarted(r))
	if msg.Android == nil || msg.Android.Priority != "high" || msg.Data["rideId"] != "x" {
		t.Fatalf("unexpected fcm message %+v", msg)
	}
}

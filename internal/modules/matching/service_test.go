package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"londa/internal/config"
	"londa/internal/maps"
	"londa/internal/metrics"
	"londa/internal/modules/location"
	"londa/internal/modules/notification"
	"londa/internal/modules/pricing"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

type fakeIndex struct {
	candidates []location.Candidate
	err        error
	lastRadius float64
	lastLimit  int
}

func (f *fakeIndex) Nearby(_ context.Context, _ types.Point, radiusKm float64, limit int) ([]location.Candidate, error) {
	f.lastRadius, f.lastLimit = radiusKm, limit
	return f.candidates, f.err
}

type downRoutes struct{}

func (downRoutes) Estimate(context.Context, types.Point, types.Point) (maps.RouteEstimate, error) {
	return maps.RouteEstimate{}, maps.ErrUnavailable
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[types.ID][]notification.Message
	fail map[types.ID]error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: map[types.ID][]notification.Message{}, fail: map[types.ID]error{}}
}

func (n *fakeNotifier) NotifyUsers(_ context.Context, ids []types.ID, msg notification.Message) []notification.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Result, len(ids))
	for i, id := range ids {
		out[i] = notification.Result{UserID: id, Err: n.fail[id]}
		if n.fail[id] == nil {
			n.sent[id] = append(n.sent[id], msg)
		}
	}
	return out
}

type memDispatch struct {
	mu       sync.Mutex
	notified map[types.ID][]types.ID
	declined map[types.ID]map[types.ID]bool
}

func newMemDispatch() *memDispatch {
	return &memDispatch{notified: map[types.ID][]types.ID{}, declined: map[types.ID]map[types.ID]bool{}}
}

func (m *memDispatch) RecordDispatch(_ context.Context, rideID types.ID, ids []types.ID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified[rideID] = append(m.notified[rideID], ids...)
	return nil
}

func (m *memDispatch) Notified(_ context.Context, rideID types.ID) ([]types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ID(nil), m.notified[rideID]...), nil
}

func (m *memDispatch) RecordDecline(_ context.Context, rideID, driverID types.ID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.declined[rideID] == nil {
		m.declined[rideID] = map[types.ID]bool{}
	}
	m.declined[rideID][driverID] = true
	return nil
}

func (m *memDispatch) Declined(_ context.Context, driverID types.ID, rideIDs []types.ID) (map[types.ID]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[types.ID]bool{}
	for _, id := range rideIDs {
		if m.declined[id][driverID] {
			out[id] = true
		}
	}
	return out, nil
}

type harness struct {
	svc      *Service
	rides    *ride.Service
	index    *fakeIndex
	notifier *fakeNotifier
	dispatch *memDispatch
}

func newHarness(t *testing.T, candidates ...location.Candidate) *harness {
	t.Helper()
	h := &harness{
		index:    &fakeIndex{candidates: candidates},
		notifier: newFakeNotifier(),
		dispatch: newMemDispatch(),
	}
	h.rides = ride.NewService(ride.NewMemoryStore(), config.RideConfig{TTL: 10 * time.Minute, AcceptAttempts: 3}, ride.WithSyncDelivery())
	quotes := pricing.NewService(downRoutes{}, nil, config.FareConfig{Default: 13, Currency: "NAD"})
	h.svc = NewService(h.rides, h.index, quotes, h.notifier, h.dispatch,
		config.MatchingConfig{RadiusKm: 5, NotifyLimit: 20}, WithSyncDispatch())
	h.rides.AddObserver(h.svc)
	return h
}

var (
	windhoekPickup  = types.Point{Lat: -22.5609, Lng: 17.0658, Name: "Zoo Park"}
	windhoekDropoff = types.Point{Lat: -22.5700, Lng: 17.0836, Name: "Maerua Mall"}
)

func TestRequestRideWithMappingDownUsesDefaultFare(t *testing.T) {
	h := newHarness(t)
	d, err := h.svc.RequestRide(context.Background(), RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff})
	if err != nil {
		t.Fatalf("request ride: %v", err)
	}
	if d.Ride.Status != ride.StatusPending {
		t.Fatalf("expected pending, got %s", d.Ride.Status)
	}
	if want := types.NewMoney(13, "NAD"); d.Ride.EstimatedFare != want {
		t.Fatalf("expected fare %s, got %s", want, d.Ride.EstimatedFare)
	}
	if !d.Quote.Fallback {
		t.Fatalf("expected fallback quote")
	}
	if d.Ride.PassengerCount != 1 || d.Ride.RideType != ride.DefaultRideType {
		t.Fatalf("unexpected defaults: %+v", d.Ride)
	}
}

func TestRequestRideZeroCandidatesStillPending(t *testing.T) {
	h := newHarness(t)
	d, err := h.svc.RequestRide(context.Background(), RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff})
	if err != nil {
		t.Fatalf("request ride: %v", err)
	}
	if len(d.Candidates) != 0 || len(h.notifier.sent) != 0 {
		t.Fatalf("expected no dispatch, got %+v", h.notifier.sent)
	}
	got, err := h.rides.Get(context.Background(), d.Ride.ID)
	if err != nil || got.Status != ride.StatusPending {
		t.Fatalf("expected stored pending ride, got %+v %v", got, err)
	}
}

func TestRequestRideNotifiesCandidates(t *testing.T) {
	h := newHarness(t,
		location.Candidate{DriverID: "d1", DistanceKm: 0.4},
		location.Candidate{DriverID: "d2", DistanceKm: 1.2},
	)
	h.notifier.fail["d2"] = errors.New("fcm down")

	d, err := h.svc.RequestRide(context.Background(), RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff, PassengerCount: 2})
	if err != nil {
		t.Fatalf("notification failures must not fail the request: %v", err)
	}
	if h.index.lastRadius != 5 || h.index.lastLimit != 20 {
		t.Fatalf("unexpected nearby args radius=%v limit=%d", h.index.lastRadius, h.index.lastLimit)
	}
	if msgs := h.notifier.sent["d1"]; len(msgs) != 1 || msgs[0].Kind != notification.KindRideRequested {
		t.Fatalf("expected d1 to get ride_requested, got %+v", msgs)
	}
	notified, _ := h.dispatch.Notified(context.Background(), d.Ride.ID)
	if len(notified) != 2 {
		t.Fatalf("expected both drivers recorded, got %v", notified)
	}
}

func TestRequestRideIndexFailureStillCreates(t *testing.T) {
	h := newHarness(t)
	h.index.err = errors.New("firestore unavailable")
	d, err := h.svc.RequestRide(context.Background(), RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff})
	if err != nil {
		t.Fatalf("request ride: %v", err)
	}
	if d.Ride.Status != ride.StatusPending {
		t.Fatalf("expected pending ride")
	}
}

func TestRequestRideValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		cmd  RequestCommand
		want error
	}{
		{"bad pickup", RequestCommand{RiderID: "r1", Pickup: types.Point{Lat: 91}, Dropoff: windhoekDropoff}, location.ErrInvalidCoordinate},
		{"bad dropoff", RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: types.Point{Lng: 181}}, location.ErrInvalidCoordinate},
		{"too many passengers", RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff, PassengerCount: 9}, ride.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.RequestRide(context.Background(), tt.cmd); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNearbyDriversRadius(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name   string
		radius float64
		want   error
		used   float64
	}{
		{"default", 0, nil, location.DefaultRadiusKm},
		{"explicit", 12, nil, 12},
		{"negative", -1, ErrBadRequest, 0},
		{"too large", 101, ErrBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.index.lastRadius = 0
			_, err := h.svc.NearbyDrivers(context.Background(), windhoekPickup, tt.radius, 10)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if h.index.lastRadius != tt.used {
				t.Fatalf("expected radius %v, got %v", tt.used, h.index.lastRadius)
			}
		})
	}
}

func nearbySamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.NearbyLatency.Write(&m); err != nil {
		t.Fatalf("read histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// Latency is observed by the index implementations; the service must not add a second sample.
func TestNearbyLatencyLeftToIndex(t *testing.T) {
	h := newHarness(t, location.Candidate{DriverID: "d1", DistanceKm: 0.4})
	before := nearbySamples(t)

	if _, err := h.svc.NearbyDrivers(context.Background(), windhoekPickup, 5, 10); err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if _, err := h.svc.RequestRide(context.Background(), RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff}); err != nil {
		t.Fatalf("request ride: %v", err)
	}
	if got := nearbySamples(t); got != before {
		t.Fatalf("service observed nearby latency %d times", got-before)
	}
}

func TestDeclineHidesRideFromDriverOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d, err := h.svc.RequestRide(ctx, RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff})
	if err != nil {
		t.Fatalf("request ride: %v", err)
	}
	if err := h.svc.Decline(ctx, DeclineCommand{RideID: d.Ride.ID, DriverID: "d1", Reason: "too far"}); err != nil {
		t.Fatalf("decline: %v", err)
	}

	mine, err := h.svc.AvailableRides(ctx, "d1", 0)
	if err != nil {
		t.Fatalf("available rides: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("declined ride still listed for d1")
	}
	theirs, _ := h.svc.AvailableRides(ctx, "d2", 0)
	if len(theirs) != 1 || theirs[0].ID != d.Ride.ID {
		t.Fatalf("expected ride visible to d2, got %+v", theirs)
	}
	if _, err := h.rides.Accept(ctx, ride.AcceptCommand{RideID: d.Ride.ID, DriverID: "d2"}); err != nil {
		t.Fatalf("accept after decline by another driver: %v", err)
	}
}

func TestDeclineRequiresPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d, _ := h.svc.RequestRide(ctx, RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff})
	if _, err := h.rides.Accept(ctx, ride.AcceptCommand{RideID: d.Ride.ID, DriverID: "d1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	err := h.svc.Decline(ctx, DeclineCommand{RideID: d.Ride.ID, DriverID: "d2"})
	if !errors.Is(err, ride.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if err := h.svc.Decline(ctx, DeclineCommand{RideID: "missing", DriverID: "d2"}); !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAvailableRidesLimit(t *testing.T) {
	h := newHarness(t)
	for _, limit := range []int{-1, 101} {
		if _, err := h.svc.AvailableRides(context.Background(), "d1", limit); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("limit %d: expected ErrBadRequest, got %v", limit, err)
		}
	}
}

func TestPendingCancelNotifiesDispatchedDrivers(t *testing.T) {
	h := newHarness(t, location.Candidate{DriverID: "d1"}, location.Candidate{DriverID: "d2"})
	ctx := context.Background()
	d, _ := h.svc.RequestRide(ctx, RequestCommand{RiderID: "r1", Pickup: windhoekPickup, Dropoff: windhoekDropoff})
	if _, err := h.rides.Cancel(ctx, ride.CancelCommand{RideID: d.Ride.ID, RiderID: "r1", Reason: "changed plans"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	for _, id := range []types.ID{"d1", "d2"} {
		msgs := h.notifier.sent[id]
		if len(msgs) != 2 || msgs[1].Kind != notification.KindRideCancelled {
			t.Fatalf("expected %s to get ride_cancelled, got %+v", id, msgs)
		}
	}
}

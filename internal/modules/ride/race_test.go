// README: Concurrency tests for ride acceptance (run with -race).
package ride

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"cloud.google.com/go/firestore"

	"londa/internal/config"
	"londa/internal/types"
)

func TestConcurrentAcceptSameRide(t *testing.T) {
	svc, _, _ := newTestService(t, NewMemoryStore())
	assertSingleWinner(t, svc, 16)
}

func TestConcurrentAcceptSameRide_Firestore(t *testing.T) {
	store := setupFirestoreStore(t)
	svc := NewService(store, config.RideConfig{AcceptAttempts: 25}, WithSyncDelivery())
	assertSingleWinner(t, svc, 8)
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, NewMemoryStore())
	r := createRide(t, svc, "rider-accept-cancel")

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Accept(ctx, AcceptCommand{RideID: r.ID, DriverID: "driver-1"})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Cancel(ctx, CancelCommand{RideID: r.ID, RiderID: "rider-accept-cancel"})
		errs <- err
	}()
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, err := svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// cancel always wins eventually: either it ran first, or it cancelled the accepted ride
	if got.Status != StatusCancelled || got.DriverID != nil {
		t.Fatalf("unexpected final ride: %+v", got)
	}
}

func assertSingleWinner(t *testing.T, svc *Service, drivers int) {
	t.Helper()
	ctx := context.Background()
	r := createRide(t, svc, "rider-race")

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, drivers)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			<-start
			_, err := svc.Accept(ctx, AcceptCommand{RideID: r.ID, DriverID: did})
			errs <- err
		}(types.ID(fmt.Sprintf("driver-%d", i)))
	}
	close(start)
	wg.Wait()
	close(errs)

	success, claimed := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrAlreadyClaimed):
			claimed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 || claimed != drivers-1 {
		t.Fatalf("expected 1 success and %d already-claimed, got %d and %d", drivers-1, success, claimed)
	}

	got, err := svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if got.Status != StatusAccepted || got.DriverID == nil {
		t.Fatalf("unexpected final ride: %+v", got)
	}
}

func setupFirestoreStore(t *testing.T) *FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping Firestore-backed race tests")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "londa-test")
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestoreStore(client)
}

// README: Transition observers (ledger, stream, push, live updates) run detached from the request.
package ride

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"londa/internal/types"
)

const observerTimeout = 15 * time.Second

// Observer reacts to committed transitions. Errors are logged, never
// returned to the caller whose request produced the transition.
type Observer interface {
	OnTransition(ctx context.Context, t Transition) error
}

// dispatcher keeps one FIFO per ride so a ride's transitions reach every
// observer in commit order, while different rides deliver concurrently.
type dispatcher struct {
	inline bool
	mu     sync.Mutex
	queues map[types.ID][]func()
	wg     sync.WaitGroup
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[types.ID][]func())}
}

func (d *dispatcher) enqueue(rideID types.ID, job func()) {
	if d.inline {
		job()
		return
	}
	d.wg.Add(1)
	d.mu.Lock()
	q, running := d.queues[rideID]
	d.queues[rideID] = append(q, job)
	d.mu.Unlock()
	if !running {
		go d.drain(rideID)
	}
}

func (d *dispatcher) drain(rideID types.ID) {
	for {
		d.mu.Lock()
		q := d.queues[rideID]
		if len(q) == 0 {
			delete(d.queues, rideID)
			d.mu.Unlock()
			return
		}
		job := q[0]
		d.queues[rideID] = q[1:]
		d.mu.Unlock()

		job()
		d.wg.Done()
	}
}

func (d *dispatcher) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish(ctx context.Context, t Transition) {
	if len(s.observers) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	s.dispatch.enqueue(t.RideID, func() {
		for _, o := range s.observers {
			ctx, cancel := context.WithTimeout(base, observerTimeout)
			if err := o.OnTransition(ctx, t); err != nil {
				slog.WarnContext(ctx, "ride observer failed",
					"ride_id", t.RideID, "event", t.Event, "err", err)
			}
			cancel()
		}
	})
}

// Drain blocks until every queued transition has reached its observers or
// ctx is done. Call after the HTTP server stops and before closing clients.
func (s *Service) Drain(ctx context.Context) error {
	return s.dispatch.wait(ctx)
}

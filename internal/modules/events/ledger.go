// README: Ride transition ledger backed by PostgreSQL (ride_state_events).
package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"londa/internal/modules/ride"
	"londa/internal/types"
)

type Ledger struct {
	db *pgxpool.Pool
}

func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

// OnTransition appends one row per committed transition.
func (l *Ledger) OnTransition(ctx context.Context, t ride.Transition) error {
	return l.Append(ctx, FromTransition(t))
}

func (l *Ledger) Append(ctx context.Context, rec Record) error {
	var driverID *string
	if rec.DriverID != nil {
		s := string(*rec.DriverID)
		driverID = &s
	}
	_, err := l.db.Exec(ctx, `
		INSERT INTO ride_state_events (
			ride_id, from_status, to_status, event,
			actor_id, actor_role, driver_id, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(rec.RideID), string(rec.From), string(rec.To), string(rec.Event),
		string(rec.ActorID), rec.ActorRole, driverID, rec.Reason, rec.At,
	)
	if err != nil {
		return fmt.Errorf("append ride event: %w", err)
	}
	return nil
}

// History returns a ride's transitions oldest first.
func (l *Ledger) History(ctx context.Context, rideID types.ID) ([]Record, error) {
	rows, err := l.db.Query(ctx, `
		SELECT ride_id, from_status, to_status, event,
		       actor_id, actor_role, driver_id, reason, created_at
		FROM ride_state_events
		WHERE ride_id = $1
		ORDER BY created_at, id`, string(rideID),
	)
	if err != nil {
		return nil, fmt.Errorf("query ride events: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var (
			rec      Record
			driverID *string
		)
		err := row.Scan(&rec.RideID, &rec.From, &rec.To, &rec.Event,
			&rec.ActorID, &rec.ActorRole, &driverID, &rec.Reason, &rec.At)
		if driverID != nil {
			rec.DriverID = types.IDPtr(types.ID(*driverID))
		}
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan ride events: %w", err)
	}
	return out, nil
}

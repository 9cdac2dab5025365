// README: Cash payment records for rides.
package payment

import (
	"time"

	"londa/internal/types"
)

const (
	MethodCash      = "cash"
	StatusCompleted = "completed"
)

type Payment struct {
	ID        types.ID    `json:"id"`
	RideID    types.ID    `json:"rideId,omitempty"`
	UserID    types.ID    `json:"userId"`
	Amount    types.Money `json:"amount"`
	Method    string      `json:"paymentMethod"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type ProcessCommand struct {
	RideID types.ID
	UserID types.ID
	// Amount is in major units; zero means the default fare.
	Amount float64
	Method string
}

type Page struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"hasMore"`
}

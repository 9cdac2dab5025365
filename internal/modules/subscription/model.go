// README: Driver and parent subscription plans, child profiles and subscription payments.
package subscription

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"londa/internal/types"
)

type Plan string

const (
	PlanDriver Plan = "driver"
	PlanParent Plan = "parent"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	// StatusNone is reported when an owner never subscribed.
	StatusNone Status = "none"
)

const (
	MethodCash = "cash"

	minChildAge = 5
	maxChildAge = 18
)

var (
	ErrNotFound   = errors.New("subscription not found")
	ErrConflict   = errors.New("active subscription already exists")
	ErrBadRequest = errors.New("bad request")
)

type Subscription struct {
	ID                      types.ID        `json:"id"`
	OwnerID                 types.ID        `json:"ownerId"`
	Plan                    Plan            `json:"plan"`
	Status                  Status          `json:"status"`
	Amount                  types.Money     `json:"amount"`
	PaymentMethod           string          `json:"paymentMethod"`
	StartDate               time.Time       `json:"startDate"`
	EndDate                 time.Time       `json:"endDate"`
	AutoRenew               bool            `json:"autoRenew"`
	NotificationPreferences map[string]bool `json:"notificationPreferences,omitempty"`
	CancellationReason      *string         `json:"cancellationReason,omitempty"`
	Children                []Child         `json:"childrenProfiles,omitempty"`
	CreatedAt               time.Time       `json:"createdAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

// expireIfDue moves an active subscription past its end date to expired.
func (s *Subscription) expireIfDue(now time.Time) bool {
	if s.Status == StatusActive && now.After(s.EndDate) {
		s.Status = StatusExpired
		s.UpdatedAt = now
		return true
	}
	return false
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Child struct {
	ID               types.ID         `json:"id"`
	UserID           types.ID         `json:"userId"`
	SubscriptionID   types.ID         `json:"subscriptionId"`
	Name             string           `json:"child_name"`
	Age              int              `json:"child_age"`
	SchoolName       string           `json:"school_name"`
	PickupAddress    string           `json:"pickup_address"`
	DropoffAddress   string           `json:"dropoff_address"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func (c Child) validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"child_name", c.Name, 100},
		{"school_name", c.SchoolName, 200},
		{"pickup_address", c.PickupAddress, 500},
		{"dropoff_address", c.DropoffAddress, 500},
		{"emergency_contact.name", c.EmergencyContact.Name, 100},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" || len(v) > f.max {
			return fmt.Errorf("%w: %s must be 1-%d characters", ErrBadRequest, f.name, f.max)
		}
	}
	if c.Age < minChildAge || c.Age > maxChildAge {
		return fmt.Errorf("%w: child age must be between %d and %d", ErrBadRequest, minChildAge, maxChildAge)
	}
	if !strings.HasPrefix(c.EmergencyContact.Phone, "+") {
		return fmt.Errorf("%w: emergency contact phone must be in E.164 format", ErrBadRequest)
	}
	return nil
}

type Payment struct {
	ID             types.ID    `json:"id"`
	DriverID       types.ID    `json:"driverId"`
	SubscriptionID types.ID    `json:"subscriptionId"`
	Amount         types.Money `json:"amount"`
	PaymentMethod  string      `json:"paymentMethod"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type PaymentPage struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"hasMore"`
}

type UpdateSettingsCommand struct {
	DriverID                types.ID
	AutoRenew               *bool
	PaymentMethod           *string
	NotificationPreferences map[string]bool
}

type SubscribeCommand struct {
	UserID        types.ID
	PaymentMethod string
	Children      []Child
}

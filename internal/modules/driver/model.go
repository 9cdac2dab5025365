// README: Driver profile, availability and last known location.
package driver

import (
	"time"

	"londa/internal/types"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusBusy    Status = "busy"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusBusy:
		return true
	}
	return false
}

type Driver struct {
	ID                types.ID     `json:"id"`
	PhoneNumber       string       `json:"phone_number"`
	Email             string       `json:"email,omitempty"`
	Name              string       `json:"name"`
	LicenseNumber     string       `json:"license_number"`
	VehicleModel      string       `json:"vehicle_model"`
	VehiclePlate      string       `json:"vehicle_plate"`
	VehicleColor      string       `json:"vehicle_color"`
	Status            Status       `json:"status"`
	Location          *types.Point `json:"location,omitempty"`
	Geohash           string       `json:"geohash,omitempty"`
	LocationUpdatedAt *time.Time   `json:"locationUpdatedAt,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Registered reports whether the driver completed account creation.
func (d Driver) Registered() bool {
	return d.Name != ""
}

type Profile struct {
	Name          string
	Email         string
	LicenseNumber string
	VehicleModel  string
	VehiclePlate  string
	VehicleColor  string
}

type CreateAccountCommand struct {
	DriverID types.ID
	Profile
}

type UpdateLocationCommand struct {
	DriverID types.ID
	Location types.Point
	Status   *Status
}

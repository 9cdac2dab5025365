// README: Rider profile stored in the users collection.
package user

import (
	"time"

	"londa/internal/types"
)

type Type string

const (
	TypeStudent Type = "student"
	TypeWorker  Type = "worker"
	TypeParent  Type = "parent"
)

func (t Type) Valid() bool {
	switch t {
	case TypeStudent, TypeWorker, TypeParent:
		return true
	}
	return false
}

type User struct {
	ID                types.ID     `json:"id"`
	PhoneNumber       string       `json:"phone_number"`
	Email             string       `json:"email,omitempty"`
	Name              string       `json:"name"`
	UserType          Type         `json:"userType,omitempty"`
	Location          *types.Point `json:"location,omitempty"`
	LocationUpdatedAt *time.Time   `json:"locationUpdatedAt,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Registered reports whether account creation finished (name and type both set).
func (u User) Registered() bool {
	return u.Name != "" && u.UserType != ""
}

type CreateAccountCommand struct {
	UserID   types.ID
	Name     string
	Email    string
	UserType Type
}

type UpdateProfileCommand struct {
	UserID types.ID
	Name   *string
	Email  *string
}

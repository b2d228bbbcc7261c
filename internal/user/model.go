package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is stored verbatim. SetRole accepts any string, so a stored role is
// not guaranteed to be one of the constants below.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// IsKnown reports whether r is one of the predefined roles
func (r Role) IsKnown() bool {
	switch r {
	case RoleEmployee, RoleHR, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PhotoURL    string    `json:"photoURL"`
	Role        Role      `json:"role"`
	Verified    bool      `json:"verified"`
	Designation string    `json:"designation"`
	BankAccount string    `json:"bankAccountNo"`
	Salary      float64   `json:"salary"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasRole reports whether the user holds any of roles
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

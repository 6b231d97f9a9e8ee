package models

import "time"

// UserRole identifies one of the three mutually exclusive portal roles.
// A role is fixed when the identity is created and never changes.
type UserRole string

const (
	RoleTeacher UserRole = "TEACHER"
	RoleOffice  UserRole = "OFFICE"
	RoleParent  UserRole = "PARENT"
)

// Valid reports whether the role is one of the known portal roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleTeacher, RoleOffice, RoleParent:
		return true
	}
	return false
}

// User represents an identity stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor is the authenticated identity performing an operation, as resolved
// from the access token. Services receive it instead of reading ambient
// request state.
type Actor struct {
	ID       string
	Role     UserRole
	FullName string
}

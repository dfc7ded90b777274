package model

// UserRole is asserted by the identity provider; users are not stored here.
type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

func (r UserRole) IsAdmin() bool {
	return r == Admin
}

package domain

import "time"

// Role is a coarse permission group held by a user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleTechnician Role = "TECHNICIAN"
	RoleUser       Role = "USER"
)

// User is any account that can act on tickets.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Roles        []Role
	CategoryID   *int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool      { return u.HasRole(RoleAdmin) }
func (u *User) IsSupervisor() bool { return u.HasRole(RoleSupervisor) }
func (u *User) IsTechnician() bool { return u.HasRole(RoleTechnician) }

// InCategory reports whether the user belongs to categoryID.
func (u *User) InCategory(categoryID int64) bool {
	return u != nil && u.CategoryID != nil && *u.CategoryID == categoryID
}

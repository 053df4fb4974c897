package models

import (
	"time"

	"github.com/lib/pq"
)

// Role is one capability tag a person may hold. A person may hold several.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleTeacher       Role = "teacher"
	RoleTranslator    Role = "translator"
	RoleMentor        Role = "mentor"
	RoleStudent       Role = "student"
)

// AllRoles lists every known role in display order.
var AllRoles = []Role{RoleAdministrator, RoleTeacher, RoleTranslator, RoleMentor, RoleStudent}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// RoleSet is the set of roles held by a person.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether at least one of roles is held.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles in AllRoles order.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// User is a person known to the system: staff, mentors and students alike.
type User struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// RoleSet returns the user's roles as a set, ignoring unknown tags.
func (u User) RoleSet() RoleSet {
	set := make(RoleSet, len(u.Roles))
	for _, raw := range u.Roles {
		if r := Role(raw); r.Valid() {
			set[r] = struct{}{}
		}
	}
	return set
}

// RolesToStrings converts roles into the storage representation.
func RolesToStrings(roles []Role) pq.StringArray {
	out := make(pq.StringArray, 0, len(roles))
	for _, r := range NewRoleSet(roles...).Slice() {
		out = append(out, string(r))
	}
	return out
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     Role
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

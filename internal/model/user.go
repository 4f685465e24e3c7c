package model

import (
	"fmt"
	"time"
)

// User represents an authentication user.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Role names.
const (
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
	RoleVisitor   = "visitor"
)

// RoleNames lists all valid roles in precedence order (highest first).
var RoleNames = []string{RoleAdmin, RoleVolunteer, RoleVisitor}

// Role is a catalog entry in the roles table.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserRoleAssignment pairs one user with their full role-name set.
type UserRoleAssignment struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// CurrentRole resolves the single displayed role from a possibly multi-valued
// role set by precedence: admin > volunteer > visitor. An empty or unknown
// set resolves to visitor.
func (a UserRoleAssignment) CurrentRole() string {
	return HighestRole(a.Roles)
}

// HighestRole returns the precedence winner among the given role names.
func HighestRole(roles []string) string {
	best := RoleVisitor
	bestLevel := 0
	for _, r := range roles {
		if l := roleLevel(r); l > bestLevel {
			best = r
			bestLevel = l
		}
	}
	return best
}

func roleLevel(role string) int {
	switch role {
	case RoleAdmin:
		return 3
	case RoleVolunteer:
		return 2
	case RoleVisitor:
		return 1
	default:
		return 0
	}
}

// ValidRole reports whether name is a known role.
func ValidRole(name string) bool {
	return roleLevel(name) > 0
}

// Capabilities is the derived capability set used to gate mutations and the
// admin surface. The zero value grants nothing, so any failure to resolve
// roles fails closed.
type Capabilities struct {
	CanManage bool `json:"can_manage"`
	IsAdmin   bool `json:"is_admin"`
}

// CapabilitiesFor derives the capability set from a role-name set.
func CapabilitiesFor(roles []string) Capabilities {
	var caps Capabilities
	for _, r := range roles {
		switch r {
		case RoleAdmin:
			caps.IsAdmin = true
			caps.CanManage = true
		case RoleVolunteer:
			caps.CanManage = true
		}
	}
	return caps
}

// ValidatePassword checks password requirements for new passwords.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

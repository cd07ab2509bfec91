package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleTrainer UserRole = "TRAINER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table. Account
// creation and login live outside this service; the engine only reads role
// membership, active status and display identity.
type User struct {
	ID         string         `db:"id" json:"id"`
	Email      string         `db:"email" json:"email"`
	FirstName  string         `db:"first_name" json:"first_name"`
	LastName   string         `db:"last_name" json:"last_name"`
	Roles      pq.StringArray `db:"roles" json:"roles"`
	Active     bool           `db:"active" json:"active"`
	Speciality *string        `db:"speciality" json:"speciality,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if UserRole(r) == role {
			return true
		}
	}
	return false
}

// FullName returns the display name used in notifications and enriched reads.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// JWTClaims are the token claims attached to authenticated requests.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

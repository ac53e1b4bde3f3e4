// Package domain contains identity models and the auth service contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of roles known to the system.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleHQUser     Role = "hquser"
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleHQUser, RoleAdmin, RoleSupervisor:
		return true
	default:
		return false
	}
}

// IsHQ reports whether the role has cross-school visibility.
func (r Role) IsHQ() bool {
	return r == RoleSuperadmin || r == RoleHQUser
}

// User is a backend login account. School admins carry their school id;
// supervisors are resolved to their route's schools at query time.
type User struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	Email        string        `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Name         string        `json:"name" gorm:"type:text;not null"`
	PasswordHash string        `json:"-" gorm:"type:text;not null"`
	Role         Role          `json:"role" gorm:"type:text;not null"`
	SchoolID     *snowflake.ID `json:"school_id,omitempty" gorm:"index"`
	SupervisorID *snowflake.ID `json:"supervisor_id,omitempty" gorm:"index"`
	Active       bool          `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string { return "users" }

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID       snowflake.ID
	Role         Role
	SchoolID     *snowflake.ID
	SupervisorID *snowflake.ID
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	ParseToken(token string) (Identity, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserInactive       = errors.New("user inactive")
)

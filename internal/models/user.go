package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin     = "admin"
	RoleCounselor = "counselor"
	RoleStudent   = "student"
	RoleAnonymous = "anonymous"
)

type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal attached to a connection or request.
// An anonymous identity has UserID 0 and RoleAnonymous.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

func AnonymousIdentity() Identity {
	return Identity{Role: RoleAnonymous}
}

func (i Identity) IsAnonymous() bool {
	return i.Role == RoleAnonymous || i.UserID == 0
}

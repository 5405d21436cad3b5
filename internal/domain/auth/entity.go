package auth

import "time"

// Role enum
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User record as stored by the identity provider
type User struct {
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	FailedAttempts int       `json:"-"`
	LockedUntil    time.Time `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session binds an opaque bearer credential to a username and role.
// Several valid sessions may exist per user; credentials are unique.
type Session struct {
	Credential string    `json:"-"`
	Username   string    `json:"username"`
	Role       Role      `json:"role"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Identity is the resolved caller of a protected operation.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CanAccess reports whether the identity may read or mutate a job owned
// by the given username.
func (i Identity) CanAccess(owner string) bool {
	return i.Role == RoleAdmin || i.Username == owner
}

package user

import (
	"errors"
	"time"
)

// User is an admin dashboard account. Registrants never get accounts; the
// only role in use is "admin".
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const RoleAdmin = "admin"

var ErrNotFound = errors.New("user not found")

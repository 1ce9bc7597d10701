package domain

import "time"

// DefaultRole is assigned to every new account.
const DefaultRole = "user"

// User is an account profile.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// ProfileUpdate is a partial profile change.
type ProfileUpdate struct {
	Name *string `json:"name,omitempty"`
}

package domain

import (
	"fmt"
	"time"
)

// User represents a member who can rent movies
type User struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	Phone         string    `json:"phone" db:"phone"`
	ActiveRentals int       `json:"activeRentals" db:"active_rentals"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks the record shape read from a store.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("user: invalid id %d", u.ID)
	}
	if u.ActiveRentals < 0 {
		return fmt.Errorf("user %d: negative active rental count", u.ID)
	}
	return nil
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
}

type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
}

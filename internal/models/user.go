package models

import "time"

// User is the minimal account record the login flow needs. User storage
// proper lives in the hosted backend; this mirror exists so the security
// core can be exercised end to end.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

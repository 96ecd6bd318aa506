package model

import "time"

// User is a parent account. Children do not log in; they are represented
// by Child rows and act through a parent's session on a shared device.
type User struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

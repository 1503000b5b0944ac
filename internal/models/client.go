package models

import "time"

// Gender values accepted for a client.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Client is the stored form of a client. Name and DateOfBirth hold
// ciphertext whenever the value comes from, or is headed to, a store.
type Client struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	DateOfBirth string    `db:"date_of_birth"`
	Gender      string    `db:"gender"`
	CreatedAt   time.Time `db:"created_at"`
}

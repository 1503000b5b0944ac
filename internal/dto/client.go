package dto

import (
	"time"

	"github.com/BeygonK/Health-Information-System/internal/models"
)

// RegisterClientRequest is the body of POST /clients.
type RegisterClientRequest struct {
	Name        *string `json:"name" validate:"required,nonempty"`
	DateOfBirth *string `json:"date_of_birth" validate:"required,isodate"`
	Gender      *string `json:"gender" validate:"required,oneof=Male Female Other"`
}

// EnrollRequest is the body of POST /clients/{client_id}/enroll.
type EnrollRequest struct {
	ProgramID *string `json:"program_id" validate:"required"`
}

// ClientResponse is returned after registration.
type ClientResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth string    `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClientSummary is one search hit.
type ClientSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

// ClientProfile is the full decrypted view of a client. It is also the value
// stored in the profile cache.
type ClientProfile struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	DateOfBirth      string                  `json:"date_of_birth"`
	Gender           string                  `json:"gender"`
	EnrolledPrograms []models.ProgramSummary `json:"enrolled_programs"`
	CreatedAt        time.Time               `json:"created_at"`
}

// EnrollResponse is returned by the enroll endpoint.
type EnrollResponse struct {
	Message          string   `json:"message"`
	EnrolledPrograms []string `json:"enrolled_programs"`
}

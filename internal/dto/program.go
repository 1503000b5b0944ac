package dto

import (
	"time"

	"github.com/BeygonK/Health-Information-System/internal/models"
)

// CreateProgramRequest is the body of POST /programs. Description must be
// present but may be empty.
type CreateProgramRequest struct {
	Name        *string `json:"name" validate:"required,nonempty"`
	Description *string `json:"description" validate:"required"`
}

// ProgramResponse is the public view of a program.
type ProgramResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProgramResponse maps the stored program to its response shape.
func NewProgramResponse(p *models.Program) ProgramResponse {
	return ProgramResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.UTC(),
	}
}

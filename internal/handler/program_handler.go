package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/BeygonK/Health-Information-System/internal/dto"
	"github.com/BeygonK/Health-Information-System/internal/service"
	"github.com/BeygonK/Health-Information-System/internal/validation"
	"github.com/BeygonK/Health-Information-System/pkg/response"
)

// ProgramHandler exposes program endpoints.
type ProgramHandler struct {
	programs  *service.ProgramService
	validator *validation.Validator
}

// NewProgramHandler constructs ProgramHandler.
func NewProgramHandler(programs *service.ProgramService, validator *validation.Validator) *ProgramHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &ProgramHandler{programs: programs, validator: validator}
}

// Create handles POST /programs.
func (h *ProgramHandler) Create(c *gin.Context) {
	var req dto.CreateProgramRequest
	if err := h.validator.DecodeJSON(c.Request.Body, &req); err != nil {
		response.Error(c, err)
		return
	}
	program, err := h.programs.CreateProgram(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// List handles GET /programs.
func (h *ProgramHandler) List(c *gin.Context) {
	programs, err := h.programs.ListPrograms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, programs)
}

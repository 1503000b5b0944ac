package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/BeygonK/Health-Information-System/internal/dto"
	"github.com/BeygonK/Health-Information-System/internal/models"
	"github.com/BeygonK/Health-Information-System/internal/validation"
	appErrors "github.com/BeygonK/Health-Information-System/pkg/errors"
)

// ProgramStore persists programs.
type ProgramStore interface {
	Create(ctx context.Context, program *models.Program) error
	List(ctx context.Context) ([]models.Program, error)
}

// ProgramService manages the program registry.
type ProgramService struct {
	repo      ProgramStore
	validator *validation.Validator
	logger    *zap.Logger
}

// NewProgramService constructs ProgramService.
func NewProgramService(repo ProgramStore, validate *validation.Validator, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, validator: validate, logger: logger}
}

// CreateProgram validates and stores a new program. Names are not unique.
func (s *ProgramService) CreateProgram(ctx context.Context, req dto.CreateProgramRequest) (*dto.ProgramResponse, error) {
	if err := s.validator.Struct(req, "invalid program payload"); err != nil {
		return nil, err
	}
	program := &models.Program{Name: *req.Name, Description: *req.Description}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	s.logger.Info("program created", zap.String("program_id", program.ID))
	resp := dto.NewProgramResponse(program)
	return &resp, nil
}

// ListPrograms returns every program, oldest first.
func (s *ProgramService) ListPrograms(ctx context.Context) ([]dto.ProgramResponse, error) {
	programs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	resp := make([]dto.ProgramResponse, 0, len(programs))
	for i := range programs {
		resp = append(resp, dto.NewProgramResponse(&programs[i]))
	}
	return resp, nil
}

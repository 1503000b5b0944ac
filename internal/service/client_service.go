package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BeygonK/Health-Information-System/internal/dto"
	"github.com/BeygonK/Health-Information-System/internal/models"
	"github.com/BeygonK/Health-Information-System/internal/repository"
	"github.com/BeygonK/Health-Information-System/internal/validation"
	appErrors "github.com/BeygonK/Health-Information-System/pkg/errors"
	"github.com/BeygonK/Health-Information-System/pkg/fieldcrypt"
	"github.com/BeygonK/Health-Information-System/pkg/jobs"
)

const profileCacheKeyPrefix = "client_profile:"

// ClientStore persists client records as given; it never sees plaintext
// sensitive fields.
type ClientStore interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
}

// EnrollmentStore adds and lists client/program memberships.
type EnrollmentStore interface {
	Enroll(ctx context.Context, clientID, programID string) (*models.EnrollmentResult, error)
	ListPrograms(ctx context.Context, clientID string) ([]models.ProgramSummary, error)
}

// FieldCipher seals and opens individual sensitive field values.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// ClientServiceConfig groups ClientService collaborators.
type ClientServiceConfig struct {
	Clients     ClientStore
	Enrollments EnrollmentStore
	Cipher      FieldCipher
	Cache       *CacheService
	SearchPool  *jobs.Pool
	Validator   *validation.Validator
	Metrics     *MetricsService
	ProfileTTL  time.Duration
	Logger      *zap.Logger
}

// ClientService registers clients, enrolls them into programs and serves
// the decrypted views. Name and date of birth are encrypted before they
// reach a store and decrypted on every read.
type ClientService struct {
	clients     ClientStore
	enrollments EnrollmentStore
	cipher      FieldCipher
	cache       *CacheService
	pool        *jobs.Pool
	validator   *validation.Validator
	metrics     *MetricsService
	profileTTL  time.Duration
	logger      *zap.Logger
}

// NewClientService constructs ClientService.
func NewClientService(cfg ClientServiceConfig) *ClientService {
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = 60 * time.Second
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCacheService(nil, cfg.Metrics, cfg.ProfileTTL, cfg.Logger, false)
	}
	return &ClientService{
		clients:     cfg.Clients,
		enrollments: cfg.Enrollments,
		cipher:      cfg.Cipher,
		cache:       cfg.Cache,
		pool:        cfg.SearchPool,
		validator:   cfg.Validator,
		metrics:     cfg.Metrics,
		profileTTL:  cfg.ProfileTTL,
		logger:      cfg.Logger,
	}
}

// RegisterClient validates, encrypts and stores a new client and returns the
// plaintext view.
func (s *ClientService) RegisterClient(ctx context.Context, req dto.RegisterClientRequest) (*dto.ClientResponse, error) {
	if err := s.validator.Struct(req, "invalid client payload"); err != nil {
		return nil, err
	}

	name, err := s.cipher.Encrypt(*req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to protect client record")
	}
	dob, err := s.cipher.Encrypt(*req.DateOfBirth)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to protect client record")
	}

	client := &models.Client{Name: name, DateOfBirth: dob, Gender: *req.Gender}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register client")
	}
	s.logger.Info("client registered", zap.String("client_id", client.ID))

	return &dto.ClientResponse{
		ID:          client.ID,
		Name:        *req.Name,
		DateOfBirth: *req.DateOfBirth,
		Gender:      client.Gender,
		CreatedAt:   client.CreatedAt.UTC(),
	}, nil
}

// Enroll adds the client to a program. Repeating an existing enrollment is
// a successful no-op returning the same membership list.
func (s *ClientService) Enroll(ctx context.Context, clientID string, req dto.EnrollRequest) (*dto.EnrollResponse, error) {
	if err := s.validator.Struct(req, "invalid enrollment payload"); err != nil {
		return nil, err
	}

	result, err := s.enrollments.Enroll(ctx, clientID, *req.ProgramID)
	if err != nil {
		return nil, notFoundOr(err, "failed to enroll client")
	}
	s.logger.Info("client enrolled",
		zap.String("client_id", clientID),
		zap.String("program_id", result.Program.ID),
		zap.Bool("created", result.Created),
	)

	return &dto.EnrollResponse{
		Message:          fmt.Sprintf("Client enrolled in %s", result.Program.Name),
		EnrolledPrograms: result.EnrolledPrograms,
	}, nil
}

// SearchClients returns clients whose decrypted name contains name, ignoring
// case. An empty name matches everyone. The scan runs on the search pool
// and is awaited once; a partial result is never returned.
func (s *ClientService) SearchClients(ctx context.Context, name string) ([]dto.ClientSummary, error) {
	needle := strings.ToLower(name)
	future := jobs.Submit(ctx, s.pool, func(ctx context.Context) ([]dto.ClientSummary, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveSearch(time.Since(start)) }()
		return s.scanClients(ctx, needle)
	})

	matches, err := future.Await(ctx)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrPoolStopped):
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "search is unavailable")
		case errors.Is(err, context.Canceled):
			return nil, appErrors.Wrap(err, appErrors.ErrCanceled.Code, appErrors.ErrCanceled.Status, "search canceled")
		case errors.Is(err, context.DeadlineExceeded):
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "search timed out")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search clients")
	}
	return matches, nil
}

func (s *ClientService) scanClients(ctx context.Context, needle string) ([]dto.ClientSummary, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]dto.ClientSummary, 0)
	for i := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &clients[i]
		name, err := s.open(c.ID, "name", c.Name)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		dob, err := s.open(c.ID, "date_of_birth", c.DateOfBirth)
		if err != nil {
			return nil, err
		}
		matches = append(matches, dto.ClientSummary{ID: c.ID, Name: name, DateOfBirth: dob, Gender: c.Gender})
	}
	return matches, nil
}

// GetClientProfile returns the decrypted client with its programs. Results
// are cached for the profile TTL and are not refreshed by later enrollments,
// so a profile can lag behind for up to one TTL. bypass forces a fresh read
// which is then written back to the cache.
func (s *ClientService) GetClientProfile(ctx context.Context, clientID string, bypass bool) (*dto.ClientProfile, CacheStatus, error) {
	var profile dto.ClientProfile
	status, err := s.cache.GetOrCompute(ctx, profileCacheKeyPrefix+clientID, s.profileTTL, bypass, &profile, func(ctx context.Context) error {
		loaded, err := s.loadProfile(ctx, clientID)
		if err != nil {
			return err
		}
		profile = *loaded
		return nil
	})
	if err != nil {
		return nil, status, err
	}
	return &profile, status, nil
}

func (s *ClientService) loadProfile(ctx context.Context, clientID string) (*dto.ClientProfile, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, notFoundOr(err, "failed to load client")
	}
	name, err := s.open(client.ID, "name", client.Name)
	if err != nil {
		return nil, err
	}
	dob, err := s.open(client.ID, "date_of_birth", client.DateOfBirth)
	if err != nil {
		return nil, err
	}
	programs, err := s.enrollments.ListPrograms(ctx, client.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled programs")
	}
	return &dto.ClientProfile{
		ID:               client.ID,
		Name:             name,
		DateOfBirth:      dob,
		Gender:           client.Gender,
		EnrolledPrograms: programs,
		CreatedAt:        client.CreatedAt.UTC(),
	}, nil
}

// open decrypts one stored field. A failure means the record or key is
// corrupt, so it is logged as an integrity fault without the ciphertext.
func (s *ClientService) open(clientID, field, ciphertext string) (string, error) {
	plaintext, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		s.logger.Error("stored client field failed to decrypt",
			zap.String("client_id", clientID),
			zap.String("field", field),
			zap.Bool("ciphertext_error", errors.Is(err, fieldcrypt.ErrCiphertext)),
		)
		return "", appErrors.Wrap(err, appErrors.ErrCrypto.Code, appErrors.ErrCrypto.Status, appErrors.ErrCrypto.Message)
	}
	return plaintext, nil
}

func notFoundOr(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrClientNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "client not found")
	case errors.Is(err, repository.ErrProgramNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "program not found")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

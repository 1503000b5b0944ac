package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BeygonK/Health-Information-System/internal/models"
)

// MemoryStore keeps programs, clients and enrollments in process memory. It
// satisfies the same contracts as the Postgres repositories and is meant for
// tests and single-process development.
type MemoryStore struct {
	mu          sync.RWMutex
	programs    map[string]models.Program
	clients     map[string]models.Client
	clientOrder []string
	// enrollments holds program IDs per client in enrollment order.
	enrollments map[string][]string
	now         func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		programs:    make(map[string]models.Program),
		clients:     make(map[string]models.Client),
		enrollments: make(map[string][]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Programs returns a view of the store scoped to program operations.
func (s *MemoryStore) Programs() *MemoryProgramStore { return &MemoryProgramStore{s} }

// Clients returns a view of the store scoped to client operations.
func (s *MemoryStore) Clients() *MemoryClientStore { return &MemoryClientStore{s} }

// Enrollments returns a view of the store scoped to enrollment operations.
func (s *MemoryStore) Enrollments() *MemoryEnrollmentStore { return &MemoryEnrollmentStore{s} }

// PingContext always succeeds.
func (s *MemoryStore) PingContext(context.Context) error { return nil }

// EnrollmentCount reports how many rows exist for the pair.
func (s *MemoryStore) EnrollmentCount(clientID, programID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.enrollments[clientID] {
		if id == programID {
			n++
		}
	}
	return n
}

// RawClient returns the stored, still-encrypted record.
func (s *MemoryStore) RawClient(id string) (models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

// MemoryProgramStore implements program persistence on a MemoryStore.
type MemoryProgramStore struct{ s *MemoryStore }

// Create stores a program, assigning an ID and creation time when unset.
func (p *MemoryProgramStore) Create(_ context.Context, program *models.Program) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	if program.CreatedAt.IsZero() {
		program.CreatedAt = p.s.now()
	}
	p.s.programs[program.ID] = *program
	return nil
}

// FindByID returns ErrProgramNotFound for unknown IDs.
func (p *MemoryProgramStore) FindByID(_ context.Context, id string) (*models.Program, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	program, ok := p.s.programs[id]
	if !ok {
		return nil, ErrProgramNotFound
	}
	return &program, nil
}

// List returns programs ordered by creation time.
func (p *MemoryProgramStore) List(_ context.Context) ([]models.Program, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	programs := make([]models.Program, 0, len(p.s.programs))
	for _, program := range p.s.programs {
		programs = append(programs, program)
	}
	sort.Slice(programs, func(i, j int) bool {
		if programs[i].CreatedAt.Equal(programs[j].CreatedAt) {
			return programs[i].ID < programs[j].ID
		}
		return programs[i].CreatedAt.Before(programs[j].CreatedAt)
	})
	return programs, nil
}

// MemoryClientStore implements client persistence on a MemoryStore.
type MemoryClientStore struct{ s *MemoryStore }

// Create stores an already-encrypted client record.
func (c *MemoryClientStore) Create(_ context.Context, client *models.Client) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = c.s.now()
	}
	if _, exists := c.s.clients[client.ID]; !exists {
		c.s.clientOrder = append(c.s.clientOrder, client.ID)
	}
	c.s.clients[client.ID] = *client
	return nil
}

// FindByID returns ErrClientNotFound for unknown IDs.
func (c *MemoryClientStore) FindByID(_ context.Context, id string) (*models.Client, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	client, ok := c.s.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return &client, nil
}

// List returns every client in registration order.
func (c *MemoryClientStore) List(_ context.Context) ([]models.Client, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	clients := make([]models.Client, 0, len(c.s.clientOrder))
	for _, id := range c.s.clientOrder {
		clients = append(clients, c.s.clients[id])
	}
	return clients, nil
}

// MemoryEnrollmentStore implements enrollment persistence on a MemoryStore.
type MemoryEnrollmentStore struct{ s *MemoryStore }

// Enroll holds the store's write lock across the existence checks and the
// insert, which gives the same atomicity as the Postgres row lock.
func (e *MemoryEnrollmentStore) Enroll(_ context.Context, clientID, programID string) (*models.EnrollmentResult, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if _, ok := e.s.clients[clientID]; !ok {
		return nil, ErrClientNotFound
	}
	program, ok := e.s.programs[programID]
	if !ok {
		return nil, ErrProgramNotFound
	}

	created := true
	for _, id := range e.s.enrollments[clientID] {
		if id == programID {
			created = false
			break
		}
	}
	if created {
		e.s.enrollments[clientID] = append(e.s.enrollments[clientID], programID)
	}

	ids := e.s.enrollments[clientID]
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, e.s.programs[id].Name)
	}
	return &models.EnrollmentResult{Program: program, Created: created, EnrolledPrograms: names}, nil
}

// ListPrograms returns the client's programs in enrollment order.
func (e *MemoryEnrollmentStore) ListPrograms(_ context.Context, clientID string) ([]models.ProgramSummary, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	ids := e.s.enrollments[clientID]
	programs := make([]models.ProgramSummary, 0, len(ids))
	for _, id := range ids {
		p := e.s.programs[id]
		programs = append(programs, models.ProgramSummary{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return programs, nil
}

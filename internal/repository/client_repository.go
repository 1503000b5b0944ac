package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/BeygonK/Health-Information-System/internal/models"
)

// ClientRepository manages persistence for client records. It stores
// whatever it is given; encrypting sensitive fields is the caller's job.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs a ClientRepository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a new client record.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO clients (id, name, date_of_birth, gender, created_at)
        VALUES (:id, :name, :date_of_birth, :gender, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// FindByID fetches a client by ID.
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*models.Client, error) {
	const query = `SELECT id, name, date_of_birth, gender, created_at FROM clients WHERE id = $1`
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &client, nil
}

// List returns every client in registration order. Names are ciphertext so
// filtering cannot be pushed into SQL.
func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	const query = `SELECT id, name, date_of_birth, gender, created_at FROM clients ORDER BY created_at, id`
	clients := []models.Client{}
	if err := r.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

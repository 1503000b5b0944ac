package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BeygonK/Health-Information-System/internal/models"
)

// EnrollmentRepository handles persistence of client/program enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll adds programID to clientID's memberships unless already present.
// The client row is locked for the duration so concurrent enrolls for the
// same client serialise and all observe a consistent membership list.
func (r *EnrollmentRepository) Enroll(ctx context.Context, clientID, programID string) (result *models.EnrollmentResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	const lockClient = `SELECT id FROM clients WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &lockedID, lockClient, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("lock client: %w", err)
	}

	var program models.Program
	const findProgram = `SELECT id, name, description, created_at FROM programs WHERE id = $1`
	if err = tx.GetContext(ctx, &program, findProgram, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("find program: %w", err)
	}

	const insert = `INSERT INTO enrollments (client_id, program_id, enrolled_at) VALUES ($1, $2, $3)
        ON CONFLICT (client_id, program_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insert, clientID, programID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("enrollment rows affected: %w", err)
	}

	names := []string{}
	const listNames = `SELECT p.name FROM enrollments e JOIN programs p ON p.id = e.program_id
        WHERE e.client_id = $1 ORDER BY e.seq`
	if err = tx.SelectContext(ctx, &names, listNames, clientID); err != nil {
		return nil, fmt.Errorf("list enrolled program names: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return &models.EnrollmentResult{Program: program, Created: inserted == 1, EnrolledPrograms: names}, nil
}

// ListPrograms returns the programs a client is enrolled in, in enrollment
// order.
func (r *EnrollmentRepository) ListPrograms(ctx context.Context, clientID string) ([]models.ProgramSummary, error) {
	const query = `SELECT p.id, p.name, p.description FROM enrollments e JOIN programs p ON p.id = e.program_id
        WHERE e.client_id = $1 ORDER BY e.seq`
	programs := []models.ProgramSummary{}
	if err := r.db.SelectContext(ctx, &programs, query, clientID); err != nil {
		return nil, fmt.Errorf("list client programs: %w", err)
	}
	return programs, nil
}

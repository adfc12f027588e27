package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ccrm-api/internal/models"
)

const mirrorSchema = `CREATE TABLE IF NOT EXISTS ccrm_students (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    registration_number TEXT NOT NULL UNIQUE,
    year INT NOT NULL,
    department TEXT NOT NULL,
    active BOOLEAN NOT NULL,
    gpa NUMERIC(4,2) NOT NULL,
    enrolled_credits INT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    synced_at TIMESTAMP NOT NULL
)`

// StudentMirrorRepository writes roster snapshots to PostgreSQL for reporting tools.
type StudentMirrorRepository struct {
	db *sqlx.DB
}

// NewStudentMirrorRepository constructs the repository.
func NewStudentMirrorRepository(db *sqlx.DB) *StudentMirrorRepository {
	return &StudentMirrorRepository{db: db}
}

// EnsureSchema creates the mirror table if missing.
func (r *StudentMirrorRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, mirrorSchema); err != nil {
		return fmt.Errorf("create mirror schema: %w", err)
	}
	return nil
}

// ReplaceAll swaps the mirrored roster for rows in one transaction.
func (r *StudentMirrorRepository) ReplaceAll(ctx context.Context, rows []models.MirrorStudent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror sync: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM ccrm_students"); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}

	const insert = `INSERT INTO ccrm_students (id, name, email, registration_number, year, department, active, gpa, enrolled_credits, created_at, synced_at)
        VALUES (:id, :name, :email, :registration_number, :year, :department, :active, :gpa, :enrolled_credits, :created_at, :synced_at)`
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert mirror row %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror sync: %w", err)
	}
	return nil
}

// List reads mirrored rows ordered by id.
func (r *StudentMirrorRepository) List(ctx context.Context, filter models.MirrorFilter) ([]models.MirrorStudent, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Department != "" {
		args = append(args, strings.ToLower(filter.Department))
		conditions = append(conditions, fmt.Sprintf("LOWER(department) = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT id, name, email, registration_number, year, department, active, gpa, enrolled_credits, created_at, synced_at
        FROM ccrm_students WHERE %s ORDER BY id`, strings.Join(conditions, " AND "))

	rows := []models.MirrorStudent{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list mirror: %w", err)
	}
	return rows, nil
}

package projects

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/database"
)

// ErrNotFound means no project matches the lookup within the tenant.
var ErrNotFound = errors.New("project not found")

const projectColumns = `id, company_id, name, COALESCE(description,''), deleted_at, created_at, updated_at`

// Repository handles project persistence. Every query is scoped by company so
// a project is only ever visible inside its own tenant.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a projects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a project.
func (r *Repository) Create(ctx context.Context, companyID uuid.UUID, name, description string) (*models.Project, error) {
	const q = `INSERT INTO projects (company_id, name, description)
		VALUES ($1, $2, NULLIF($3,''))
		RETURNING ` + projectColumns
	return scanProject(r.pool.QueryRow(ctx, q, companyID, name, description))
}

// Get returns a project by ID within the company.
func (r *Repository) Get(ctx context.Context, companyID, id uuid.UUID) (*models.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`
	p, err := scanProject(r.pool.QueryRow(ctx, q, id, companyID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns the company's projects, newest first.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]models.Project, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	const countQ = `SELECT COUNT(*) FROM projects WHERE company_id = $1 AND deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, countQ, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + projectColumns + ` FROM projects
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// UpdateParams holds the allow-listed updatable project fields.
type UpdateParams struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Update applies the non-nil fields of p.
func (r *Repository) Update(ctx context.Context, companyID, id uuid.UUID, p UpdateParams) (*models.Project, error) {
	const q = `UPDATE projects SET
		name = COALESCE($3, name),
		description = COALESCE($4, description),
		updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		RETURNING ` + projectColumns
	proj, err := scanProject(r.pool.QueryRow(ctx, q, id, companyID, p.Name, p.Description))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return proj, nil
}

// SoftDelete marks a project deleted; it disappears from all default reads.
func (r *Repository) SoftDelete(ctx context.Context, companyID, id uuid.UUID) error {
	const q = `UPDATE projects SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

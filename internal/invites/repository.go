package invites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/database"
)

var (
	// ErrNotFound means no invite matches the lookup.
	ErrNotFound = errors.New("invite not found")
	// ErrNotPending means the invite was already accepted, revoked or expired.
	ErrNotPending = errors.New("invite is not pending")
)

const inviteColumns = `id, company_id, email, role, token, status, expires_at,
	created_by, created_at, updated_at`

// Repository handles invite persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invites repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanInvite(row pgx.Row) (*models.Invite, error) {
	var inv models.Invite
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.Email, &inv.Role, &inv.Token,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a pending invite.
func (r *Repository) Create(ctx context.Context, inv *models.Invite) (*models.Invite, error) {
	const q = `INSERT INTO invites (company_id, email, role, token, status, expires_at, created_by)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING ` + inviteColumns
	return scanInvite(r.pool.QueryRow(ctx, q,
		inv.CompanyID, inv.Email, string(inv.Role), inv.Token, inv.ExpiresAt, inv.CreatedBy))
}

// GetByToken returns an invite by its opaque token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites WHERE token = $1`
	inv, err := scanInvite(r.pool.QueryRow(ctx, q, token))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

// ListByCompany returns a company's invites, newest first.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]models.Invite, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invites WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + inviteColumns + ` FROM invites
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Invite
	for rows.Next() {
		var inv models.Invite
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.Email, &inv.Role, &inv.Token,
			&inv.Status, &inv.ExpiresAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, inv)
	}
	return list, total, rows.Err()
}

// SetStatus moves a pending invite of the given company to a new status.
// An id belonging to another company is ErrNotFound, never a cross-tenant
// update. Returns ErrNotPending when the invite exists but was already
// decided.
func (r *Repository) SetStatus(ctx context.Context, companyID, id uuid.UUID, status models.InviteStatus) (*models.Invite, error) {
	const q = `UPDATE invites SET status = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'pending'
		RETURNING ` + inviteColumns
	inv, err := scanInvite(r.pool.QueryRow(ctx, q, id, companyID, string(status)))
	if err == nil {
		return inv, nil
	}
	if !database.IsNoRows(err) {
		return nil, err
	}
	const existsQ = `SELECT EXISTS (SELECT 1 FROM invites WHERE id = $1 AND company_id = $2)`
	var exists bool
	if scanErr := r.pool.QueryRow(ctx, existsQ, id, companyID).Scan(&exists); scanErr != nil {
		return nil, scanErr
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrNotPending
}

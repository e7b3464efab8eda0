package memberships

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/database"
)

var (
	// ErrNotFound means no membership exists for the pair.
	ErrNotFound = errors.New("membership not found")
	// ErrDuplicate means a membership for the (company, user) pair already
	// exists, regardless of role. Backed by the unique constraint, so two
	// concurrent create attempts cannot both succeed.
	ErrDuplicate = errors.New("membership already exists")
	// ErrTerminal means the membership is rejected and accepts no further
	// transitions.
	ErrTerminal = errors.New("membership is terminal")
)

const membershipColumns = `id, company_id, user_id, role, status, started_at, ended_at, created_at, updated_at`

// Repository is the membership ledger: the authoritative mapping between
// users and companies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a membership repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMembership(row interface{ Scan(...any) error }) (*models.Membership, error) {
	var m models.Membership
	err := row.Scan(&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.Status,
		&m.StartedAt, &m.EndedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a membership. Administrative flows create directly in
// approved status; self-service linking creates pending. Returns ErrDuplicate
// when the pair already exists.
func (r *Repository) Create(ctx context.Context, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error) {
	const q = `INSERT INTO memberships (company_id, user_id, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + membershipColumns
	m, err := scanMembership(r.pool.QueryRow(ctx, q, companyID, userID, string(role), string(status)))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// CreateTx inserts a membership inside an existing transaction (compound
// company registration).
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error) {
	const q = `INSERT INTO memberships (company_id, user_id, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + membershipColumns
	m, err := scanMembership(tx.QueryRow(ctx, q, companyID, userID, string(role), string(status)))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// GetByPair returns the membership for (company, user), or ErrNotFound.
func (r *Repository) GetByPair(ctx context.Context, companyID, userID uuid.UUID) (*models.Membership, error) {
	const q = `SELECT ` + membershipColumns + ` FROM memberships
		WHERE company_id = $1 AND user_id = $2`
	m, err := scanMembership(r.pool.QueryRow(ctx, q, companyID, userID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// Decide applies an approval decision. Rejecting stamps ended_at and is
// terminal. Returns ErrNotFound when no membership exists for the pair and
// ErrTerminal when the existing one is already rejected.
func (r *Repository) Decide(ctx context.Context, companyID, userID uuid.UUID, approve bool) (*models.Membership, error) {
	status := models.MembershipRejected
	if approve {
		status = models.MembershipApproved
	}
	const q = `UPDATE memberships
		SET status = $3,
		    ended_at = CASE WHEN $3 = 'rejected' THEN NOW() ELSE ended_at END,
		    updated_at = NOW()
		WHERE company_id = $1 AND user_id = $2 AND status <> 'rejected'
		RETURNING ` + membershipColumns
	m, err := scanMembership(r.pool.QueryRow(ctx, q, companyID, userID, string(status)))
	if err == nil {
		return m, nil
	}
	if !database.IsNoRows(err) {
		return nil, err
	}
	if _, getErr := r.GetByPair(ctx, companyID, userID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrTerminal
}

// Reactivate resets a rejected membership back to pending for a fresh link
// attempt; the unique pair constraint forbids a second row, so reactivation
// is the only path back in. Returns ErrNotFound when no rejected membership
// exists.
func (r *Repository) Reactivate(ctx context.Context, companyID, userID uuid.UUID, role models.Role) (*models.Membership, error) {
	const q = `UPDATE memberships
		SET status = 'pending', role = $3, started_at = NOW(), ended_at = NULL, updated_at = NOW()
		WHERE company_id = $1 AND user_id = $2 AND status = 'rejected'
		RETURNING ` + membershipColumns
	m, err := scanMembership(r.pool.QueryRow(ctx, q, companyID, userID, string(role)))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// CompanyMember is a membership joined with user identity fields for
// directory views.
type CompanyMember struct {
	MembershipID uuid.UUID               `json:"membership_id"`
	UserID       uuid.UUID               `json:"user_id"`
	Email        string                  `json:"email"`
	FullName     string                  `json:"full_name,omitempty"`
	Role         models.Role             `json:"role"`
	Status       models.MembershipStatus `json:"status"`
	StartedAt    time.Time               `json:"started_at"`
	EndedAt      *time.Time              `json:"ended_at,omitempty"`
}

// ListByCompany returns members of a company joined with user identity,
// optionally filtered by role, with limit/offset pagination.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID, role string, limit, offset int) ([]CompanyMember, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	const countQ = `SELECT COUNT(*) FROM memberships
		WHERE company_id = $1 AND ($2 = '' OR role = $2)`
	if err := r.pool.QueryRow(ctx, countQ, companyID, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT m.id, m.user_id, u.email, COALESCE(u.full_name, ''), m.role, m.status, m.started_at, m.ended_at
		FROM memberships m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.company_id = $1 AND ($2 = '' OR m.role = $2)
		ORDER BY m.started_at ASC
		LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, companyID, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []CompanyMember
	for rows.Next() {
		var m CompanyMember
		if err := rows.Scan(&m.MembershipID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.Status, &m.StartedAt, &m.EndedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, m)
	}
	return list, total, rows.Err()
}

// ListByUser returns the user's live (not rejected) memberships joined with
// company name and verification status. Soft-deleted companies are excluded.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserCompany, error) {
	const q = `SELECT m.company_id, c.name, m.role, m.status, c.status
		FROM memberships m
		INNER JOIN companies c ON c.id = m.company_id
		WHERE m.user_id = $1 AND m.status <> 'rejected' AND c.deleted_at IS NULL
		ORDER BY c.name`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserCompany
	for rows.Next() {
		var uc models.UserCompany
		if err := rows.Scan(&uc.CompanyID, &uc.CompanyName, &uc.Role, &uc.MembershipStatus, &uc.CompanyStatus); err != nil {
			return nil, err
		}
		list = append(list, uc)
	}
	return list, rows.Err()
}

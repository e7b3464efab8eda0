package companies

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
	// ErrNotFound means no live (not soft-deleted) company matches.
	ErrNotFound = errors.New("company not found")
	// ErrDuplicateRegNumber means a company with the same canonical
	// registration number already exists.
	ErrDuplicateRegNumber = errors.New("registration number already exists")
	// ErrTerminalStatus means the company already left pending; verified and
	// rejected accept no further transitions.
	ErrTerminalStatus = errors.New("company status is terminal")
)

const companyColumns = `id, name, reg_number, COALESCE(domain,''), COALESCE(address_line1,''),
	COALESCE(address_city,''), COALESCE(address_country,''), COALESCE(contact_email,''),
	COALESCE(contact_phone,''), COALESCE(description,''), status, COALESCE(status_reason,''),
	deleted_at, created_at, updated_at`

// Repository handles company persistence. All reads exclude soft-deleted rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a company repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for compound transactions.
func (r *Repository) Pool() *pgxpool.Pool { return r.pool }

func scanCompany(row pgx.Row) (*models.Company, error) {
	var co models.Company
	err := row.Scan(&co.ID, &co.Name, &co.RegNumber, &co.Domain, &co.AddressLine1,
		&co.AddressCity, &co.AddressCountry, &co.ContactEmail, &co.ContactPhone,
		&co.Description, &co.Status, &co.StatusReason, &co.DeletedAt, &co.CreatedAt, &co.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &co, nil
}

// CreateTx inserts a company inside an existing transaction. The regNumber
// must already be in digits-only canonical form. Status starts pending.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, co *models.Company) (*models.Company, error) {
	const q = `INSERT INTO companies (name, reg_number, domain, address_line1, address_city,
			address_country, contact_email, contact_phone, description, status)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''),
			NULLIF($7,''), NULLIF($8,''), NULLIF($9,''), 'pending')
		RETURNING ` + companyColumns
	created, err := scanCompany(tx.QueryRow(ctx, q, co.Name, co.RegNumber, co.Domain,
		co.AddressLine1, co.AddressCity, co.AddressCountry, co.ContactEmail, co.ContactPhone, co.Description))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateRegNumber
		}
		return nil, err
	}
	return created, nil
}

// GetByID returns a company by ID, excluding soft-deleted ones.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	const q = `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 AND deleted_at IS NULL`
	co, err := scanCompany(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return co, nil
}

// UpdateParams is the allow-list of administratively updatable company
// fields. Nil fields are untouched; registration number and status are not
// updatable here.
type UpdateParams struct {
	Name           *string `json:"name"`
	Domain         *string `json:"domain"`
	AddressLine1   *string `json:"address_line1"`
	AddressCity    *string `json:"address_city"`
	AddressCountry *string `json:"address_country"`
	ContactEmail   *string `json:"contact_email"`
	ContactPhone   *string `json:"contact_phone"`
	Description    *string `json:"description"`
}

// Update applies the allow-listed fields and returns the updated company.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*models.Company, error) {
	const q = `UPDATE companies SET
			name = COALESCE($2, name),
			domain = COALESCE($3, domain),
			address_line1 = COALESCE($4, address_line1),
			address_city = COALESCE($5, address_city),
			address_country = COALESCE($6, address_country),
			contact_email = COALESCE($7, contact_email),
			contact_phone = COALESCE($8, contact_phone),
			description = COALESCE($9, description),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + companyColumns
	co, err := scanCompany(r.pool.QueryRow(ctx, q, id, p.Name, p.Domain, p.AddressLine1,
		p.AddressCity, p.AddressCountry, p.ContactEmail, p.ContactPhone, p.Description))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return co, nil
}

// SetStatus moves a pending company to verified or rejected, optionally
// recording a reason. Returns ErrTerminalStatus when the company already left
// pending; there is no transition back.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.CompanyStatus, reason string) (*models.Company, error) {
	const q = `UPDATE companies
		SET status = $2, status_reason = NULLIF($3,''), updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING ` + companyColumns
	co, err := scanCompany(r.pool.QueryRow(ctx, q, id, string(status), reason))
	if err == nil {
		return co, nil
	}
	if !database.IsNoRows(err) {
		return nil, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrTerminalStatus
}

// SoftDelete stamps deleted_at; the company disappears from all default reads.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE companies SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

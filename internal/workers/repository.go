package workers

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
	// ErrNotFound means no worker matches the lookup.
	ErrNotFound = errors.New("worker not found")
	// ErrPhoneTaken means the phone number is already registered; phone
	// numbers are globally unique when present.
	ErrPhoneTaken = errors.New("phone number already registered")
)

const workerColumns = `id, user_id, national_id_hash, COALESCE(name,''), dob,
	COALESCE(phone,''), COALESCE(photo_url,''), status, created_at, updated_at`

// Repository handles worker persistence and status recomputation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a workers repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Begin opens a transaction for compound registration flows.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanWorker(row pgx.Row) (*models.Worker, error) {
	var w models.Worker
	err := row.Scan(&w.ID, &w.UserID, &w.NationalIDHash, &w.Name, &w.DOB,
		&w.Phone, &w.PhotoURL, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a worker. Returns ErrPhoneTaken on a duplicate phone.
func (r *Repository) Create(ctx context.Context, w *models.Worker) (*models.Worker, error) {
	const q = `INSERT INTO workers (user_id, national_id_hash, name, dob, phone, photo_url, status)
		VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,''), NULLIF($6,''), $7)
		RETURNING ` + workerColumns
	created, err := scanWorker(r.pool.QueryRow(ctx, q, w.UserID, w.NationalIDHash, w.Name, w.DOB, w.Phone, w.PhotoURL, string(w.Status)))
	if err != nil {
		if database.UniqueConstraint(err) == "workers_phone_key" {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return created, nil
}

// CreateTx inserts a worker inside an existing transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, w *models.Worker) (*models.Worker, error) {
	const q = `INSERT INTO workers (user_id, national_id_hash, name, dob, phone, photo_url, status)
		VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,''), NULLIF($6,''), $7)
		RETURNING ` + workerColumns
	created, err := scanWorker(tx.QueryRow(ctx, q, w.UserID, w.NationalIDHash, w.Name, w.DOB, w.Phone, w.PhotoURL, string(w.Status)))
	if err != nil {
		if database.UniqueConstraint(err) == "workers_phone_key" {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID returns a worker by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	const q = `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`
	w, err := scanWorker(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// GetByUserID returns the worker profile linked to a user.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Worker, error) {
	const q = `SELECT ` + workerColumns + ` FROM workers WHERE user_id = $1`
	w, err := scanWorker(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// InRoster reports whether a worker with the given national-id hash already
// belongs to the company's roster (via a live membership of its user).
func (r *Repository) InRoster(ctx context.Context, companyID uuid.UUID, nationalIDHash []byte) (bool, error) {
	if len(nationalIDHash) == 0 {
		return false, nil
	}
	const q = `SELECT EXISTS (
		SELECT 1 FROM workers w
		INNER JOIN memberships m ON m.user_id = w.user_id
		WHERE m.company_id = $1 AND m.status <> 'rejected' AND m.ended_at IS NULL
		  AND w.national_id_hash = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, companyID, nationalIDHash).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// InCompany reports whether the worker's user holds a live membership in the
// company, i.e. the worker is on that company's roster.
func (r *Repository) InCompany(ctx context.Context, companyID, workerID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM workers w
		INNER JOIN memberships m ON m.user_id = w.user_id
		WHERE w.id = $1 AND m.company_id = $2
		  AND m.status <> 'rejected' AND m.ended_at IS NULL)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, workerID, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByCompany returns the company's roster: workers whose user holds a live
// membership there.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]models.Worker, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	const countQ = `SELECT COUNT(*) FROM workers w
		INNER JOIN memberships m ON m.user_id = w.user_id
		WHERE m.company_id = $1 AND m.status <> 'rejected' AND m.ended_at IS NULL`
	if err := r.pool.QueryRow(ctx, countQ, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT w.id, w.user_id, w.national_id_hash, COALESCE(w.name,''), w.dob,
			COALESCE(w.phone,''), COALESCE(w.photo_url,''), w.status, w.created_at, w.updated_at
		FROM workers w
		INNER JOIN memberships m ON m.user_id = w.user_id
		WHERE m.company_id = $1 AND m.status <> 'rejected' AND m.ended_at IS NULL
		ORDER BY w.created_at ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Worker
	for rows.Next() {
		var w models.Worker
		if err := rows.Scan(&w.ID, &w.UserID, &w.NationalIDHash, &w.Name, &w.DOB,
			&w.Phone, &w.PhotoURL, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, w)
	}
	return list, total, rows.Err()
}

// SetStatus updates a worker's status directly.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.WorkerStatus) error {
	const q = `UPDATE workers SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPhotoURL records the stored photo location.
func (r *Repository) SetPhotoURL(ctx context.Context, id uuid.UUID, url string) error {
	const q = `UPDATE workers SET photo_url = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecomputeForUser rederives the worker status of a user's profile from the
// memberships that remain, per ComputeStatus. No-op when the user has no
// worker profile.
func (r *Repository) RecomputeForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `SELECT id, company_id, user_id, role, status, started_at, ended_at, created_at, updated_at
		FROM memberships WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return err
	}
	defer rows.Close()
	var list []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.UserID, &m.Role, &m.Status,
			&m.StartedAt, &m.EndedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	const updateQ = `UPDATE workers SET status = $2, updated_at = NOW() WHERE user_id = $1`
	_, err = r.pool.Exec(ctx, updateQ, userID, string(ComputeStatus(list)))
	return err
}

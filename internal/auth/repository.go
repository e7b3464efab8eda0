package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/database"
)

var (
	// ErrUserNotFound means no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken means the normalized email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

const userColumns = `id, email, password_hash, COALESCE(full_name, ''), national_id_hash, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.NationalIDHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetByEmail returns a user by normalized email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, NormalizeEmail(email)))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. nationalIDHash may be nil. Returns ErrEmailTaken
// on duplicate email.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, nationalIDHash []byte) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, national_id_hash)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, NormalizeEmail(email), passwordHash, fullName, nationalIDHash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// CreateTx inserts a new user inside an existing transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, email, passwordHash, fullName string, nationalIDHash []byte) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, national_id_hash)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING ` + userColumns
	u, err := scanUser(tx.QueryRow(ctx, q, NormalizeEmail(email), passwordHash, fullName, nationalIDHash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile updates name and/or password hash; nil fields are untouched.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, passwordHash *string) error {
	const q = `UPDATE users SET
		full_name = COALESCE($2, full_name),
		password_hash = COALESCE($3, password_hash),
		updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, fullName, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

package ppe

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitesafe/backend/internal/models"
)

const checkColumns = `id, company_id, task_id, worker_id, checked_by_id, result,
	COALESCE(json_blob_url,''), evidence_hash, created_at`

// Repository handles protective-equipment check persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PPE check repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a check record.
func (r *Repository) Create(ctx context.Context, chk *models.PPECheck) (*models.PPECheck, error) {
	const q = `INSERT INTO ppe_checks (company_id, task_id, worker_id, checked_by_id, result, json_blob_url, evidence_hash)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7)
		RETURNING ` + checkColumns
	var out models.PPECheck
	err := r.pool.QueryRow(ctx, q,
		chk.CompanyID, chk.TaskID, chk.WorkerID, chk.CheckedByID,
		string(chk.Result), chk.JSONBlobURL, chk.EvidenceHash,
	).Scan(&out.ID, &out.CompanyID, &out.TaskID, &out.WorkerID, &out.CheckedByID,
		&out.Result, &out.JSONBlobURL, &out.EvidenceHash, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByTask returns a task's checks, newest first.
func (r *Repository) ListByTask(ctx context.Context, companyID, taskID uuid.UUID, limit, offset int) ([]models.PPECheck, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	const countQ = `SELECT COUNT(*) FROM ppe_checks WHERE company_id = $1 AND task_id = $2`
	if err := r.pool.QueryRow(ctx, countQ, companyID, taskID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + checkColumns + ` FROM ppe_checks
		WHERE company_id = $1 AND task_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, companyID, taskID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.PPECheck
	for rows.Next() {
		var chk models.PPECheck
		if err := rows.Scan(&chk.ID, &chk.CompanyID, &chk.TaskID, &chk.WorkerID, &chk.CheckedByID,
			&chk.Result, &chk.JSONBlobURL, &chk.EvidenceHash, &chk.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, chk)
	}
	return list, total, rows.Err()
}

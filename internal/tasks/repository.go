package tasks

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
	// ErrNotFound means no task matches the lookup within the tenant.
	ErrNotFound = errors.New("task not found")
	// ErrAlreadyAssigned means the worker already has an assignment on the
	// task; the (task_id, worker_id) pair is unique.
	ErrAlreadyAssigned = errors.New("worker already assigned to this task")
)

const taskColumns = `id, company_id, project_id, work_date, COALESCE(title,''),
	COALESCE(shift,''), COALESCE(notes,''), supervisor_id, created_at, updated_at`

// Repository handles task and assignment persistence, scoped by company.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tasks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.CompanyID, &t.ProjectID, &t.WorkDate, &t.Title,
		&t.Shift, &t.Notes, &t.SupervisorID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a task under a project.
func (r *Repository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	const q = `INSERT INTO tasks (company_id, project_id, work_date, title, shift, notes, supervisor_id)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7)
		RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, q,
		t.CompanyID, t.ProjectID, t.WorkDate, t.Title, t.Shift, t.Notes, t.SupervisorID))
}

// Get returns a task by ID within the company.
func (r *Repository) Get(ctx context.Context, companyID, id uuid.UUID) (*models.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND company_id = $2`
	t, err := scanTask(r.pool.QueryRow(ctx, q, id, companyID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByProject returns a project's tasks ordered by work date. A zero `from`
// or `to` leaves that bound open.
func (r *Repository) ListByProject(ctx context.Context, companyID, projectID uuid.UUID, from, to time.Time, limit, offset int) ([]models.Task, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const where = ` FROM tasks
		WHERE company_id = $1 AND project_id = $2
		  AND ($3::date IS NULL OR work_date >= $3)
		  AND ($4::date IS NULL OR work_date <= $4)`
	var fromArg, toArg any
	if !from.IsZero() {
		fromArg = from
	}
	if !to.IsZero() {
		toArg = to
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, companyID, projectID, fromArg, toArg).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + taskColumns + where + `
		ORDER BY work_date DESC, created_at DESC
		LIMIT $5 OFFSET $6`
	rows, err := r.pool.Query(ctx, q, companyID, projectID, fromArg, toArg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.ProjectID, &t.WorkDate, &t.Title,
			&t.Shift, &t.Notes, &t.SupervisorID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}

// UpdateParams holds the allow-listed updatable task fields.
type UpdateParams struct {
	WorkDate     *time.Time `json:"work_date"`
	Title        *string    `json:"title"`
	Shift        *string    `json:"shift"`
	Notes        *string    `json:"notes"`
	SupervisorID *uuid.UUID `json:"supervisor_id"`
}

// Update applies the non-nil fields of p.
func (r *Repository) Update(ctx context.Context, companyID, id uuid.UUID, p UpdateParams) (*models.Task, error) {
	const q = `UPDATE tasks SET
		work_date = COALESCE($3, work_date),
		title = COALESCE($4, title),
		shift = COALESCE($5, shift),
		notes = COALESCE($6, notes),
		supervisor_id = COALESCE($7, supervisor_id),
		updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + taskColumns
	t, err := scanTask(r.pool.QueryRow(ctx, q, id, companyID, p.WorkDate, p.Title, p.Shift, p.Notes, p.SupervisorID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// Delete removes a task and, via cascade, its assignments.
func (r *Repository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Assign links a worker to a task. The database constraint makes the pair
// unique, so concurrent duplicate assigns resolve to one row.
func (r *Repository) Assign(ctx context.Context, taskID, workerID uuid.UUID) (*models.TaskAssignment, error) {
	const q = `INSERT INTO task_assignments (task_id, worker_id)
		VALUES ($1, $2)
		RETURNING id, task_id, worker_id, created_at`
	var a models.TaskAssignment
	err := r.pool.QueryRow(ctx, q, taskID, workerID).Scan(&a.ID, &a.TaskID, &a.WorkerID, &a.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyAssigned
		}
		return nil, err
	}
	return &a, nil
}

// Unassign removes a worker's assignment from a task.
func (r *Repository) Unassign(ctx context.Context, taskID, workerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM task_assignments WHERE task_id = $1 AND worker_id = $2`, taskID, workerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignedWorker is a task assignment joined with the worker's profile.
type AssignedWorker struct {
	AssignmentID uuid.UUID           `json:"assignment_id"`
	WorkerID     uuid.UUID           `json:"worker_id"`
	Name         string              `json:"name,omitempty"`
	Phone        string              `json:"phone,omitempty"`
	Status       models.WorkerStatus `json:"status"`
	AssignedAt   time.Time           `json:"assigned_at"`
}

// ListAssigned returns the workers assigned to a task.
func (r *Repository) ListAssigned(ctx context.Context, taskID uuid.UUID) ([]AssignedWorker, error) {
	const q = `SELECT a.id, w.id, COALESCE(w.name,''), COALESCE(w.phone,''), w.status, a.created_at
		FROM task_assignments a
		INNER JOIN workers w ON w.id = a.worker_id
		WHERE a.task_id = $1
		ORDER BY a.created_at ASC`
	rows, err := r.pool.Query(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []AssignedWorker
	for rows.Next() {
		var w AssignedWorker
		if err := rows.Scan(&w.AssignmentID, &w.WorkerID, &w.Name, &w.Phone, &w.Status, &w.AssignedAt); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// WorkerInCompany reports whether the worker's user holds a live membership in
// the company. Workers outside the tenant are indistinguishable from missing.
func (r *Repository) WorkerInCompany(ctx context.Context, companyID, workerID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM workers w
		INNER JOIN memberships m ON m.user_id = w.user_id
		WHERE w.id = $1 AND m.company_id = $2 AND m.status <> 'rejected' AND m.ended_at IS NULL)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, workerID, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

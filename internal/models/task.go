package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a dated unit of work within a project.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    uuid.UUID  `json:"company_id"`
	ProjectID    uuid.UUID  `json:"project_id"`
	WorkDate     time.Time  `json:"work_date"`
	Title        string     `json:"title,omitempty"`
	Shift        string     `json:"shift,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	SupervisorID *uuid.UUID `json:"supervisor_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TaskAssignment links a worker to a task. At most one assignment exists per
// (task_id, worker_id) pair (database unique constraint).
type TaskAssignment struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	WorkerID  uuid.UUID `json:"worker_id"`
	CreatedAt time.Time `json:"created_at"`
}

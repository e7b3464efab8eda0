package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkerStatus reflects whether a worker currently has a live membership
// anywhere. "active" means at least one pending or approved membership, not
// approval itself.
type WorkerStatus string

const (
	WorkerIndependent WorkerStatus = "independent"
	WorkerActive      WorkerStatus = "active"
	WorkerInactive    WorkerStatus = "inactive"
)

// Worker is a field-operations profile. It may exist without a platform login
// (UserID nil); company relationships are expressed through the user's
// memberships, never through a direct company field.
type Worker struct {
	ID             uuid.UUID    `json:"id"`
	UserID         *uuid.UUID   `json:"user_id,omitempty"`
	NationalIDHash []byte       `json:"-"`
	Name           string       `json:"name,omitempty"`
	DOB            *time.Time   `json:"dob,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	PhotoURL       string       `json:"photo_url,omitempty"`
	Status         WorkerStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

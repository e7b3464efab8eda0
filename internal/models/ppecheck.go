package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckResult is the outcome of a protective-equipment check.
type CheckResult string

const (
	CheckPass    CheckResult = "pass"
	CheckFail    CheckResult = "fail"
	CheckPartial CheckResult = "partial"
)

// ValidCheckResult reports whether s names a known result.
func ValidCheckResult(s string) bool {
	switch CheckResult(s) {
	case CheckPass, CheckFail, CheckPartial:
		return true
	}
	return false
}

// PPECheck records one equipment compliance check against a worker on a task.
// EvidenceHash is a SHA-256 digest of the canonical check payload.
type PPECheck struct {
	ID           uuid.UUID   `json:"id"`
	CompanyID    uuid.UUID   `json:"company_id"`
	TaskID       uuid.UUID   `json:"task_id"`
	WorkerID     uuid.UUID   `json:"worker_id"`
	CheckedByID  uuid.UUID   `json:"checked_by_id"`
	Result       CheckResult `json:"result"`
	JSONBlobURL  string      `json:"json_blob_url,omitempty"`
	EvidenceHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

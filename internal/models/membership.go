package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the role a user holds within a company.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleManager       Role = "manager"
	RoleSubcontractor Role = "subcontractor"
	RoleWorker        Role = "worker"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleSubcontractor, RoleWorker:
		return true
	}
	return false
}

// MembershipStatus is the approval state of a membership.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipRejected MembershipStatus = "rejected"
)

// Membership is the edge between exactly one user and exactly one company.
// At most one membership exists per (company_id, user_id) pair; the pair is a
// database unique constraint.
type Membership struct {
	ID        uuid.UUID        `json:"id"`
	CompanyID uuid.UUID        `json:"company_id"`
	UserID    uuid.UUID        `json:"user_id"`
	Role      Role             `json:"role"`
	Status    MembershipStatus `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Live reports whether the membership still counts toward a worker's company
// relationships (pending or approved, not ended).
func (m *Membership) Live() bool {
	return m.Status != MembershipRejected && m.EndedAt == nil
}

// UserCompany is a membership joined with company fields, for tenant
// resolution and company-selection responses.
type UserCompany struct {
	CompanyID        uuid.UUID        `json:"company_id"`
	CompanyName      string           `json:"name"`
	Role             Role             `json:"role"`
	MembershipStatus MembershipStatus `json:"membership_status"`
	CompanyStatus    CompanyStatus    `json:"company_status"`
}

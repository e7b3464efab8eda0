package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus is the lifecycle state of an invite.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
	InviteExpired  InviteStatus = "expired"
)

// Invite lets a company admin offer a membership to an email address before
// the person has an account. Accepting creates the membership.
type Invite struct {
	ID        uuid.UUID    `json:"id"`
	CompanyID uuid.UUID    `json:"company_id"`
	Email     string       `json:"email"`
	Role      Role         `json:"role"`
	Token     string       `json:"-"`
	Status    InviteStatus `json:"status"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedBy *uuid.UUID   `json:"created_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompanyStatus is the verification status of a company (tenant).
type CompanyStatus string

const (
	CompanyPending  CompanyStatus = "pending"
	CompanyVerified CompanyStatus = "verified"
	CompanyRejected CompanyStatus = "rejected"
)

// Company is a tenant: the unit of data isolation.
type Company struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	RegNumber      string        `json:"reg_number"` // digits-only canonical form
	Domain         string        `json:"domain,omitempty"`
	AddressLine1   string        `json:"address_line1,omitempty"`
	AddressCity    string        `json:"address_city,omitempty"`
	AddressCountry string        `json:"address_country,omitempty"`
	ContactEmail   string        `json:"contact_email,omitempty"`
	ContactPhone   string        `json:"contact_phone,omitempty"`
	Description    string        `json:"description,omitempty"`
	Status         CompanyStatus `json:"status"`
	StatusReason   string        `json:"status_reason,omitempty"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NormalizeRegNumber reduces a registration number to its digits-only
// canonical form. Must run before the uniqueness check, so "123-456" and
// "123456" collide.
func NormalizeRegNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

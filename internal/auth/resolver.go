package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sitesafe/backend/internal/models"
)

var (
	// ErrCrossTenant means the requested company is not among the
	// credential's bound tenants. Always surfaced as Forbidden, never as
	// NotFound, so existence is not leaked.
	ErrCrossTenant = errors.New("cross-tenant access")
	// ErrNoMembership means the caller has no company membership at all.
	ErrNoMembership = errors.New("no company memberships")
	// ErrForbiddenRole means the credential's role set does not intersect the
	// wanted roles.
	ErrForbiddenRole = errors.New("insufficient role")
)

// MembershipSource is the slice of the ledger the resolver reads. Satisfied
// by *memberships.Repository.
type MembershipSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserCompany, error)
}

// Resolver decides, for a verified credential and a requested tenant, whether
// the request may proceed — and for multi-tenant users, which tenant context
// applies when the request is ambiguous.
type Resolver struct {
	ledger MembershipSource
}

// NewResolver creates a tenant resolver backed by the membership ledger.
func NewResolver(ledger MembershipSource) *Resolver {
	return &Resolver{ledger: ledger}
}

// Authorize checks a verified credential against a requested company id and
// optional wanted roles. Role alone never substitutes for tenant binding.
//
// Single-bound credentials must match the target exactly. Multi-bound
// credentials must contain the target. Unbound credentials are checked
// against the caller's live membership set.
func (r *Resolver) Authorize(ctx context.Context, claims *Claims, target uuid.UUID, wantedRoles ...string) error {
	if len(wantedRoles) > 0 && !claims.HasRole(wantedRoles...) {
		return ErrForbiddenRole
	}
	switch {
	case claims.CompanyID != nil:
		if *claims.CompanyID != target {
			return ErrCrossTenant
		}
		return nil
	case len(claims.CompanyIDs) > 0:
		for _, id := range claims.CompanyIDs {
			if id == target {
				return nil
			}
		}
		return ErrCrossTenant
	default:
		list, err := r.ledger.ListByUser(ctx, claims.UserID)
		if err != nil {
			return err
		}
		for _, uc := range list {
			if uc.CompanyID == target {
				return nil
			}
		}
		return ErrCrossTenant
	}
}

// Resolve picks the tenant context for a caller with no bound tenant yet
// (login, pre-selection). With an explicit target it must be in the caller's
// membership set. Without one, a single membership applies implicitly; with
// several, the operation cannot proceed silently and the caller's companies
// are returned so the caller can choose and re-request.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, explicit *uuid.UUID) (*models.UserCompany, []models.UserCompany, error) {
	list, err := r.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(list) == 0 {
		return nil, nil, ErrNoMembership
	}
	if explicit != nil {
		for i := range list {
			if list[i].CompanyID == *explicit {
				return &list[i], nil, nil
			}
		}
		return nil, nil, ErrCrossTenant
	}
	if len(list) == 1 {
		return &list[0], nil, nil
	}
	return nil, list, nil
}

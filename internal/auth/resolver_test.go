package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sitesafe/backend/internal/models"
)

type fakeLedger struct {
	companies []models.UserCompany
	err       error
}

func (f *fakeLedger) ListByUser(_ context.Context, _ uuid.UUID) ([]models.UserCompany, error) {
	return f.companies, f.err
}

func userCompany(id uuid.UUID, role models.Role) models.UserCompany {
	return models.UserCompany{CompanyID: id, Role: role, MembershipStatus: models.MembershipApproved}
}

func TestAuthorizeBoundCredential(t *testing.T) {
	t.Parallel()
	target := uuid.New()
	other := uuid.New()
	r := NewResolver(&fakeLedger{})

	claims := &Claims{UserID: uuid.New(), CompanyID: &target, Roles: []string{"admin"}}
	if err := r.Authorize(context.Background(), claims, target); err != nil {
		t.Errorf("matching target: %v", err)
	}
	if err := r.Authorize(context.Background(), claims, other); !errors.Is(err, ErrCrossTenant) {
		t.Errorf("mismatched target = %v, want ErrCrossTenant", err)
	}
}

func TestAuthorizeRoleNeverSubstitutesForTenant(t *testing.T) {
	t.Parallel()
	bound := uuid.New()
	r := NewResolver(&fakeLedger{})

	// An admin of company A gets Forbidden for company B, not NotFound.
	claims := &Claims{UserID: uuid.New(), CompanyID: &bound, Roles: []string{"admin"}}
	if err := r.Authorize(context.Background(), claims, uuid.New(), "admin"); !errors.Is(err, ErrCrossTenant) {
		t.Errorf("got %v, want ErrCrossTenant", err)
	}
}

func TestAuthorizeWantedRoles(t *testing.T) {
	t.Parallel()
	target := uuid.New()
	r := NewResolver(&fakeLedger{})
	claims := &Claims{UserID: uuid.New(), CompanyID: &target, Roles: []string{"worker"}}

	if err := r.Authorize(context.Background(), claims, target, "admin", "manager"); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("got %v, want ErrForbiddenRole", err)
	}
	if err := r.Authorize(context.Background(), claims, target, "worker"); err != nil {
		t.Errorf("wanted role present: %v", err)
	}
}

func TestAuthorizeMultiBoundCredential(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	r := NewResolver(&fakeLedger{})
	claims := &Claims{UserID: uuid.New(), CompanyIDs: []uuid.UUID{a, b}, Roles: []string{"worker"}}

	if err := r.Authorize(context.Background(), claims, b); err != nil {
		t.Errorf("member of set: %v", err)
	}
	if err := r.Authorize(context.Background(), claims, uuid.New()); !errors.Is(err, ErrCrossTenant) {
		t.Errorf("outside set = %v, want ErrCrossTenant", err)
	}
}

func TestAuthorizeUnboundChecksLedger(t *testing.T) {
	t.Parallel()
	member := uuid.New()
	r := NewResolver(&fakeLedger{companies: []models.UserCompany{userCompany(member, models.RoleWorker)}})
	claims := &Claims{UserID: uuid.New(), Roles: []string{"worker"}}

	if err := r.Authorize(context.Background(), claims, member); err != nil {
		t.Errorf("live membership: %v", err)
	}
	if err := r.Authorize(context.Background(), claims, uuid.New()); !errors.Is(err, ErrCrossTenant) {
		t.Errorf("no membership = %v, want ErrCrossTenant", err)
	}
}

func TestResolveNoMembership(t *testing.T) {
	t.Parallel()
	r := NewResolver(&fakeLedger{})
	_, _, err := r.Resolve(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrNoMembership) {
		t.Errorf("got %v, want ErrNoMembership", err)
	}
}

func TestResolveSingleImplicit(t *testing.T) {
	t.Parallel()
	only := uuid.New()
	r := NewResolver(&fakeLedger{companies: []models.UserCompany{userCompany(only, models.RoleAdmin)}})

	selected, choices, err := r.Resolve(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selected == nil || selected.CompanyID != only {
		t.Errorf("selected = %v, want company %s", selected, only)
	}
	if choices != nil {
		t.Error("single membership must not prompt for selection")
	}
}

func TestResolveMultipleNeedsSelection(t *testing.T) {
	t.Parallel()
	r := NewResolver(&fakeLedger{companies: []models.UserCompany{
		userCompany(uuid.New(), models.RoleWorker),
		userCompany(uuid.New(), models.RoleWorker),
	}})

	selected, choices, err := r.Resolve(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selected != nil {
		t.Error("ambiguous membership set must not resolve silently")
	}
	if len(choices) != 2 {
		t.Errorf("choices = %d, want 2", len(choices))
	}
}

func TestResolveExplicitTarget(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	r := NewResolver(&fakeLedger{companies: []models.UserCompany{
		userCompany(a, models.RoleWorker),
		userCompany(b, models.RoleManager),
	}})

	selected, _, err := r.Resolve(context.Background(), uuid.New(), &b)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selected.CompanyID != b || selected.Role != models.RoleManager {
		t.Errorf("selected = %+v, want company %s role manager", selected, b)
	}

	outside := uuid.New()
	if _, _, err := r.Resolve(context.Background(), uuid.New(), &outside); !errors.Is(err, ErrCrossTenant) {
		t.Errorf("explicit outside set = %v, want ErrCrossTenant", err)
	}
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", 1)
	userID := uuid.New()
	companyID := uuid.New()

	token, err := svc.Issue(userID, companyID, "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.CompanyID == nil || *claims.CompanyID != companyID {
		t.Errorf("CompanyID = %v, want %s", claims.CompanyID, companyID)
	}
	if !claims.HasRole("admin") {
		t.Error("expected admin role")
	}
	if claims.HasRole("manager") {
		t.Error("unexpected manager role")
	}
}

func TestIssueMultiCarriesCompanySet(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", 1)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	token, err := svc.IssueMulti(uuid.New(), ids, []string{"worker"})
	if err != nil {
		t.Fatalf("IssueMulti: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.CompanyID != nil {
		t.Error("multi-company credential must not carry a single binding")
	}
	if len(claims.CompanyIDs) != 2 {
		t.Fatalf("CompanyIDs = %v, want 2 entries", claims.CompanyIDs)
	}
}

func TestIssueUnboundHasNoTenant(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", 1)

	token, err := svc.IssueUnbound(uuid.New(), "worker")
	if err != nil {
		t.Fatalf("IssueUnbound: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.CompanyID != nil || len(claims.CompanyIDs) != 0 {
		t.Error("unbound credential must carry no tenant binding")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	token, err := NewTokenService("secret-a", 1).Issue(uuid.New(), uuid.New(), "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := NewTokenService("secret-b", 1).Verify(token); err == nil {
		t.Error("expected verification failure with a different secret")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", 1)
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(tok); err == nil {
			t.Errorf("Verify(%q) succeeded, want error", tok)
		}
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", 1)
	userID := uuid.New()
	companyID := uuid.New()

	// The service never issues already-expired credentials, so sign one by
	// hand with the same secret and a past expiry.
	past := time.Now().Add(-time.Hour)
	claims := Claims{
		UserID:    userID,
		CompanyID: &companyID,
		Roles:     []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(past),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(expired) = %v, want ErrInvalidToken", err)
	}
}

func TestDefaultExpiryIsSevenDays(t *testing.T) {
	t.Parallel()
	svc := NewTokenService("test-secret", 0)
	if svc.expireHours != 7*24 {
		t.Errorf("expireHours = %d, want %d", svc.expireHours, 7*24)
	}
}

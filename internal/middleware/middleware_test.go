package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// emptyLedger is a membership source with no rows, so unbound credentials
// always fail tenant checks.
type emptyLedger struct{}

func (emptyLedger) ListByUser(context.Context, uuid.UUID) ([]models.UserCompany, error) {
	return nil, nil
}

func newRouter(tokens *auth.TokenService, resolver *auth.Resolver, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{Auth(tokens)}
	if resolver != nil {
		handlers = append(handlers, RequireTenant(resolver))
	}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) { response.OK(c, gin.H{"ok": true}) })
	r.GET("/companies/:companyId/ping", handlers...)
	return r
}

func doRequest(r *gin.Engine, companyID uuid.UUID, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/companies/"+companyID.String()+"/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingAndMalformedHeaders(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", 1)
	r := newRouter(tokens, nil)
	companyID := uuid.New()

	if w := doRequest(r, companyID, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/companies/"+companyID.String()+"/ping", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("non-bearer header: status = %d, want 401", w.Code)
	}

	if w := doRequest(r, companyID, "not-a-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", w.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	companyID := uuid.New()
	token, err := auth.NewTokenService("other-secret", 1).Issue(uuid.New(), companyID, "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r := newRouter(auth.NewTokenService("test-secret", 1), nil)
	if w := doRequest(r, companyID, token); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireTenantMatchingCompany(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", 1)
	companyID := uuid.New()
	token, err := tokens.Issue(uuid.New(), companyID, "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r := newRouter(tokens, auth.NewResolver(emptyLedger{}))
	if w := doRequest(r, companyID, token); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestRequireTenantCrossTenantIsForbidden(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", 1)
	token, err := tokens.Issue(uuid.New(), uuid.New(), "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r := newRouter(tokens, auth.NewResolver(emptyLedger{}))
	w := doRequest(r, uuid.New(), token)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", 1)
	companyID := uuid.New()
	resolver := auth.NewResolver(emptyLedger{})

	workerToken, err := tokens.Issue(uuid.New(), companyID, "worker")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	adminToken, err := tokens.Issue(uuid.New(), companyID, "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := newRouter(tokens, resolver, RequireRole("admin", "manager"))
	if w := doRequest(r, companyID, workerToken); w.Code != http.StatusForbidden {
		t.Errorf("worker: status = %d, want 403", w.Code)
	}
	if w := doRequest(r, companyID, adminToken); w.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", w.Code)
	}
}

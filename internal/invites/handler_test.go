package invites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewInviteToken(t *testing.T) {
	t.Parallel()
	a, err := newInviteToken()
	require.NoError(t, err)
	require.Len(t, a, 48) // 24 random bytes, hex-encoded

	b, err := newInviteToken()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

// fakeInviteStore implements InviteStore in memory with the repository's
// tenant-scoping contract: an id outside the given company is ErrNotFound.
type fakeInviteStore struct {
	invites map[uuid.UUID]*models.Invite
}

func (f *fakeInviteStore) Create(_ context.Context, inv *models.Invite) (*models.Invite, error) {
	return inv, nil
}

func (f *fakeInviteStore) GetByToken(context.Context, string) (*models.Invite, error) {
	return nil, ErrNotFound
}

func (f *fakeInviteStore) ListByCompany(context.Context, uuid.UUID, int, int) ([]models.Invite, int, error) {
	return nil, 0, nil
}

func (f *fakeInviteStore) SetStatus(_ context.Context, companyID, id uuid.UUID, status models.InviteStatus) (*models.Invite, error) {
	inv, ok := f.invites[id]
	if !ok || inv.CompanyID != companyID {
		return nil, ErrNotFound
	}
	if inv.Status != models.InvitePending {
		return nil, ErrNotPending
	}
	inv.Status = status
	return inv, nil
}

func newRevokeRouter(store InviteStore, companyID uuid.UUID) *gin.Engine {
	h := NewHandler(store, nil, nil, nil, nil, zap.NewNop())
	r := gin.New()
	r.POST("/companies/:companyId/invites/:inviteId/revoke", func(c *gin.Context) {
		c.Set(middleware.ContextCompanyID, companyID)
	}, h.Revoke)
	return r
}

func revoke(r *gin.Engine, companyID, inviteID uuid.UUID) *httptest.ResponseRecorder {
	path := "/companies/" + companyID.String() + "/invites/" + inviteID.String() + "/revoke"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	return w
}

func TestRevokeIsScopedToAuthorizedCompany(t *testing.T) {
	t.Parallel()
	mine, other := uuid.New(), uuid.New()
	inv := &models.Invite{ID: uuid.New(), CompanyID: other, Status: models.InvitePending}
	store := &fakeInviteStore{invites: map[uuid.UUID]*models.Invite{inv.ID: inv}}

	// An admin of one company must not be able to revoke another company's
	// invite, and must not learn that it exists.
	w := revoke(newRevokeRouter(store, mine), mine, inv.ID)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, models.InvitePending, inv.Status)
}

func TestRevokeOwnCompanyInvite(t *testing.T) {
	t.Parallel()
	companyID := uuid.New()
	inv := &models.Invite{ID: uuid.New(), CompanyID: companyID, Status: models.InvitePending}
	store := &fakeInviteStore{invites: map[uuid.UUID]*models.Invite{inv.ID: inv}}

	w := revoke(newRevokeRouter(store, companyID), companyID, inv.ID)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.InviteRevoked, inv.Status)

	// A second revoke finds the invite no longer pending.
	w = revoke(newRevokeRouter(store, companyID), companyID, inv.ID)
	require.Equal(t, http.StatusConflict, w.Code)
}

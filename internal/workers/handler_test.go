package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/memberships"
	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeTx records the transaction outcome. The embedded pgx.Tx panics on any
// query, which no fake store issues.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error { t.committed = true; return nil }

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeWorkerStore struct {
	tx          *fakeTx
	workers     map[uuid.UUID]*models.Worker
	roster      map[uuid.UUID]uuid.UUID // worker id -> company id
	photoKeys   map[uuid.UUID]string
	createTxErr error
}

func (f *fakeWorkerStore) Begin(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

func (f *fakeWorkerStore) Create(_ context.Context, w *models.Worker) (*models.Worker, error) {
	w.ID = uuid.New()
	return w, nil
}

func (f *fakeWorkerStore) CreateTx(_ context.Context, _ pgx.Tx, w *models.Worker) (*models.Worker, error) {
	if f.createTxErr != nil {
		return nil, f.createTxErr
	}
	w.ID = uuid.New()
	return w, nil
}

func (f *fakeWorkerStore) GetByID(_ context.Context, id uuid.UUID) (*models.Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

func (f *fakeWorkerStore) GetByUserID(context.Context, uuid.UUID) (*models.Worker, error) {
	return nil, ErrNotFound
}

func (f *fakeWorkerStore) InRoster(context.Context, uuid.UUID, []byte) (bool, error) {
	return false, nil
}

func (f *fakeWorkerStore) InCompany(_ context.Context, companyID, workerID uuid.UUID) (bool, error) {
	return f.roster[workerID] == companyID, nil
}

func (f *fakeWorkerStore) ListByCompany(context.Context, uuid.UUID, int, int) ([]models.Worker, int, error) {
	return nil, 0, nil
}

func (f *fakeWorkerStore) SetStatus(context.Context, uuid.UUID, models.WorkerStatus) error {
	return nil
}

func (f *fakeWorkerStore) SetPhotoURL(_ context.Context, id uuid.UUID, url string) error {
	if f.photoKeys == nil {
		f.photoKeys = make(map[uuid.UUID]string)
	}
	f.photoKeys[id] = url
	return nil
}

func (f *fakeWorkerStore) RecomputeForUser(context.Context, uuid.UUID) error { return nil }

type fakeUserDirectory struct{}

func (fakeUserDirectory) Create(_ context.Context, email, _, fullName string, _ []byte) (*models.User, error) {
	return &models.User{ID: uuid.New(), Email: email, FullName: fullName}, nil
}

func (fakeUserDirectory) CreateTx(_ context.Context, _ pgx.Tx, email, _, fullName string, _ []byte) (*models.User, error) {
	return &models.User{ID: uuid.New(), Email: email, FullName: fullName}, nil
}

type fakeMembershipLedger struct {
	createTxErr error
}

func (f *fakeMembershipLedger) Create(_ context.Context, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error) {
	return &models.Membership{ID: uuid.New(), CompanyID: companyID, UserID: userID, Role: role, Status: status}, nil
}

func (f *fakeMembershipLedger) CreateTx(_ context.Context, _ pgx.Tx, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error) {
	if f.createTxErr != nil {
		return nil, f.createTxErr
	}
	return &models.Membership{ID: uuid.New(), CompanyID: companyID, UserID: userID, Role: role, Status: status}, nil
}

func (f *fakeMembershipLedger) Reactivate(context.Context, uuid.UUID, uuid.UUID, models.Role) (*models.Membership, error) {
	return nil, memberships.ErrNotFound
}

func (f *fakeMembershipLedger) Decide(context.Context, uuid.UUID, uuid.UUID, bool) (*models.Membership, error) {
	return nil, memberships.ErrNotFound
}

func newCompanyRouter(h *Handler, companyID uuid.UUID) *gin.Engine {
	r := gin.New()
	setTenant := func(c *gin.Context) { c.Set(middleware.ContextCompanyID, companyID) }
	r.POST("/companies/:companyId/workers", setTenant, h.Enroll)
	r.POST("/companies/:companyId/workers/:workerId/photo", setTenant, h.UploadPhoto)
	r.POST("/companies/:companyId/workers/:workerId/photo-upload-url", setTenant, h.PhotoUploadURL)
	r.POST("/companies/:companyId/workers/:workerId/photo/confirm", setTenant, h.ConfirmPhoto)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPhotoEndpointsScopedToRoster(t *testing.T) {
	t.Parallel()
	mine, other := uuid.New(), uuid.New()
	w := &models.Worker{ID: uuid.New(), Status: models.WorkerActive}
	store := &fakeWorkerStore{
		workers: map[uuid.UUID]*models.Worker{w.ID: w},
		roster:  map[uuid.UUID]uuid.UUID{w.ID: other},
	}
	h := NewHandler(store, fakeUserDirectory{}, &fakeMembershipLedger{}, nil, zap.NewNop())
	r := newCompanyRouter(h, mine)

	// The worker exists but belongs to another company's roster: every photo
	// endpoint reads it as not found rather than touching its photo.
	base := "/companies/" + mine.String() + "/workers/" + w.ID.String()
	if got := postJSON(r, base+"/photo", nil); got.Code != http.StatusNotFound {
		t.Errorf("upload: status = %d, want 404", got.Code)
	}
	if got := postJSON(r, base+"/photo-upload-url", gin.H{"filename": "a.jpg", "content_type": "image/jpeg"}); got.Code != http.StatusNotFound {
		t.Errorf("upload url: status = %d, want 404", got.Code)
	}
	if got := postJSON(r, base+"/photo/confirm", gin.H{"key": "photos/" + w.ID.String() + ".jpg"}); got.Code != http.StatusNotFound {
		t.Errorf("confirm: status = %d, want 404", got.Code)
	}
	if len(store.photoKeys) != 0 {
		t.Errorf("photo key recorded cross-tenant: %v", store.photoKeys)
	}
}

func TestConfirmPhotoRecordsOwnKeyOnly(t *testing.T) {
	t.Parallel()
	companyID := uuid.New()
	w := &models.Worker{ID: uuid.New(), Status: models.WorkerActive}
	store := &fakeWorkerStore{
		workers: map[uuid.UUID]*models.Worker{w.ID: w},
		roster:  map[uuid.UUID]uuid.UUID{w.ID: companyID},
	}
	h := NewHandler(store, fakeUserDirectory{}, &fakeMembershipLedger{}, nil, zap.NewNop())
	r := newCompanyRouter(h, companyID)
	path := "/companies/" + companyID.String() + "/workers/" + w.ID.String() + "/photo/confirm"

	// A key under another worker's prefix is rejected.
	foreign := "photos/" + uuid.New().String() + ".jpg"
	if got := postJSON(r, path, gin.H{"key": foreign}); got.Code != http.StatusBadRequest {
		t.Errorf("foreign key: status = %d, want 400", got.Code)
	}
	if len(store.photoKeys) != 0 {
		t.Errorf("foreign key recorded: %v", store.photoKeys)
	}

	key := "photos/" + w.ID.String() + ".jpg"
	if got := postJSON(r, path, gin.H{"key": key}); got.Code != http.StatusOK {
		t.Errorf("own key: status = %d, want 200", got.Code)
	}
	if store.photoKeys[w.ID] != key {
		t.Errorf("recorded key = %q, want %q", store.photoKeys[w.ID], key)
	}
}

func enrollBody() gin.H {
	return gin.H{
		"national_id": "12345678",
		"name":        "Test Worker",
		"email":       "worker@example.com",
		"password":    "password123",
	}
}

func TestEnrollCommitsOneTransaction(t *testing.T) {
	t.Parallel()
	companyID := uuid.New()
	store := &fakeWorkerStore{}
	h := NewHandler(store, fakeUserDirectory{}, &fakeMembershipLedger{}, nil, zap.NewNop())
	r := newCompanyRouter(h, companyID)

	w := postJSON(r, "/companies/"+companyID.String()+"/workers", enrollBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	if store.tx == nil || !store.tx.committed {
		t.Error("enrollment must commit the registration transaction")
	}
}

func TestEnrollRollsBackWhenMembershipFails(t *testing.T) {
	t.Parallel()
	companyID := uuid.New()
	store := &fakeWorkerStore{}
	ledger := &fakeMembershipLedger{createTxErr: context.DeadlineExceeded}
	h := NewHandler(store, fakeUserDirectory{}, ledger, nil, zap.NewNop())
	r := newCompanyRouter(h, companyID)

	// A failed membership insert must not leave the user and active worker
	// rows behind.
	w := postJSON(r, "/companies/"+companyID.String()+"/workers", enrollBody())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (body %s)", w.Code, w.Body.String())
	}
	if store.tx == nil || !store.tx.rolledBack || store.tx.committed {
		t.Error("failed enrollment must roll back the registration transaction")
	}
}

func TestEnrollDuplicateMembershipIsConflict(t *testing.T) {
	t.Parallel()
	companyID := uuid.New()
	store := &fakeWorkerStore{}
	ledger := &fakeMembershipLedger{createTxErr: memberships.ErrDuplicate}
	h := NewHandler(store, fakeUserDirectory{}, ledger, nil, zap.NewNop())
	r := newCompanyRouter(h, companyID)

	w := postJSON(r, "/companies/"+companyID.String()+"/workers", enrollBody())
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (body %s)", w.Code, w.Body.String())
	}
	if store.tx == nil || store.tx.committed {
		t.Error("duplicate membership must not commit")
	}
}

package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/internal/memberships"
	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/response"
	"github.com/sitesafe/backend/pkg/storage"
	"github.com/sitesafe/backend/pkg/utils"
)

// WorkerStore is the slice of the worker repository the handler uses.
// Satisfied by *Repository.
type WorkerStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, w *models.Worker) (*models.Worker, error)
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.Worker) (*models.Worker, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Worker, error)
	InRoster(ctx context.Context, companyID uuid.UUID, nationalIDHash []byte) (bool, error)
	InCompany(ctx context.Context, companyID, workerID uuid.UUID) (bool, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]models.Worker, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.WorkerStatus) error
	SetPhotoURL(ctx context.Context, id uuid.UUID, url string) error
	RecomputeForUser(ctx context.Context, userID uuid.UUID) error
}

// UserDirectory creates worker logins. Satisfied by *auth.Repository.
type UserDirectory interface {
	Create(ctx context.Context, email, passwordHash, fullName string, nationalIDHash []byte) (*models.User, error)
	CreateTx(ctx context.Context, tx pgx.Tx, email, passwordHash, fullName string, nationalIDHash []byte) (*models.User, error)
}

// MembershipLedger is the slice of the membership ledger the handler uses.
// Satisfied by *memberships.Repository.
type MembershipLedger interface {
	Create(ctx context.Context, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error)
	CreateTx(ctx context.Context, tx pgx.Tx, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error)
	Reactivate(ctx context.Context, companyID, userID uuid.UUID, role models.Role) (*models.Membership, error)
	Decide(ctx context.Context, companyID, userID uuid.UUID, approve bool) (*models.Membership, error)
}

// Handler handles worker identity binding endpoints.
type Handler struct {
	repo   WorkerStore
	users  UserDirectory
	ledger MembershipLedger
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a workers handler. s3 may be nil when object storage is
// not configured; photo URL endpoints then return 503-equivalent errors.
func NewHandler(repo WorkerStore, users UserDirectory, ledger MembershipLedger, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, users: users, ledger: ledger, s3: s3, logger: logger}
}

// RegisterRequest is the body for worker registration. Email and password are
// optional together: without them the worker has no platform login.
type RegisterRequest struct {
	NationalID string `json:"national_id" binding:"required"`
	Name       string `json:"name"`
	DOB        string `json:"dob"` // YYYY-MM-DD
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Password   string `json:"password" binding:"omitempty,min=8"`
}

func (req *RegisterRequest) dob() (*time.Time, error) {
	if req.DOB == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", req.DOB)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RegisterIndependent handles POST /workers/register (public). Creates a
// worker profile with no membership; with credentials it also creates the
// login so the worker can later link to companies.
func (h *Handler) RegisterIndependent(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "national_id is required")
		return
	}
	if (req.Email == "") != (req.Password == "") {
		response.BadRequest(c, "email and password must be provided together")
		return
	}
	dob, err := req.dob()
	if err != nil {
		response.BadRequest(c, "dob must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	idHash := utils.HashNationalID(req.NationalID)

	var userID *uuid.UUID
	if req.Email != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			response.Internal(c, "failed to register worker")
			return
		}
		user, err := h.users.Create(ctx, req.Email, hash, req.Name, idHash)
		if err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				response.Conflict(c, "email already registered")
				return
			}
			h.logger.Error("create worker user", zap.Error(err))
			response.Internal(c, "failed to register worker")
			return
		}
		userID = &user.ID
	}

	w, err := h.repo.Create(ctx, &models.Worker{
		UserID:         userID,
		NationalIDHash: idHash,
		Name:           req.Name,
		DOB:            dob,
		Phone:          req.Phone,
		Status:         models.WorkerIndependent,
	})
	if err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			response.Conflict(c, "phone number already registered")
			return
		}
		h.logger.Error("create worker", zap.Error(err))
		response.Internal(c, "failed to register worker")
		return
	}
	response.Created(c, w)
}

// registerWithCompany creates the login, the worker profile and the company
// membership in one transaction, so a failed step leaves no active worker
// without a membership behind.
func (h *Handler) registerWithCompany(ctx context.Context, req *RegisterRequest, dob *time.Time, companyID uuid.UUID, status models.MembershipStatus) (*models.Worker, *models.Membership, error) {
	idHash := utils.HashNationalID(req.NationalID)
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	user, err := h.users.CreateTx(ctx, tx, req.Email, hash, req.Name, idHash)
	if err != nil {
		return nil, nil, err
	}
	w, err := h.repo.CreateTx(ctx, tx, &models.Worker{
		UserID:         &user.ID,
		NationalIDHash: idHash,
		Name:           req.Name,
		DOB:            dob,
		Phone:          req.Phone,
		Status:         models.WorkerActive,
	})
	if err != nil {
		return nil, nil, err
	}
	m, err := h.ledger.CreateTx(ctx, tx, companyID, user.ID, models.RoleWorker, status)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return w, m, nil
}

func registerConflict(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		response.Conflict(c, "email already registered")
	case errors.Is(err, ErrPhoneTaken):
		response.Conflict(c, "phone number already registered")
	case errors.Is(err, memberships.ErrDuplicate):
		response.Conflict(c, "membership already exists for this user and company")
	default:
		return false
	}
	return true
}

// SelfRegister handles POST /workers/:companyId/register (public). Like
// RegisterIndependent but immediately links to the company with a pending
// membership, which requires a login.
func (h *Handler) SelfRegister(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		response.BadRequest(c, "invalid company id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "national_id is required")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(c, "email and password are required to join a company")
		return
	}
	dob, err := req.dob()
	if err != nil {
		response.BadRequest(c, "dob must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	dup, err := h.repo.InRoster(ctx, companyID, utils.HashNationalID(req.NationalID))
	if err != nil {
		h.logger.Error("roster lookup", zap.Error(err))
		response.Internal(c, "failed to register worker")
		return
	}
	if dup {
		response.Conflict(c, "worker already registered in this company")
		return
	}

	w, m, err := h.registerWithCompany(ctx, &req, dob, companyID, models.MembershipPending)
	if err != nil {
		if registerConflict(c, err) {
			return
		}
		h.logger.Error("register worker", zap.Error(err))
		response.Internal(c, "failed to register worker")
		return
	}
	response.Created(c, gin.H{"worker": w, "membership": m})
}

// LinkRequest is the body for POST /workers/link.
type LinkRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
}

// Link handles POST /workers/link (authenticated worker). Creates a pending
// membership — or reactivates a rejected one — and marks the worker active.
// Active only states "has at least one live relationship"; it does not imply
// approval.
func (h *Handler) Link(c *gin.Context) {
	claims := auth.MustClaims(c)
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "company_id is required")
		return
	}

	ctx := c.Request.Context()
	w, err := h.repo.GetByUserID(ctx, claims.UserID)
	if err != nil {
		response.NotFound(c, "no worker profile for this account")
		return
	}

	dup, err := h.repo.InRoster(ctx, req.CompanyID, w.NationalIDHash)
	if err != nil {
		h.logger.Error("roster lookup", zap.Error(err))
		response.Internal(c, "failed to link worker")
		return
	}
	if dup {
		response.Conflict(c, "worker already registered in this company")
		return
	}

	m, err := h.ledger.Create(ctx, req.CompanyID, claims.UserID, models.RoleWorker, models.MembershipPending)
	if errors.Is(err, memberships.ErrDuplicate) {
		// The pair is unique; a rejected membership reactivates to pending.
		m, err = h.ledger.Reactivate(ctx, req.CompanyID, claims.UserID, models.RoleWorker)
		if errors.Is(err, memberships.ErrNotFound) {
			response.Conflict(c, "membership already exists for this company")
			return
		}
	}
	if err != nil {
		h.logger.Error("link worker", zap.Error(err))
		response.Internal(c, "failed to link worker")
		return
	}

	if err := h.repo.SetStatus(ctx, w.ID, models.WorkerActive); err != nil {
		h.logger.Error("set worker status", zap.Error(err))
	}
	response.OK(c, m)
}

// Enroll handles POST /companies/:companyId/workers (admin, manager). Direct
// enrollment bypasses the pending step: the membership is approved
// immediately. Credentials are required so the membership has a user.
func (h *Handler) Enroll(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "national_id is required")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(c, "email and password are required for enrollment")
		return
	}
	dob, err := req.dob()
	if err != nil {
		response.BadRequest(c, "dob must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	dup, err := h.repo.InRoster(ctx, companyID, utils.HashNationalID(req.NationalID))
	if err != nil {
		h.logger.Error("roster lookup", zap.Error(err))
		response.Internal(c, "failed to enroll worker")
		return
	}
	if dup {
		response.Conflict(c, "worker already registered in this company")
		return
	}

	w, m, err := h.registerWithCompany(ctx, &req, dob, companyID, models.MembershipApproved)
	if err != nil {
		if registerConflict(c, err) {
			return
		}
		h.logger.Error("enroll worker", zap.Error(err))
		response.Internal(c, "failed to enroll worker")
		return
	}
	response.Created(c, gin.H{"worker": w, "membership": m})
}

// ListRoster handles GET /companies/:companyId/workers (admin, manager).
func (h *Handler) ListRoster(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.repo.ListByCompany(c.Request.Context(), middleware.CompanyID(c), limit, offset)
	if err != nil {
		h.logger.Error("list roster", zap.Error(err))
		response.Internal(c, "failed to list workers")
		return
	}
	response.OK(c, response.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

// Unlink handles POST /companies/:companyId/workers/:workerId/unlink (admin,
// manager). Ends the membership (rejected + ended) and recomputes the worker
// status from the memberships that remain.
func (h *Handler) Unlink(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		response.BadRequest(c, "invalid worker id")
		return
	}

	ctx := c.Request.Context()
	w, err := h.repo.GetByID(ctx, workerID)
	if err != nil {
		response.NotFound(c, "worker not found")
		return
	}
	if w.UserID == nil {
		response.NotFound(c, "worker has no linked account")
		return
	}

	if _, err := h.ledger.Decide(ctx, companyID, *w.UserID, false); err != nil {
		switch {
		case errors.Is(err, memberships.ErrNotFound):
			response.NotFound(c, "membership not found")
		case errors.Is(err, memberships.ErrTerminal):
			response.Conflict(c, "membership is already rejected")
		default:
			h.logger.Error("unlink worker", zap.Error(err))
			response.Internal(c, "failed to unlink worker")
		}
		return
	}

	if err := h.repo.RecomputeForUser(ctx, *w.UserID); err != nil {
		h.logger.Error("recompute worker status", zap.Error(err))
	}
	w, err = h.repo.GetByID(ctx, workerID)
	if err != nil {
		response.Internal(c, "failed to reload worker")
		return
	}
	response.OK(c, w)
}

// Me handles GET /workers/me (authenticated). Returns the caller's worker
// profile.
func (h *Handler) Me(c *gin.Context) {
	claims := auth.MustClaims(c)
	w, err := h.repo.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "no worker profile for this account")
		return
	}
	response.OK(c, w)
}

// rosterWorker loads a worker only if it is on the authorized company's
// roster. A worker outside the company reads as not found, so photo
// endpoints cannot touch another tenant's workers.
func (h *Handler) rosterWorker(c *gin.Context) (*models.Worker, bool) {
	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		response.BadRequest(c, "invalid worker id")
		return nil, false
	}
	ctx := c.Request.Context()
	ok, err := h.repo.InCompany(ctx, middleware.CompanyID(c), workerID)
	if err != nil {
		h.logger.Error("roster check", zap.Error(err))
		response.Internal(c, "failed to load worker")
		return nil, false
	}
	if !ok {
		response.NotFound(c, "worker not found")
		return nil, false
	}
	w, err := h.repo.GetByID(ctx, workerID)
	if err != nil {
		response.NotFound(c, "worker not found")
		return nil, false
	}
	return w, true
}

// UploadPhoto handles POST /companies/:companyId/workers/:workerId/photo
// (admin, manager). Server-side multipart upload for clients that cannot use
// pre-signed URLs. Replacing a photo removes the previous object.
func (h *Handler) UploadPhoto(c *gin.Context) {
	w, ok := h.rosterWorker(c)
	if !ok {
		return
	}
	if h.s3 == nil {
		response.Internal(c, "object storage is not configured")
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		response.BadRequest(c, "photo file is required")
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	key := storage.PhotoKey(w.ID.String(), header.Filename)
	contentType := header.Header.Get("Content-Type")
	url, err := h.s3.Upload(ctx, h.s3.PhotosBucket(), key, contentType, file, header.Size)
	if err != nil {
		h.logger.Error("upload photo", zap.Error(err))
		response.Internal(c, "failed to upload photo")
		return
	}
	if w.PhotoURL != "" && w.PhotoURL != key {
		if err := h.s3.DeleteObject(ctx, h.s3.PhotosBucket(), w.PhotoURL); err != nil {
			h.logger.Warn("delete previous photo", zap.Error(err), zap.String("key", w.PhotoURL))
		}
	}
	if err := h.repo.SetPhotoURL(ctx, w.ID, key); err != nil {
		h.logger.Error("record photo key", zap.Error(err))
		response.Internal(c, "failed to record photo")
		return
	}
	response.OK(c, gin.H{"url": url, "key": key})
}

// PhotoUploadURLRequest is the body for the photo upload URL endpoint.
type PhotoUploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PhotoUploadURL handles POST /companies/:companyId/workers/:workerId/photo-upload-url
// (admin, manager). Returns a pre-signed PUT URL; the key is recorded only
// when the client confirms the upload, so an abandoned URL leaves no photo
// reference pointing at a missing object.
func (h *Handler) PhotoUploadURL(c *gin.Context) {
	w, ok := h.rosterWorker(c)
	if !ok {
		return
	}
	if h.s3 == nil {
		response.Internal(c, "object storage is not configured")
		return
	}
	var req PhotoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename and content_type are required")
		return
	}

	key := storage.PhotoKey(w.ID.String(), req.Filename)
	uploadURL, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), h.s3.PhotosBucket(), key, req.ContentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign photo upload", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{"upload_url": uploadURL, "key": key})
}

// ConfirmPhotoRequest is the body for the photo confirm endpoint.
type ConfirmPhotoRequest struct {
	Key string `json:"key" binding:"required"`
}

// ConfirmPhoto handles POST /companies/:companyId/workers/:workerId/photo/confirm
// (admin, manager). Records a photo key after the client has PUT the object
// to its pre-signed URL. Only keys under the worker's own photo prefix are
// accepted.
func (h *Handler) ConfirmPhoto(c *gin.Context) {
	w, ok := h.rosterWorker(c)
	if !ok {
		return
	}
	var req ConfirmPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "key is required")
		return
	}
	if !strings.HasPrefix(req.Key, storage.FolderPhotos+"/"+w.ID.String()) {
		response.BadRequest(c, "key does not belong to this worker")
		return
	}

	ctx := c.Request.Context()
	if w.PhotoURL != "" && w.PhotoURL != req.Key && h.s3 != nil {
		if err := h.s3.DeleteObject(ctx, h.s3.PhotosBucket(), w.PhotoURL); err != nil {
			h.logger.Warn("delete previous photo", zap.Error(err), zap.String("key", w.PhotoURL))
		}
	}
	if err := h.repo.SetPhotoURL(ctx, w.ID, req.Key); err != nil {
		h.logger.Error("record photo key", zap.Error(err))
		response.Internal(c, "failed to record photo")
		return
	}
	response.OK(c, gin.H{"key": req.Key})
}

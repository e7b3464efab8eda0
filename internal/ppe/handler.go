package ppe

import (
	"encoding/hex"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/internal/tasks"
	"github.com/sitesafe/backend/pkg/response"
	"github.com/sitesafe/backend/pkg/storage"
)

// Handler handles protective-equipment check endpoints. s3 may be nil when
// object storage is not configured; evidence URL endpoints then fail.
type Handler struct {
	repo   *Repository
	tasks  *tasks.Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a PPE handler.
func NewHandler(repo *Repository, tasks *tasks.Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, tasks: tasks, s3: s3, logger: logger}
}

// SubmitRequest is the body for POST .../tasks/:taskId/checks.
type SubmitRequest struct {
	WorkerID    uuid.UUID `json:"worker_id" binding:"required"`
	Result      string    `json:"result" binding:"required"`
	JSONBlobURL string    `json:"json_blob_url"`
}

// Submit handles POST /companies/:companyId/tasks/:taskId/checks
// (manager, subcontractor). The evidence hash covers the canonical payload and
// is returned hex-encoded so clients can verify stored evidence later.
func (h *Handler) Submit(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	claims := auth.MustClaims(c)
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "worker_id and result are required")
		return
	}
	if !models.ValidCheckResult(req.Result) {
		response.BadRequest(c, "result must be pass, fail or partial")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.tasks.Get(ctx, companyID, taskID); err != nil {
		response.NotFound(c, "task not found")
		return
	}
	inCompany, err := h.tasks.WorkerInCompany(ctx, companyID, req.WorkerID)
	if err != nil {
		h.logger.Error("worker tenant lookup", zap.Error(err))
		response.Internal(c, "failed to record check")
		return
	}
	if !inCompany {
		response.NotFound(c, "worker not found")
		return
	}

	chk, err := h.repo.Create(ctx, &models.PPECheck{
		CompanyID:    companyID,
		TaskID:       taskID,
		WorkerID:     req.WorkerID,
		CheckedByID:  claims.UserID,
		Result:       models.CheckResult(req.Result),
		JSONBlobURL:  req.JSONBlobURL,
		EvidenceHash: EvidenceHash(taskID, req.WorkerID, req.Result, req.JSONBlobURL),
	})
	if err != nil {
		h.logger.Error("create check", zap.Error(err))
		response.Internal(c, "failed to record check")
		return
	}
	response.Created(c, gin.H{
		"check":         chk,
		"evidence_hash": hex.EncodeToString(chk.EvidenceHash),
	})
}

// List handles GET /companies/:companyId/tasks/:taskId/checks
// (admin, manager, subcontractor).
func (h *Handler) List(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, total, err := h.repo.ListByTask(c.Request.Context(), companyID, taskID, limit, offset)
	if err != nil {
		h.logger.Error("list checks", zap.Error(err))
		response.Internal(c, "failed to list checks")
		return
	}
	response.OK(c, response.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

// EvidenceUploadURLRequest is the body for the evidence upload URL endpoint.
type EvidenceUploadURLRequest struct {
	CheckID     uuid.UUID `json:"check_id" binding:"required"`
	ContentType string    `json:"content_type" binding:"required"`
}

// EvidenceUploadURL handles POST /companies/:companyId/checks/evidence-upload-url
// (manager, subcontractor). Returns a pre-signed PUT URL for the evidence blob.
func (h *Handler) EvidenceUploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "object storage is not configured")
		return
	}
	companyID := middleware.CompanyID(c)
	var req EvidenceUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "check_id and content_type are required")
		return
	}
	if !storage.ValidateEvidenceType(req.ContentType) {
		response.BadRequest(c, "unsupported evidence content type")
		return
	}

	key := storage.EvidenceKey(companyID.String(), req.CheckID.String(), req.ContentType)
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), h.s3.EvidenceBucket(), key, req.ContentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign evidence upload", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "key": key})
}

// EvidenceDownloadURL handles GET /companies/:companyId/checks/evidence-download-url?key=
// (admin, manager, subcontractor). The key must stay inside the tenant's
// evidence prefix.
func (h *Handler) EvidenceDownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "object storage is not configured")
		return
	}
	companyID := middleware.CompanyID(c)
	key := c.Query("key")
	prefix := storage.FolderEvidence + "/" + companyID.String() + "/"
	if key == "" || len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		response.BadRequest(c, "key must belong to this company's evidence")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.EvidenceBucket(), key, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign evidence download", zap.Error(err))
		response.Internal(c, "failed to create download url")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}

package tasks

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/internal/projects"
	"github.com/sitesafe/backend/pkg/response"
)

// Handler handles task and assignment endpoints.
type Handler struct {
	repo     *Repository
	projects *projects.Repository
	logger   *zap.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(repo *Repository, projects *projects.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, projects: projects, logger: logger}
}

// CreateRequest is the body for POST .../projects/:projectId/tasks.
type CreateRequest struct {
	WorkDate     string     `json:"work_date" binding:"required"` // YYYY-MM-DD
	Title        string     `json:"title"`
	Shift        string     `json:"shift"`
	Notes        string     `json:"notes"`
	SupervisorID *uuid.UUID `json:"supervisor_id"`
}

// Create handles POST /companies/:companyId/projects/:projectId/tasks
// (admin, manager).
func (h *Handler) Create(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "work_date is required")
		return
	}
	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		response.BadRequest(c, "work_date must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.projects.Get(ctx, companyID, projectID); err != nil {
		response.NotFound(c, "project not found")
		return
	}

	t, err := h.repo.Create(ctx, &models.Task{
		CompanyID:    companyID,
		ProjectID:    projectID,
		WorkDate:     workDate,
		Title:        req.Title,
		Shift:        req.Shift,
		Notes:        req.Notes,
		SupervisorID: req.SupervisorID,
	})
	if err != nil {
		h.logger.Error("create task", zap.Error(err))
		response.Internal(c, "failed to create task")
		return
	}
	response.Created(c, t)
}

// Get handles GET /companies/:companyId/tasks/:taskId.
func (h *Handler) Get(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	t, err := h.repo.Get(c.Request.Context(), middleware.CompanyID(c), taskID)
	if err != nil {
		response.NotFound(c, "task not found")
		return
	}
	response.OK(c, t)
}

// List handles GET /companies/:companyId/projects/:projectId/tasks. Supports
// ?from=&to= date bounds and pagination.
func (h *Handler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	var from, to time.Time
	if s := c.Query("from"); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			response.BadRequest(c, "from must be YYYY-MM-DD")
			return
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			response.BadRequest(c, "to must be YYYY-MM-DD")
			return
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, total, err := h.repo.ListByProject(c.Request.Context(), middleware.CompanyID(c), projectID, from, to, limit, offset)
	if err != nil {
		h.logger.Error("list tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, response.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

// Update handles PATCH /companies/:companyId/tasks/:taskId (admin, manager).
func (h *Handler) Update(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid update payload")
		return
	}
	t, err := h.repo.Update(c.Request.Context(), middleware.CompanyID(c), taskID, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("update task", zap.Error(err))
		response.Internal(c, "failed to update task")
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /companies/:companyId/tasks/:taskId (admin, manager).
func (h *Handler) Delete(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), middleware.CompanyID(c), taskID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("delete task", zap.Error(err))
		response.Internal(c, "failed to delete task")
		return
	}
	response.NoContent(c)
}

// AssignRequest is the body for POST .../tasks/:taskId/assignments.
type AssignRequest struct {
	WorkerID uuid.UUID `json:"worker_id" binding:"required"`
}

// Assign handles POST /companies/:companyId/tasks/:taskId/assignments
// (admin, manager). The worker must be on the company's roster.
func (h *Handler) Assign(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "worker_id is required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.Get(ctx, companyID, taskID); err != nil {
		response.NotFound(c, "task not found")
		return
	}
	ok, err := h.repo.WorkerInCompany(ctx, companyID, req.WorkerID)
	if err != nil {
		h.logger.Error("worker tenant lookup", zap.Error(err))
		response.Internal(c, "failed to assign worker")
		return
	}
	if !ok {
		response.NotFound(c, "worker not found")
		return
	}

	a, err := h.repo.Assign(ctx, taskID, req.WorkerID)
	if err != nil {
		if errors.Is(err, ErrAlreadyAssigned) {
			response.Conflict(c, "worker already assigned to this task")
			return
		}
		h.logger.Error("assign worker", zap.Error(err))
		response.Internal(c, "failed to assign worker")
		return
	}
	response.Created(c, a)
}

// ListAssigned handles GET /companies/:companyId/tasks/:taskId/assignments.
func (h *Handler) ListAssigned(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.Get(ctx, middleware.CompanyID(c), taskID); err != nil {
		response.NotFound(c, "task not found")
		return
	}
	list, err := h.repo.ListAssigned(ctx, taskID)
	if err != nil {
		h.logger.Error("list assignments", zap.Error(err))
		response.Internal(c, "failed to list assignments")
		return
	}
	response.OK(c, list)
}

// Unassign handles DELETE /companies/:companyId/tasks/:taskId/assignments/:workerId
// (admin, manager).
func (h *Handler) Unassign(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		response.BadRequest(c, "invalid worker id")
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.Get(ctx, middleware.CompanyID(c), taskID); err != nil {
		response.NotFound(c, "task not found")
		return
	}
	if err := h.repo.Unassign(ctx, taskID, workerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "assignment not found")
			return
		}
		h.logger.Error("unassign worker", zap.Error(err))
		response.Internal(c, "failed to remove assignment")
		return
	}
	response.NoContent(c)
}

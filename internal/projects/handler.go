package projects

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/pkg/response"
)

// Handler handles tenant-scoped project endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a projects handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// CreateRequest is the body for POST /companies/:companyId/projects.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create handles POST /companies/:companyId/projects (admin, manager).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	p, err := h.repo.Create(c.Request.Context(), middleware.CompanyID(c), req.Name, req.Description)
	if err != nil {
		h.logger.Error("create project", zap.Error(err))
		response.Internal(c, "failed to create project")
		return
	}
	response.Created(c, p)
}

// Get handles GET /companies/:companyId/projects/:projectId.
func (h *Handler) Get(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	p, err := h.repo.Get(c.Request.Context(), middleware.CompanyID(c), projectID)
	if err != nil {
		response.NotFound(c, "project not found")
		return
	}
	response.OK(c, p)
}

// List handles GET /companies/:companyId/projects.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.repo.List(c.Request.Context(), middleware.CompanyID(c), limit, offset)
	if err != nil {
		h.logger.Error("list projects", zap.Error(err))
		response.Internal(c, "failed to list projects")
		return
	}
	response.OK(c, response.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

// Update handles PATCH /companies/:companyId/projects/:projectId (admin, manager).
func (h *Handler) Update(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid update payload")
		return
	}
	proj, err := h.repo.Update(c.Request.Context(), middleware.CompanyID(c), projectID, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("update project", zap.Error(err))
		response.Internal(c, "failed to update project")
		return
	}
	response.OK(c, proj)
}

// Delete handles DELETE /companies/:companyId/projects/:projectId (admin).
func (h *Handler) Delete(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	if err := h.repo.SoftDelete(c.Request.Context(), middleware.CompanyID(c), projectID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("delete project", zap.Error(err))
		response.Internal(c, "failed to delete project")
		return
	}
	response.NoContent(c)
}

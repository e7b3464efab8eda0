package memberships

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/response"
	"github.com/sitesafe/backend/pkg/utils"
)

// UserDirectory is the slice of user persistence the member directory needs.
// Satisfied by the auth repository.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string, nationalIDHash []byte) (*models.User, error)
}

// WorkerStatusRecomputer recomputes a worker's status from remaining live
// memberships after a membership ends. Satisfied by the workers repository.
type WorkerStatusRecomputer interface {
	RecomputeForUser(ctx context.Context, userID uuid.UUID) error
}

// Handler handles the company member directory.
type Handler struct {
	repo       *Repository
	users      UserDirectory
	recomputer WorkerStatusRecomputer
	logger     *zap.Logger
}

// NewHandler creates a memberships handler.
func NewHandler(repo *Repository, users UserDirectory, recomputer WorkerStatusRecomputer, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, users: users, recomputer: recomputer, logger: logger}
}

// AddMemberRequest is the body for POST /companies/:companyId/members.
// Password is required only when the email has no account yet.
type AddMemberRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role" binding:"required"`
}

// Add handles POST /companies/:companyId/members (admin). Administrative add
// creates the membership directly in approved status; a duplicate pair fails
// Conflict regardless of role.
func (h *Handler) Add(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and role are required")
		return
	}
	if !models.ValidRole(req.Role) {
		response.BadRequest(c, "invalid role")
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if req.Password == "" {
			response.BadRequest(c, "password is required for a new account")
			return
		}
		hash, hashErr := utils.HashPassword(req.Password)
		if hashErr != nil {
			response.Internal(c, "failed to add member")
			return
		}
		user, err = h.users.Create(ctx, req.Email, hash, req.FullName, nil)
		if err != nil {
			h.logger.Error("create member user", zap.Error(err))
			response.Internal(c, "failed to add member")
			return
		}
	}

	m, err := h.repo.Create(ctx, companyID, user.ID, models.Role(req.Role), models.MembershipApproved)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.Conflict(c, "membership already exists for this user and company")
			return
		}
		h.logger.Error("create membership", zap.Error(err))
		response.Internal(c, "failed to add member")
		return
	}
	response.Created(c, m)
}

// List handles GET /companies/:companyId/members (admin, manager). Supports
// ?role= and ?limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	role := c.Query("role")
	if role != "" && !models.ValidRole(role) {
		response.BadRequest(c, "invalid role filter")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, total, err := h.repo.ListByCompany(c.Request.Context(), companyID, role, limit, offset)
	if err != nil {
		h.logger.Error("list members", zap.Error(err))
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, response.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

// DecideRequest is the body for PATCH /companies/:companyId/members/:userId.
type DecideRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
}

// Decide handles PATCH /companies/:companyId/members/:userId (admin).
// Rejecting is terminal and triggers a worker status recompute.
func (h *Handler) Decide(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "decision must be approve or reject")
		return
	}

	m, err := h.repo.Decide(c.Request.Context(), companyID, userID, req.Decision == "approve")
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "membership not found")
		case errors.Is(err, ErrTerminal):
			response.Conflict(c, "membership is already rejected")
		default:
			h.logger.Error("decide membership", zap.Error(err))
			response.Internal(c, "failed to update membership")
		}
		return
	}
	if m.Status == models.MembershipRejected {
		if err := h.recomputer.RecomputeForUser(c.Request.Context(), userID); err != nil {
			h.logger.Error("recompute worker status", zap.Error(err), zap.String("user_id", userID.String()))
		}
	}
	response.OK(c, m)
}

// Remove handles DELETE /companies/:companyId/members/:userId (admin). The
// ledger keeps the record: removal rejects and ends the membership rather
// than deleting the row.
func (h *Handler) Remove(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	_, err = h.repo.Decide(c.Request.Context(), companyID, userID, false)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "membership not found")
		case errors.Is(err, ErrTerminal):
			response.Conflict(c, "membership is already rejected")
		default:
			h.logger.Error("remove membership", zap.Error(err))
			response.Internal(c, "failed to remove member")
		}
		return
	}
	if err := h.recomputer.RecomputeForUser(c.Request.Context(), userID); err != nil {
		h.logger.Error("recompute worker status", zap.Error(err), zap.String("user_id", userID.String()))
	}
	response.NoContent(c)
}

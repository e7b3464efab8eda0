package invites

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/internal/memberships"
	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/queue"
	"github.com/sitesafe/backend/pkg/response"
)

// inviteTTL is how long an invite stays acceptable.
const inviteTTL = 7 * 24 * time.Hour

// InviteStore is the slice of the invite repository the handler uses.
// Satisfied by *Repository.
type InviteStore interface {
	Create(ctx context.Context, inv *models.Invite) (*models.Invite, error)
	GetByToken(ctx context.Context, token string) (*models.Invite, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]models.Invite, int, error)
	SetStatus(ctx context.Context, companyID, id uuid.UUID, status models.InviteStatus) (*models.Invite, error)
}

// CompanyDirectory resolves company names for invite emails. Satisfied by
// *companies.Repository.
type CompanyDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// MembershipLedger creates the membership an accepted invite grants.
// Satisfied by *memberships.Repository.
type MembershipLedger interface {
	Create(ctx context.Context, companyID, userID uuid.UUID, role models.Role, status models.MembershipStatus) (*models.Membership, error)
}

// UserDirectory looks up the accepting user's account. Satisfied by
// *auth.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler handles company invites. The email itself is sent asynchronously by
// the queue worker; queue may be nil when Redis is not configured, in which
// case invites are created without a notification.
type Handler struct {
	repo   InviteStore
	comps  CompanyDirectory
	ledger MembershipLedger
	users  UserDirectory
	jobs   *queue.Queue
	logger *zap.Logger
}

// NewHandler creates an invites handler.
func NewHandler(repo InviteStore, comps CompanyDirectory, ledger MembershipLedger, users UserDirectory, jobs *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, comps: comps, ledger: ledger, users: users, jobs: jobs, logger: logger}
}

func newInviteToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateRequest is the body for POST /companies/:companyId/invites.
type CreateRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// Create handles POST /companies/:companyId/invites (admin).
func (h *Handler) Create(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	claims := auth.MustClaims(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and role are required")
		return
	}
	if !models.ValidRole(req.Role) {
		response.BadRequest(c, "invalid role")
		return
	}

	ctx := c.Request.Context()
	co, err := h.comps.GetByID(ctx, companyID)
	if err != nil {
		response.NotFound(c, "company not found")
		return
	}

	token, err := newInviteToken()
	if err != nil {
		response.Internal(c, "failed to create invite")
		return
	}
	inv, err := h.repo.Create(ctx, &models.Invite{
		CompanyID: companyID,
		Email:     auth.NormalizeEmail(req.Email),
		Role:      models.Role(req.Role),
		Token:     token,
		ExpiresAt: time.Now().Add(inviteTTL),
		CreatedBy: &claims.UserID,
	})
	if err != nil {
		h.logger.Error("create invite", zap.Error(err))
		response.Internal(c, "failed to create invite")
		return
	}

	if h.jobs != nil {
		err = h.jobs.EnqueueInviteEmail(ctx, queue.InviteEmailPayload{
			InviteID:       inv.ID,
			CompanyID:      companyID,
			CompanyName:    co.Name,
			RecipientEmail: inv.Email,
			Role:           string(inv.Role),
			Token:          token,
			ExpiresAt:      inv.ExpiresAt,
		})
		if err != nil {
			h.logger.Error("enqueue invite email", zap.Error(err), zap.String("invite_id", inv.ID.String()))
		}
	}
	response.Created(c, gin.H{"invite": inv, "token": token})
}

// List handles GET /companies/:companyId/invites (admin).
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.repo.ListByCompany(c.Request.Context(), middleware.CompanyID(c), limit, offset)
	if err != nil {
		h.logger.Error("list invites", zap.Error(err))
		response.Internal(c, "failed to list invites")
		return
	}
	response.OK(c, response.Page{Items: list, Total: total, Limit: limit, Offset: offset})
}

// AcceptRequest is the body for POST /invites/accept.
type AcceptRequest struct {
	Token string `json:"token" binding:"required"`
}

// Accept handles POST /invites/accept (authenticated). The caller's account
// email must match the invited email; accepting creates an approved
// membership with the invited role.
func (h *Handler) Accept(c *gin.Context) {
	claims := auth.MustClaims(c)
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}

	ctx := c.Request.Context()
	inv, err := h.repo.GetByToken(ctx, req.Token)
	if err != nil {
		response.NotFound(c, "invite not found")
		return
	}
	if inv.Status != models.InvitePending {
		response.Conflict(c, "invite is no longer pending")
		return
	}
	if time.Now().After(inv.ExpiresAt) {
		if _, err := h.repo.SetStatus(ctx, inv.CompanyID, inv.ID, models.InviteExpired); err != nil && !errors.Is(err, ErrNotPending) {
			h.logger.Error("expire invite", zap.Error(err), zap.String("invite_id", inv.ID.String()))
		}
		response.Conflict(c, "invite has expired")
		return
	}

	user, err := h.users.GetByID(ctx, claims.UserID)
	if err != nil {
		response.Unauthorized(c, "account not found")
		return
	}
	if auth.NormalizeEmail(user.Email) != inv.Email {
		response.Forbidden(c, "invite was issued to a different email")
		return
	}

	m, err := h.ledger.Create(ctx, inv.CompanyID, user.ID, inv.Role, models.MembershipApproved)
	if err != nil {
		if errors.Is(err, memberships.ErrDuplicate) {
			response.Conflict(c, "membership already exists for this company")
			return
		}
		h.logger.Error("create membership from invite", zap.Error(err))
		response.Internal(c, "failed to accept invite")
		return
	}

	if _, err := h.repo.SetStatus(ctx, inv.CompanyID, inv.ID, models.InviteAccepted); err != nil {
		h.logger.Error("mark invite accepted", zap.Error(err), zap.String("invite_id", inv.ID.String()))
	}
	response.OK(c, m)
}

// Revoke handles POST /companies/:companyId/invites/:inviteId/revoke (admin).
// The update is scoped to the authorized company, so another company's invite
// id reads as not found.
func (h *Handler) Revoke(c *gin.Context) {
	inviteID, err := uuid.Parse(c.Param("inviteId"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}
	inv, err := h.repo.SetStatus(c.Request.Context(), middleware.CompanyID(c), inviteID, models.InviteRevoked)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "invite not found")
		case errors.Is(err, ErrNotPending):
			response.Conflict(c, "invite is no longer pending")
		default:
			h.logger.Error("revoke invite", zap.Error(err))
			response.Internal(c, "failed to revoke invite")
		}
		return
	}
	response.OK(c, inv)
}

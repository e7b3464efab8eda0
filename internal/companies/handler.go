package companies

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/auth"
	"github.com/sitesafe/backend/internal/memberships"
	"github.com/sitesafe/backend/internal/middleware"
	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/response"
	"github.com/sitesafe/backend/pkg/utils"
)

// RegisterRequest is the body for POST /companies/register.
type RegisterRequest struct {
	Company struct {
		Name           string `json:"name" binding:"required"`
		RegNumber      string `json:"reg_number" binding:"required"`
		Domain         string `json:"domain"`
		AddressLine1   string `json:"address_line1"`
		AddressCity    string `json:"address_city"`
		AddressCountry string `json:"address_country"`
		ContactEmail   string `json:"contact_email"`
		ContactPhone   string `json:"contact_phone"`
		Description    string `json:"description"`
	} `json:"company" binding:"required"`
	Admin struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		FullName string `json:"full_name"`
	} `json:"admin" binding:"required"`
}

// RegisterResponse is the body returned after company registration.
type RegisterResponse struct {
	CompanyID uuid.UUID            `json:"company_id"`
	Status    models.CompanyStatus `json:"status"`
	Token     string               `json:"token"`
}

// Handler handles company lifecycle endpoints.
type Handler struct {
	repo   *Repository
	ledger *memberships.Repository
	users  *auth.Repository
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewHandler creates a companies handler.
func NewHandler(repo *Repository, ledger *memberships.Repository, users *auth.Repository, tokens *auth.TokenService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, ledger: ledger, users: users, tokens: tokens, logger: logger}
}

// Register handles POST /companies/register (public). A compound transaction:
// pending company + admin user + approved admin membership must all exist
// together, or none of them are observable. The credential is issued after
// commit, bound to the new company.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "company.name, company.reg_number, admin.email and admin.password (min 8) are required")
		return
	}

	regNumber := models.NormalizeRegNumber(req.Company.RegNumber)
	if regNumber == "" {
		response.BadRequest(c, "company.reg_number must contain digits")
		return
	}

	passwordHash, err := utils.HashPassword(req.Admin.Password)
	if err != nil {
		response.Internal(c, "failed to process registration")
		return
	}

	ctx := c.Request.Context()
	tx, err := h.repo.Pool().Begin(ctx)
	if err != nil {
		h.logger.Error("begin registration tx", zap.Error(err))
		response.Internal(c, "failed to register company")
		return
	}
	defer tx.Rollback(ctx)

	user, err := h.users.CreateTx(ctx, tx, req.Admin.Email, passwordHash, req.Admin.FullName, nil)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			response.Conflict(c, "email already registered")
			return
		}
		h.logger.Error("create admin user", zap.Error(err))
		response.Internal(c, "failed to register company")
		return
	}

	co := &models.Company{
		Name:           req.Company.Name,
		RegNumber:      regNumber,
		Domain:         req.Company.Domain,
		AddressLine1:   req.Company.AddressLine1,
		AddressCity:    req.Company.AddressCity,
		AddressCountry: req.Company.AddressCountry,
		ContactEmail:   req.Company.ContactEmail,
		ContactPhone:   req.Company.ContactPhone,
		Description:    req.Company.Description,
	}
	co, err = h.repo.CreateTx(ctx, tx, co)
	if err != nil {
		if errors.Is(err, ErrDuplicateRegNumber) {
			response.Conflict(c, "a company with this registration number already exists")
			return
		}
		h.logger.Error("create company", zap.Error(err))
		response.Internal(c, "failed to register company")
		return
	}

	if _, err := h.ledger.CreateTx(ctx, tx, co.ID, user.ID, models.RoleAdmin, models.MembershipApproved); err != nil {
		h.logger.Error("create admin membership", zap.Error(err))
		response.Internal(c, "failed to register company")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit registration tx", zap.Error(err))
		response.Internal(c, "failed to register company")
		return
	}

	token, err := h.tokens.Issue(user.ID, co.ID, string(models.RoleAdmin))
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		response.Internal(c, "company registered but login is required")
		return
	}
	response.Created(c, RegisterResponse{CompanyID: co.ID, Status: co.Status, Token: token})
}

// Get handles GET /companies/:companyId.
func (h *Handler) Get(c *gin.Context) {
	co, err := h.repo.GetByID(c.Request.Context(), middleware.CompanyID(c))
	if err != nil {
		response.NotFound(c, "company not found")
		return
	}
	response.OK(c, co)
}

// Update handles PATCH /companies/:companyId (admin). Only allow-listed
// fields are updatable.
func (h *Handler) Update(c *gin.Context) {
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid update payload")
		return
	}
	co, err := h.repo.Update(c.Request.Context(), middleware.CompanyID(c), p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "company not found")
			return
		}
		h.logger.Error("update company", zap.Error(err))
		response.Internal(c, "failed to update company")
		return
	}
	response.OK(c, co)
}

// DecisionRequest is the body for verify/reject.
type DecisionRequest struct {
	Reason string `json:"reason"`
}

// Verify handles POST /companies/:companyId/verify (admin).
func (h *Handler) Verify(c *gin.Context) {
	h.decide(c, models.CompanyVerified)
}

// Reject handles POST /companies/:companyId/reject (admin).
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, models.CompanyRejected)
}

func (h *Handler) decide(c *gin.Context, status models.CompanyStatus) {
	var req DecisionRequest
	_ = c.ShouldBindJSON(&req) // reason is optional
	co, err := h.repo.SetStatus(c.Request.Context(), middleware.CompanyID(c), status, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "company not found")
		case errors.Is(err, ErrTerminalStatus):
			response.Conflict(c, "company verification status is already decided")
		default:
			h.logger.Error("set company status", zap.Error(err))
			response.Internal(c, "failed to update company status")
		}
		return
	}
	response.OK(c, co)
}

// Delete handles DELETE /companies/:companyId (admin). Soft delete; the
// company disappears from all default reads.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.SoftDelete(c.Request.Context(), middleware.CompanyID(c)); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "company not found")
			return
		}
		h.logger.Error("delete company", zap.Error(err))
		response.Internal(c, "failed to delete company")
		return
	}
	response.NoContent(c)
}

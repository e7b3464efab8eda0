package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitesafe/backend/internal/models"
	"github.com/sitesafe/backend/pkg/response"
	"github.com/sitesafe/backend/pkg/utils"
)

// WorkerSource looks up a worker profile by user, for issuing unbound
// credentials to independent workers. Satisfied by *workers.Repository.
type WorkerSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Worker, error)
}

// LoginRequest is the body for POST /auth/login. CompanyID selects the tenant
// when the user belongs to several; AllCompanies requests a multi-company
// worker session instead.
type LoginRequest struct {
	Email        string     `json:"email" binding:"required,email"`
	Password     string     `json:"password" binding:"required"`
	CompanyID    *uuid.UUID `json:"company_id"`
	AllCompanies bool       `json:"all_companies"`
}

// LoginResponse carries either an issued credential or a company-selection
// prompt, never both.
type LoginResponse struct {
	Token                 string               `json:"token,omitempty"`
	CompanyID             *uuid.UUID           `json:"company_id,omitempty"`
	CompanyName           string               `json:"company_name,omitempty"`
	CompanyStatus         models.CompanyStatus `json:"company_status,omitempty"`
	Roles                 []string             `json:"roles,omitempty"`
	NeedsCompanySelection bool                 `json:"needs_company_selection,omitempty"`
	Companies             []models.UserCompany `json:"companies,omitempty"`
	User                  models.UserPublic    `json:"user"`
}

// Handler handles authentication endpoints.
type Handler struct {
	users    *Repository
	ledger   MembershipSource
	workers  WorkerSource
	tokens   *TokenService
	resolver *Resolver
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users *Repository, ledger MembershipSource, workers WorkerSource, tokens *TokenService, resolver *Resolver, logger *zap.Logger) *Handler {
	return &Handler{users: users, ledger: ledger, workers: workers, tokens: tokens, resolver: resolver, logger: logger}
}

// Login handles POST /auth/login. The tenant binding of the issued credential
// follows the resolver: explicit company, single implicit company, or a
// company-selection response with no credential issued.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if req.AllCompanies {
		h.loginAllCompanies(c, user)
		return
	}

	selected, choices, err := h.resolver.Resolve(c.Request.Context(), user.ID, req.CompanyID)
	switch {
	case errors.Is(err, ErrNoMembership):
		h.loginIndependent(c, user)
		return
	case errors.Is(err, ErrCrossTenant):
		response.Forbidden(c, "not a member of the specified company")
		return
	case err != nil:
		h.logger.Error("resolve tenant", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}

	if selected == nil {
		response.OK(c, LoginResponse{
			NeedsCompanySelection: true,
			Companies:             choices,
			User:                  user.ToPublic(),
		})
		return
	}

	token, err := h.tokens.Issue(user.ID, selected.CompanyID, string(selected.Role))
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, LoginResponse{
		Token:         token,
		CompanyID:     &selected.CompanyID,
		CompanyName:   selected.CompanyName,
		CompanyStatus: selected.CompanyStatus,
		Roles:         []string{string(selected.Role)},
		User:          user.ToPublic(),
	})
}

// loginAllCompanies issues a multi-company worker session bound to every live
// membership.
func (h *Handler) loginAllCompanies(c *gin.Context, user *models.User) {
	list, err := h.ledger.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("list memberships", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if len(list) == 0 {
		h.loginIndependent(c, user)
		return
	}
	ids := make([]uuid.UUID, 0, len(list))
	roleSet := make(map[string]struct{})
	for _, uc := range list {
		ids = append(ids, uc.CompanyID)
		roleSet[string(uc.Role)] = struct{}{}
	}
	roles := make([]string, 0, len(roleSet))
	for r := range roleSet {
		roles = append(roles, r)
	}
	token, err := h.tokens.IssueMulti(user.ID, ids, roles)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, LoginResponse{Token: token, Roles: roles, User: user.ToPublic()})
}

// loginIndependent issues an unbound credential for a user with no
// memberships but a worker profile, so the worker can link to a company.
func (h *Handler) loginIndependent(c *gin.Context, user *models.User) {
	if _, err := h.workers.GetByUserID(c.Request.Context(), user.ID); err != nil {
		response.Forbidden(c, "no company memberships for this user")
		return
	}
	token, err := h.tokens.IssueUnbound(user.ID, string(models.RoleWorker))
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, LoginResponse{
		Token: token,
		Roles: []string{string(models.RoleWorker)},
		User:  user.ToPublic(),
	})
}

// UpdateMeRequest is the body for PATCH /auth/me. Omitted fields are left
// untouched.
type UpdateMeRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

// UpdateMe handles PATCH /auth/me. Updates the caller's profile.
func (h *Handler) UpdateMe(c *gin.Context) {
	claims := MustClaims(c)
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid update payload")
		return
	}
	var passwordHash *string
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			response.Internal(c, "failed to update profile")
			return
		}
		passwordHash = &hash
	}
	if err := h.users.UpdateProfile(c.Request.Context(), claims.UserID, req.FullName, passwordHash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("update profile", zap.Error(err))
		response.Internal(c, "failed to update profile")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Internal(c, "failed to reload profile")
		return
	}
	response.OK(c, user.ToPublic())
}

// MeResponse is the body for GET /auth/me.
type MeResponse struct {
	User      models.UserPublic    `json:"user"`
	Companies []models.UserCompany `json:"companies"`
}

// Me handles GET /auth/me. Returns the caller's identity and live memberships.
func (h *Handler) Me(c *gin.Context) {
	claims := MustClaims(c)
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	list, err := h.ledger.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("list memberships", zap.Error(err))
		response.Internal(c, "failed to load memberships")
		return
	}
	response.OK(c, MeResponse{User: user.ToPublic(), Companies: list})
}

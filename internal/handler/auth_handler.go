package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// SignUp godoc
// @Summary Register a new user
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.SignUpRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// Only an authenticated admin can register another admin.
	if req.Role != nil && models.UserRole(*req.Role) == models.RoleAdmin {
		caller := userFromContext(c)
		if caller == nil || caller.Role != models.RoleAdmin {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin accounts can only be created by an admin"))
			return
		}
	}

	result, err := h.service.SignUp(c.Request.Context(), req, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SignIn godoc
// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.SignInRequest true "Credential payload"
// @Success 200 {object} response.Envelope
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req service.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.SignIn(c.Request.Context(), req, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SignOut godoc
// @Summary Revoke the current session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204
// @Router /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context(), rawBearerToken(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Session godoc
// @Summary Get the current session and user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	user := userFromContext(c)
	session := sessionFromContext(c)
	if user == nil || session == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	response.JSON(c, http.StatusOK, service.AuthResult{User: user, Session: session}, nil)
}

// Accounts godoc
// @Summary List linked accounts for the current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/accounts [get]
func (h *AuthHandler) Accounts(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	accounts, err := h.service.ListAccounts(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, nil)
}

// LinkAccount godoc
// @Summary Link a provider account to the current user
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.LinkAccountRequest true "Account payload"
// @Success 201 {object} response.Envelope
// @Router /auth/accounts [post]
func (h *AuthHandler) LinkAccount(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req service.LinkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	account, err := h.service.LinkAccount(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

type issueVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// IssueVerification godoc
// @Summary Issue an email verification challenge
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body issueVerificationRequest true "Verification payload"
// @Success 201 {object} response.Envelope
// @Router /auth/verification [post]
func (h *AuthHandler) IssueVerification(c *gin.Context) {
	var req issueVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	verification, err := h.service.IssueVerification(c.Request.Context(), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, verification)
}

// ConsumeVerification godoc
// @Summary Consume an email verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.VerifyEmailRequest true "Verification payload"
// @Success 204
// @Router /auth/verification/consume [post]
func (h *AuthHandler) ConsumeVerification(c *gin.Context) {
	var req service.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.ConsumeVerification(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

func rawBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

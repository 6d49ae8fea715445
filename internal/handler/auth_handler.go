package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradworks/pgdms-api/internal/middleware"
	"github.com/gradworks/pgdms-api/internal/models"
	"github.com/gradworks/pgdms-api/internal/service"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
	"github.com/gradworks/pgdms-api/pkg/response"
)

// SessionTokenHeader carries the opaque session token on session endpoints.
const SessionTokenHeader = "X-Session-Token"

// AuthHandler wires HTTP endpoints to the auth and session services.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	metrics  *service.MetricsService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, sessions *service.SessionService, metrics *service.MetricsService) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, metrics: metrics}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email, password and claimed role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordLoginOutcome(loginOutcome(err))
		response.Error(c, err)
		return
	}

	session := &models.SessionData{
		Token:       res.Token,
		User:        res.User,
		Permissions: res.Permissions,
		LoginTime:   res.IssuedAt,
	}
	if err := h.sessions.Save(c.Request.Context(), session); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordLoginOutcome("success")
	h.metrics.SessionOpened()
	response.JSON(c, http.StatusOK, res, nil)
}

// Session godoc
// @Summary Resolve the current session
// @Description Load the session bundle for an opaque session token
// @Tags Authentication
// @Produce json
// @Param X-Session-Token header string true "Session token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	token := c.GetHeader(SessionTokenHeader)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session token required"))
		return
	}

	session, err := h.sessions.Current(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	if session == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session is expired or unknown"))
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Refresh godoc
// @Summary Refresh session token
// @Description Exchange a session token for a rotated one
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}

	session, err := h.sessions.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Purge the persisted session bundle
// @Tags Authentication
// @Produce json
// @Param X-Session-Token header string true "Session token"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetHeader(SessionTokenHeader)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session token required"))
		return
	}

	if err := h.sessions.Clear(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.SessionClosed()
	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info and permissions
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	jwtClaims := claims.(*models.JWTClaims)
	info := models.UserInfo{
		ID:       jwtClaims.UserID,
		Email:    jwtClaims.Email,
		FullName: jwtClaims.FullName,
		Role:     jwtClaims.Role,
	}

	response.JSON(c, http.StatusOK, gin.H{
		"user":        info,
		"permissions": service.PermissionsFor(jwtClaims.Role),
	}, nil)
}

// loginOutcome maps a login failure to its metric label.
func loginOutcome(err error) string {
	switch {
	case appErrors.HasCode(err, appErrors.ErrAccountLocked.Code):
		return "locked"
	case appErrors.HasCode(err, appErrors.ErrAccountDisabled.Code):
		return "disabled"
	case appErrors.HasCode(err, appErrors.ErrRoleMismatch.Code):
		return "role_mismatch"
	case appErrors.HasCode(err, appErrors.ErrInvalidCredentials.Code):
		return "invalid_credentials"
	default:
		return "error"
	}
}

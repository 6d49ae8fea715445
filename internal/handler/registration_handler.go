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

// RegistrationHandler wires HTTP endpoints to the registration workflow.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	metrics       *service.MetricsService
}

// NewRegistrationHandler creates a new handler.
func NewRegistrationHandler(registrations *service.RegistrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, metrics: metrics}
}

type reviewPayload struct {
	Comments string `json:"comments"`
}

type infoPayload struct {
	Info string `json:"info" binding:"required"`
}

// Submit godoc
// @Summary Submit a registration request
// @Description File an onboarding application for admin review
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.SubmitRegistrationInput true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var input service.SubmitRegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	req, err := h.registrations.Submit(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRegistrationDecision("submitted")
	response.Created(c, req)
}

// List godoc
// @Summary List registration requests
// @Description All onboarding applications, newest first
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	requests, err := h.registrations.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Approve godoc
// @Summary Approve a registration request
// @Description Provision an account for the applicant with a temporary password
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body reviewPayload false "Optional admin comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload reviewPayload
	_ = c.ShouldBindJSON(&payload)

	info, err := h.registrations.Approve(c.Request.Context(), c.Param("id"), adminID, payload.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRegistrationDecision("approved")
	response.JSON(c, http.StatusOK, info, nil)
}

// Reject godoc
// @Summary Reject a registration request
// @Description Reject with mandatory admin comments
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body reviewPayload true "Admin comments"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /registrations/{id}/reject [post]
func (h *RegistrationHandler) Reject(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload reviewPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	req, err := h.registrations.Reject(c.Request.Context(), c.Param("id"), adminID, payload.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRegistrationDecision("rejected")
	response.JSON(c, http.StatusOK, req, nil)
}

// RequestInfo godoc
// @Summary Request additional information
// @Description Ask the applicant for more detail before a decision
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body infoPayload true "Information needed"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /registrations/{id}/request-info [post]
func (h *RegistrationHandler) RequestInfo(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload infoPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	req, err := h.registrations.RequestInfo(c.Request.Context(), c.Param("id"), adminID, payload.Info)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRegistrationDecision("info_requested")
	response.JSON(c, http.StatusOK, req, nil)
}

// Stats godoc
// @Summary Registration pipeline statistics
// @Description Counts per status plus recent audit activity
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registrations/stats [get]
func (h *RegistrationHandler) Stats(c *gin.Context) {
	stats, err := h.registrations.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// currentUserID extracts the authenticated user id from the request context.
func currentUserID(c *gin.Context) (string, bool) {
	claims, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return "", false
	}
	jwtClaims, ok := claims.(*models.JWTClaims)
	if !ok {
		return "", false
	}
	return jwtClaims.UserID, true
}

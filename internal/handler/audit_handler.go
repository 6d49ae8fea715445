package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gradworks/pgdms-api/internal/models"
	"github.com/gradworks/pgdms-api/internal/repository"
	"github.com/gradworks/pgdms-api/pkg/response"
)

// AuditHandler exposes the read side of the audit trail.
type AuditHandler struct {
	audit *repository.AuditRepository
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(audit *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit log entries
// @Description Entries most-recent-first with total count
// @Tags Audit
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, total, err := h.audit.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	if limit <= 0 {
		limit = 50
	}
	page := offset/limit + 1
	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:       page,
		PageSize:   limit,
		TotalCount: total,
	})
}

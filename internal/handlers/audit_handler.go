package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// AuditHandler handles audit ledger HTTP requests
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler instance
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func auditFiltersFromQuery(c *gin.Context) models.AuditSearchFilters {
	filters := models.AuditSearchFilters{
		PatientID:     c.Query("patientId"),
		ActorIdentity: c.Query("actorIdentity"),
		Action:        c.Query("action"),
		RecordID:      c.Query("recordId"),
	}

	if v := c.Query("success"); v != "" {
		success := v == "true"
		filters.Success = &success
	}
	if v := c.Query("fromTime"); v != "" {
		if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.FromTime = &millis
		}
	}
	if v := c.Query("toTime"); v != "" {
		if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.ToTime = &millis
		}
	}

	return filters
}

// QueryEvents handles GET /audit-events
func (h *AuditHandler) QueryEvents(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filters := auditFiltersFromQuery(c)
	filters.Limit = params.Limit
	filters.Offset = params.Offset

	events, total, svcErr := h.auditService.Query(c.Request.Context(), filters)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"events":     events,
		"pagination": utils.NewPaginationMetadata(total, params.Limit, params.Offset),
	})
}

// Summary handles GET /audit-events/summary
func (h *AuditHandler) Summary(c *gin.Context) {
	summary, svcErr := h.auditService.Summary(c.Request.Context(), auditFiltersFromQuery(c))
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, summary)
}

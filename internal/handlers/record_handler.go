package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// RecordHandler handles record catalog HTTP requests
type RecordHandler struct {
	recordService *service.RecordService
}

// NewRecordHandler creates a new record handler instance
func NewRecordHandler(recordService *service.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// CreateRecord handles POST /records
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var apiRequest models.RecordCreateAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	record, svcErr := h.recordService.Create(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendCreatedResponse(c, record)
}

// GetRecord handles GET /records/:recordId
func (h *RecordHandler) GetRecord(c *gin.Context) {
	record, svcErr := h.recordService.GetByID(c.Request.Context(), c.Param("recordId"))
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, record)
}

// ListRecords handles GET /patients/:patientId/records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	records, total, svcErr := h.recordService.ListByPatient(c.Request.Context(), c.Param("patientId"), params.Limit, params.Offset)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"records":    records,
		"pagination": utils.NewPaginationMetadata(total, params.Limit, params.Offset),
	})
}

// UpdateRecord handles PUT /records/:recordId
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	var apiRequest models.RecordUpdateAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	record, svcErr := h.recordService.Update(c.Request.Context(), c.Param("recordId"), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, record)
}

// DeleteRecord handles DELETE /records/:recordId. Soft delete unless the
// permanent query parameter is set.
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	deletedBy := c.GetHeader("actor-identity")
	if deletedBy == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	var svcErr *serviceerror.ServiceError
	if c.Query("permanent") == "true" {
		svcErr = h.recordService.HardDelete(c.Request.Context(), c.Param("recordId"), deletedBy)
	} else {
		svcErr = h.recordService.SoftDelete(c.Request.Context(), c.Param("recordId"), deletedBy)
	}
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendNoContentResponse(c)
}

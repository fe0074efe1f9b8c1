package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// GuardianHandler handles guardianship HTTP requests
type GuardianHandler struct {
	guardianService *service.GuardianService
}

// NewGuardianHandler creates a new guardian handler instance
func NewGuardianHandler(guardianService *service.GuardianService) *GuardianHandler {
	return &GuardianHandler{guardianService: guardianService}
}

// AssignGuardian handles POST /guardians
func (h *GuardianHandler) AssignGuardian(c *gin.Context) {
	var apiRequest models.GuardianAssignAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	assignedBy := c.GetHeader("actor-identity")
	if assignedBy == "" {
		assignedBy = apiRequest.GuardianIdentity
	}

	guardian, svcErr := h.guardianService.Assign(c.Request.Context(), &apiRequest, assignedBy)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendCreatedResponse(c, guardian)
}

// RevokeGuardian handles DELETE /guardians/:guardianId
func (h *GuardianHandler) RevokeGuardian(c *gin.Context) {
	revokedBy := c.GetHeader("actor-identity")
	if revokedBy == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	guardian, svcErr := h.guardianService.Revoke(c.Request.Context(), c.Param("guardianId"), revokedBy)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, guardian)
}

// ListGuardians handles GET /patients/:patientId/guardians
func (h *GuardianHandler) ListGuardians(c *gin.Context) {
	activeOnly := c.DefaultQuery("activeOnly", "true") == "true"

	guardians, svcErr := h.guardianService.ListByPatient(c.Request.Context(), c.Param("patientId"), activeOnly)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{"guardians": guardians})
}

// ListWards handles GET /guardians/wards
func (h *GuardianHandler) ListWards(c *gin.Context) {
	identity := c.GetHeader("actor-identity")
	if identity == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	guardians, svcErr := h.guardianService.ListWards(c.Request.Context(), identity)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{"wards": guardians})
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// BirthHandler handles birth registration HTTP requests
type BirthHandler struct {
	birthService *service.BirthService
}

// NewBirthHandler creates a new birth handler instance
func NewBirthHandler(birthService *service.BirthService) *BirthHandler {
	return &BirthHandler{birthService: birthService}
}

// RegisterBirth handles POST /births
func (h *BirthHandler) RegisterBirth(c *gin.Context) {
	var apiRequest models.BirthRegisterAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	registration, svcErr := h.birthService.RegisterBirth(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendCreatedResponse(c, registration)
}

// AssignIdentity handles POST /patients/:patientId/identity
func (h *BirthHandler) AssignIdentity(c *gin.Context) {
	var apiRequest struct {
		Identity   string `json:"identity" binding:"required"`
		AssignedBy string `json:"assignedBy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	patient, svcErr := h.birthService.AssignIdentity(c.Request.Context(), c.Param("patientId"), apiRequest.Identity, apiRequest.AssignedBy)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, patient)
}

// GetRegistration handles GET /patients/:patientId/birth-registration
func (h *BirthHandler) GetRegistration(c *gin.Context) {
	registration, svcErr := h.birthService.GetRegistration(c.Request.Context(), c.Param("patientId"))
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, registration)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// PatientHandler handles patient-related HTTP requests
type PatientHandler struct {
	patientService *service.PatientService
}

// NewPatientHandler creates a new patient handler instance
func NewPatientHandler(patientService *service.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

// RegisterPatient handles POST /patients
func (h *PatientHandler) RegisterPatient(c *gin.Context) {
	var apiRequest models.PatientRegisterAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	patient, svcErr := h.patientService.Register(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendCreatedResponse(c, patient)
}

// GetPatient handles GET /patients/:patientId
func (h *PatientHandler) GetPatient(c *gin.Context) {
	patient, svcErr := h.patientService.GetByID(c.Request.Context(), c.Param("patientId"))
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, patient)
}

// ListPatients handles GET /patients. An identity query parameter narrows
// the listing to a single lookup.
func (h *PatientHandler) ListPatients(c *gin.Context) {
	if identity := c.Query("identity"); identity != "" {
		patient, svcErr := h.patientService.GetByIdentity(c.Request.Context(), identity)
		if svcErr != nil {
			utils.SendServiceError(c, svcErr)
			return
		}
		utils.SendOKResponse(c, patient)
		return
	}

	params := utils.GetPaginationParams(c)
	patients, total, svcErr := h.patientService.List(c.Request.Context(), params.Limit, params.Offset)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"patients":   patients,
		"pagination": utils.NewPaginationMetadata(total, params.Limit, params.Offset),
	})
}

// TransferToAdult handles POST /patients/:patientId/transfer
func (h *PatientHandler) TransferToAdult(c *gin.Context) {
	patient, svcErr := h.patientService.TransferToAdult(c.Request.Context(), c.Param("patientId"))
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, patient)
}

// UpdateEmergencyContact handles PUT /patients/:patientId/emergency-contact
func (h *PatientHandler) UpdateEmergencyContact(c *gin.Context) {
	var apiRequest models.PatientUpdateAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	updatedBy := c.GetHeader("actor-identity")
	if updatedBy == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	patient, svcErr := h.patientService.UpdateEmergencyContact(c.Request.Context(), c.Param("patientId"), &apiRequest, updatedBy)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, patient)
}

// DeactivatePatient handles POST /patients/:patientId/deactivate
func (h *PatientHandler) DeactivatePatient(c *gin.Context) {
	actor := c.GetHeader("actor-identity")
	if actor == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	patient, svcErr := h.patientService.Deactivate(c.Request.Context(), c.Param("patientId"), actor)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, patient)
}

// ReactivatePatient handles POST /patients/:patientId/reactivate
func (h *PatientHandler) ReactivatePatient(c *gin.Context) {
	actor := c.GetHeader("actor-identity")
	if actor == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	patient, svcErr := h.patientService.Reactivate(c.Request.Context(), c.Param("patientId"), actor)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, patient)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// AccessHandler handles authorization, grant and request HTTP endpoints
type AccessHandler struct {
	accessService *service.AccessService
}

// NewAccessHandler creates a new access handler instance
func NewAccessHandler(accessService *service.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

// Authorize handles POST /access/authorize
func (h *AccessHandler) Authorize(c *gin.Context) {
	var apiRequest models.AuthorizeAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	decision, svcErr := h.accessService.Authorize(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, decision)
}

// CreateGrant handles POST /grants
func (h *AccessHandler) CreateGrant(c *gin.Context) {
	var apiRequest models.GrantAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	grant, svcErr := h.accessService.Grant(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendCreatedResponse(c, grant)
}

// RevokeGrant handles DELETE /grants/:grantId
func (h *AccessHandler) RevokeGrant(c *gin.Context) {
	revokedBy := c.GetHeader("actor-identity")
	if revokedBy == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	grant, svcErr := h.accessService.RevokeGrant(c.Request.Context(), c.Param("grantId"), revokedBy)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, grant)
}

// ListGrants handles GET /patients/:patientId/grants
func (h *AccessHandler) ListGrants(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	activeOnly := c.DefaultQuery("activeOnly", "true") == "true"

	grants, total, svcErr := h.accessService.ListGrants(c.Request.Context(), c.Param("patientId"), activeOnly, params.Limit, params.Offset)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"grants":     grants,
		"pagination": utils.NewPaginationMetadata(total, params.Limit, params.Offset),
	})
}

// SubmitRequest handles POST /access-requests
func (h *AccessHandler) SubmitRequest(c *gin.Context) {
	var apiRequest models.RequestSubmitAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	accessRequest, svcErr := h.accessService.SubmitRequest(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendCreatedResponse(c, accessRequest)
}

// ApproveRequest handles POST /access-requests/:requestId/approve
func (h *AccessHandler) ApproveRequest(c *gin.Context) {
	var apiRequest models.RequestApproveAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	grant, svcErr := h.accessService.ApproveRequest(c.Request.Context(), c.Param("requestId"), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, grant)
}

// DenyRequest handles POST /access-requests/:requestId/deny
func (h *AccessHandler) DenyRequest(c *gin.Context) {
	var apiRequest models.RequestDenyAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	accessRequest, svcErr := h.accessService.DenyRequest(c.Request.Context(), c.Param("requestId"), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, accessRequest)
}

// CancelRequest handles POST /access-requests/:requestId/cancel
func (h *AccessHandler) CancelRequest(c *gin.Context) {
	var apiRequest models.RequestCancelAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	accessRequest, svcErr := h.accessService.CancelRequest(c.Request.Context(), c.Param("requestId"), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, accessRequest)
}

// BatchApprove handles POST /access-requests/batch-approve
func (h *AccessHandler) BatchApprove(c *gin.Context) {
	var apiRequest models.BatchApproveAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}

	result, svcErr := h.accessService.BatchApprove(c.Request.Context(), &apiRequest)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, result)
}

// ListRequests handles GET /access-requests
func (h *AccessHandler) ListRequests(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filters := models.RequestSearchFilters{
		PatientID:         c.Query("patientId"),
		RequesterIdentity: c.Query("requesterIdentity"),
		Status:            c.Query("status"),
		Limit:             params.Limit,
		Offset:            params.Offset,
	}

	requests, total, svcErr := h.accessService.ListRequests(c.Request.Context(), filters)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"requests":   requests,
		"pagination": utils.NewPaginationMetadata(total, params.Limit, params.Offset),
	})
}

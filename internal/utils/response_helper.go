package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/models"
	"github.com/cyphermed/record-access-api/internal/serviceerror"
)

// SendCreatedResponse sends a 201 Created response
func SendCreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendOKResponse sends a 200 OK response
func SendOKResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendNoContentResponse sends a 204 No Content response
func SendNoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// SendBadRequestError sends a 400 Bad Request error
func SendBadRequestError(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    serviceerror.ValidationError.Code,
		Message: message,
		Details: details,
	})
}

// SendServiceError maps a service error to its HTTP status and sends it
func SendServiceError(c *gin.Context, err *serviceerror.ServiceError) {
	c.JSON(models.HTTPStatusForServiceError(err), models.ErrorResponse{
		Code:    err.Code,
		Message: err.Error,
		Details: err.ErrorDescription,
	})
}

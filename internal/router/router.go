package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/handlers"
	"github.com/cyphermed/record-access-api/internal/service"
)

// Services bundles everything the router needs.
type Services struct {
	Patient      *service.PatientService
	Guardian     *service.GuardianService
	Access       *service.AccessService
	Record       *service.RecordService
	Audit        *service.AuditService
	Birth        *service.BirthService
	Notification *service.NotificationService
}

// SetupRouter configures all API routes
func SetupRouter(services Services, db *database.DB) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(200, gin.H{"status": "healthy"})
	})

	patientHandler := handlers.NewPatientHandler(services.Patient)
	guardianHandler := handlers.NewGuardianHandler(services.Guardian)
	accessHandler := handlers.NewAccessHandler(services.Access)
	recordHandler := handlers.NewRecordHandler(services.Record)
	auditHandler := handlers.NewAuditHandler(services.Audit)
	birthHandler := handlers.NewBirthHandler(services.Birth)
	notificationHandler := handlers.NewNotificationHandler(services.Notification)

	v1 := router.Group("/api/v1")
	{
		// Patient routes
		patients := v1.Group("/patients")
		{
			patients.POST("", patientHandler.RegisterPatient)
			patients.GET("", patientHandler.ListPatients)
			patients.GET("/:patientId", patientHandler.GetPatient)
			patients.POST("/:patientId/transfer", patientHandler.TransferToAdult)
			patients.PUT("/:patientId/emergency-contact", patientHandler.UpdateEmergencyContact)
			patients.POST("/:patientId/deactivate", patientHandler.DeactivatePatient)
			patients.POST("/:patientId/reactivate", patientHandler.ReactivatePatient)
			patients.POST("/:patientId/identity", birthHandler.AssignIdentity)
			patients.GET("/:patientId/birth-registration", birthHandler.GetRegistration)
			patients.GET("/:patientId/guardians", guardianHandler.ListGuardians)
			patients.GET("/:patientId/grants", accessHandler.ListGrants)
			patients.GET("/:patientId/records", recordHandler.ListRecords)
		}

		// Guardianship routes
		guardians := v1.Group("/guardians")
		{
			guardians.POST("", guardianHandler.AssignGuardian)
			guardians.DELETE("/:guardianId", guardianHandler.RevokeGuardian)
			guardians.GET("/wards", guardianHandler.ListWards)
		}

		// Authorization and grant routes
		v1.POST("/access/authorize", accessHandler.Authorize)
		grants := v1.Group("/grants")
		{
			grants.POST("", accessHandler.CreateGrant)
			grants.DELETE("/:grantId", accessHandler.RevokeGrant)
		}

		// Access request workflow
		requests := v1.Group("/access-requests")
		{
			requests.POST("", accessHandler.SubmitRequest)
			requests.GET("", accessHandler.ListRequests)
			requests.POST("/batch-approve", accessHandler.BatchApprove)
			requests.POST("/:requestId/approve", accessHandler.ApproveRequest)
			requests.POST("/:requestId/deny", accessHandler.DenyRequest)
			requests.POST("/:requestId/cancel", accessHandler.CancelRequest)
		}

		// Record catalog routes
		records := v1.Group("/records")
		{
			records.POST("", recordHandler.CreateRecord)
			records.GET("/:recordId", recordHandler.GetRecord)
			records.PUT("/:recordId", recordHandler.UpdateRecord)
			records.DELETE("/:recordId", recordHandler.DeleteRecord)
		}

		// Audit ledger routes
		audit := v1.Group("/audit-events")
		{
			audit.GET("", auditHandler.QueryEvents)
			audit.GET("/summary", auditHandler.Summary)
		}

		// Birth registration
		v1.POST("/births", birthHandler.RegisterBirth)

		// Notification inbox
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:notificationId/read", notificationHandler.MarkRead)
		}
	}

	return router
}

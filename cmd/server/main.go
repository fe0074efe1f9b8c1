package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cyphermed/record-access-api/internal/clock"
	"github.com/cyphermed/record-access-api/internal/config"
	"github.com/cyphermed/record-access-api/internal/dao"
	"github.com/cyphermed/record-access-api/internal/database"
	"github.com/cyphermed/record-access-api/internal/lock"
	"github.com/cyphermed/record-access-api/internal/notify"
	"github.com/cyphermed/record-access-api/internal/router"
	"github.com/cyphermed/record-access-api/internal/service"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Record Access API Server...")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	db, err := database.Initialize(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}

	logger.Info("Database connection established successfully")

	// DAOs
	patientDAO := dao.NewPatientDAO(db)
	guardianDAO := dao.NewGuardianDAO(db)
	grantDAO := dao.NewGrantDAO(db)
	requestDAO := dao.NewRequestDAO(db)
	recordDAO := dao.NewRecordDAO(db)
	auditDAO := dao.NewAuditDAO(db)
	notificationDAO := dao.NewNotificationDAO(db)
	birthDAO := dao.NewBirthRegistrationDAO(db)

	// Shared infrastructure
	locks := lock.NewKeyed()
	clk := clock.SystemClock{}

	var sink notify.Sink
	if cfg.Notify.Sink == "log" {
		sink = notify.NewLogSink(logger)
	} else {
		sink = notify.NewStoreSink(notificationDAO)
	}
	notifier := notify.NewNotifier(sink, clk, logger)

	// Services
	auditService := service.NewAuditService(db, auditDAO, recordDAO, locks, clk, logger)
	patientService := service.NewPatientService(db, patientDAO, guardianDAO, auditService, locks, clk, logger)
	guardianService := service.NewGuardianService(db, patientDAO, guardianDAO, auditService, locks, clk, logger)
	accessService := service.NewAccessService(db, patientDAO, grantDAO, requestDAO, guardianService, auditService, notifier, locks, clk, cfg.Access, logger)
	recordService := service.NewRecordService(db, patientDAO, recordDAO, accessService, auditService, notifier, locks, clk, logger)
	birthService := service.NewBirthService(db, patientDAO, guardianDAO, recordDAO, birthDAO, auditService, notifier, locks, clk, logger)
	notificationService := service.NewNotificationService(notificationDAO, logger)

	logger.Info("Services initialized successfully")

	ginRouter := router.SetupRouter(router.Services{
		Patient:      patientService,
		Guardian:     guardianService,
		Access:       accessService,
		Record:       recordService,
		Audit:        auditService,
		Birth:        birthService,
		Notification: notificationService,
	}, db)

	serverAddr := cfg.Server.GetServerAddress()
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithField("addr", serverAddr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
}

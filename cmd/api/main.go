package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/tutorbid/tutorbid-api/api/swagger"
	"github.com/tutorbid/tutorbid-api/internal/handler"
	"github.com/tutorbid/tutorbid-api/internal/middleware"
	"github.com/tutorbid/tutorbid-api/internal/models"
	"github.com/tutorbid/tutorbid-api/internal/notify"
	"github.com/tutorbid/tutorbid-api/internal/payment"
	"github.com/tutorbid/tutorbid-api/internal/repository"
	"github.com/tutorbid/tutorbid-api/internal/service"
	"github.com/tutorbid/tutorbid-api/pkg/cache"
	"github.com/tutorbid/tutorbid-api/pkg/config"
	"github.com/tutorbid/tutorbid-api/pkg/database"
	"github.com/tutorbid/tutorbid-api/pkg/logger"
	corsmiddleware "github.com/tutorbid/tutorbid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorbid/tutorbid-api/pkg/middleware/requestid"
)

// @title TutorBid API
// @version 1.0.0
// @description Scheduling and negotiation engine for instructor bookings
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("postgres connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	windowRepo := repository.NewAvailabilityRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	requestRepo := repository.NewBookingRequestRepository(db)
	ruleRepo := repository.NewPriceRuleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	metricsSvc := service.NewMetricsService()

	// Redis is optional: without it the stats projection is recomputed on
	// every read.
	var cacheSvc *service.CacheService
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, true)
		}
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	}, logr)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	var gateway payment.Gateway
	if cfg.Payments.ProviderURL != "" {
		gateway = payment.NewHTTPGateway(cfg.Payments.ProviderURL, cfg.Payments.RequestTimeout, logr)
	} else {
		gateway = payment.NewLogGateway(logr)
	}

	// Services.
	conflictSvc := service.NewConflictService(sessionRepo, requestRepo, slotRepo)
	capacitySvc := service.NewCapacityService(slotRepo, metricsSvc, logr)
	slotSvc := service.NewSlotService(slotRepo, dispatcher, logr)
	availabilitySvc := service.NewAvailabilityService(windowRepo, slotSvc, conflictSvc, cacheSvc, logr)
	pricingSvc := service.NewPricingService(ruleRepo, logr)
	bookingSvc := service.NewBookingService(requestRepo, slotRepo, windowRepo, ruleRepo,
		conflictSvc, capacitySvc, gateway, dispatcher, cacheSvc, metricsSvc,
		service.BookingServiceConfig{PaymentAwaitTTL: cfg.Engine.PaymentAwaitTTL}, logr)
	statsSvc := service.NewStatsService(requestRepo, windowRepo, slotRepo, cacheSvc, cfg.Stats.CacheTTL, logr)
	exportSvc := service.NewExportService(availabilitySvc, statsSvc, logr)

	// Handlers.
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, slotSvc)
	slotHandler := handler.NewSlotHandler(slotSvc, bookingSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	priceRuleHandler := handler.NewPriceRuleHandler(pricingSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	paymentHandler := handler.NewPaymentHandler(bookingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// The provider callback authenticates out of band, not with a user token.
	api.POST("/payments/callback", paymentHandler.Callback)

	authed := api.Group("", middleware.JWT(cfg.JWT.Secret))
	authed.GET("/slots/:id", slotHandler.Get)
	authed.GET("/requests/:id", bookingHandler.Get)

	instructor := authed.Group("", middleware.RequireRole(models.RoleInstructor))
	{
		instructor.POST("/availability", availabilityHandler.Create)
		instructor.GET("/availability", availabilityHandler.List)
		instructor.GET("/availability/export", exportHandler.ExportCSV)
		instructor.POST("/availability/import", exportHandler.ImportCSV)
		instructor.GET("/availability/:id", availabilityHandler.Get)
		instructor.PUT("/availability/:id", availabilityHandler.Update)
		instructor.DELETE("/availability/:id", availabilityHandler.Delete)
		instructor.POST("/availability/:id/activate", availabilityHandler.Activate)
		instructor.POST("/availability/:id/deactivate", availabilityHandler.Deactivate)
		instructor.GET("/availability/:id/slots", availabilityHandler.ListSlots)
		instructor.POST("/availability/:id/materialize", availabilityHandler.Materialize)

		instructor.POST("/slots/:id/block", slotHandler.Block)
		instructor.POST("/slots/:id/unblock", slotHandler.Unblock)
		instructor.GET("/slots/:id/requests", slotHandler.ListRequests)

		instructor.GET("/requests", bookingHandler.List)
		instructor.POST("/requests/:id/accept", bookingHandler.Accept)
		instructor.POST("/requests/:id/reject", bookingHandler.Reject)
		instructor.POST("/requests/bulk", bookingHandler.BulkUpdate)
		instructor.POST("/requests/:id/release", bookingHandler.Release)

		instructor.PUT("/price-rules", priceRuleHandler.Upsert)
		instructor.GET("/price-rules", priceRuleHandler.List)
		instructor.DELETE("/price-rules/:id", priceRuleHandler.Delete)
		instructor.POST("/price-rules/evaluate", priceRuleHandler.Evaluate)

		instructor.GET("/stats/overview", statsHandler.Overview)
		instructor.GET("/stats/utilization", statsHandler.Utilization)
		instructor.GET("/stats/report.pdf", exportHandler.ReportPDF)
		instructor.GET("/stats/counters", metricsHandler.Snapshot)
	}

	learner := authed.Group("", middleware.RequireRole(models.RoleLearner))
	{
		learner.POST("/requests", bookingHandler.Submit)
		learner.POST("/requests/:id/withdraw", bookingHandler.Withdraw)
	}

	go runExpirySweeps(ctx, bookingSvc, cfg.Engine.ExpirySweepInterval, logr)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runExpirySweeps periodically expires overdue pending requests and stale
// payment holds until the context is cancelled.
func runExpirySweeps(ctx context.Context, bookings *service.BookingService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := bookings.ExpireDue(ctx); err != nil {
				logr.Warn("pending expiry sweep failed", zap.Error(err))
			} else if n > 0 {
				logr.Info("expired pending requests", zap.Int("count", n))
			}
			if n, err := bookings.ExpireAwaitingPayments(ctx); err != nil {
				logr.Warn("payment expiry sweep failed", zap.Error(err))
			} else if n > 0 {
				logr.Info("expired awaiting payments", zap.Int("count", n))
			}
		}
	}
}

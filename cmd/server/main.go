package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/config"
	"github.com/staylong/rental-backend/internal/database"
	"github.com/staylong/rental-backend/internal/handlers"
	"github.com/staylong/rental-backend/internal/middleware"
	"github.com/staylong/rental-backend/internal/services"
	"github.com/staylong/rental-backend/pkg/jwt"
	"github.com/staylong/rental-backend/pkg/lease"
	"github.com/staylong/rental-backend/pkg/notify"
	"github.com/staylong/rental-backend/pkg/payment"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting rental booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Lease locks: Redis when configured so several instances share them
	locker, closeLocker := newLocker(cfg, logger)
	defer closeLocker()

	// Repositories
	roomRepo := database.NewRoomRepository(db)
	guestRepo := database.NewGuestRepository(db)
	bookingRepo := database.NewBookingRepository(db, cfg.Booking.LockWait)
	settingRepo := database.NewSystemSettingRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.PaymentWebhookSecret, cfg.JWT.AdminTokenExpiry, cfg.JWT.PaymentTokenExpiry)

	presenceStore := services.NewPresenceStore(services.PresenceStoreConfig{
		SessionTTL:    cfg.Presence.SessionTTL,
		EventCapacity: cfg.Presence.EventCapacity,
	}, logger)

	settingsService := services.NewSettingsService(settingRepo, locker, logger)

	notificationService := services.NewNotificationService(
		newNotifyGateways(cfg, logger),
		settingsService,
		bookingRepo,
		services.DefaultNotificationConfig(),
		logger,
	)

	checkout, err := payment.NewMercadoPagoGateway(payment.MercadoPagoConfig{
		Mode:        cfg.Payment.Mode,
		AccessToken: cfg.Payment.AccessToken,
		SuccessURL:  cfg.Payment.SuccessURL,
		FailureURL:  cfg.Payment.FailureURL,
		PendingURL:  cfg.Payment.PendingURL,
		WebhookURL:  cfg.Payment.WebhookURL,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize payment gateway: %v", err)
	}
	logger.Infof("Payment gateway: %s", checkout.GetName())

	reservationService := services.NewReservationService(
		roomRepo, guestRepo, bookingRepo,
		locker, presenceStore, notificationService, checkout,
		services.ReservationConfig{
			HoldWindow:         cfg.Booking.HoldWindow,
			CleaningBufferDays: cfg.Booking.CleaningBufferDays,
			PriceTolerance:     cfg.Booking.PriceTolerance,
			Cleaning: services.CleaningSchedule{
				RatePerPeriod:    cfg.Booking.CleaningRatePerPeriod,
				PeriodLengthDays: cfg.Booking.CleaningPeriodDays,
			},
			Currency: cfg.Booking.Currency,
		},
		logger,
	)

	expirationService := services.NewBookingExpirationService(bookingRepo, presenceStore, services.ExpirationConfig{
		BookingSweepSpec:  cfg.Booking.ExpirationSweepSpec,
		PresenceSweepSpec: cfg.Presence.SweepSpec,
		AttemptSweepSpec:  cfg.RateLimit.CleanupSpec,
		JobTimeout:        30 * time.Second,
	}, logger)

	var limiter handlers.ReservationLimiter
	if cfg.RateLimit.Enabled {
		rateLimitService := services.NewRateLimitService(db, services.RateLimitConfig{
			MaxEmailRequests: cfg.RateLimit.MaxPerEmail,
			MaxIPRequests:    cfg.RateLimit.MaxPerIP,
			Window:           cfg.RateLimit.Window,
		})
		expirationService.SetAttemptCleaner(rateLimitService)
		limiter = rateLimitService
	}

	if err := expirationService.Start(); err != nil {
		logger.Fatalf("Failed to start expiration jobs: %v", err)
	}
	logger.Info("Services initialized")

	// Handlers
	reservationHandler := handlers.NewReservationHandler(reservationService, limiter, jwtService, logger)
	presenceHandler := handlers.NewPresenceHandler(presenceStore, logger)
	adminHandler := handlers.NewAdminHandler(settingsService, reservationService, presenceStore, expirationService, services.NewAuditService(db), logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	{
		reservations := v1.Group("/reservations")
		{
			reservations.POST("", reservationHandler.Reserve)
			reservations.POST("/cancel", reservationHandler.CancelPending)
			reservations.POST("/confirm", reservationHandler.Confirm)
			reservations.GET("/:id", reservationHandler.GetBooking)
			reservations.POST("/:id/checkout", reservationHandler.CreateCheckout)
		}

		v1.GET("/rooms/:id/quote", reservationHandler.Quote)
		v1.POST("/payments/webhook", reservationHandler.PaymentWebhook)

		v1.GET("/presence", presenceHandler.GetPresence)
		v1.POST("/presence", presenceHandler.UpdatePresence)

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(jwtService, logger))
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)

			admin.GET("/bookings/:id", adminHandler.GetBooking)
			admin.POST("/bookings/:id/confirm", adminHandler.ConfirmBooking)
			admin.POST("/bookings/:id/documents/:kind", adminHandler.MarkDocumentSent)

			admin.GET("/activity", adminHandler.GetActivity)
			admin.GET("/activity/stream", adminHandler.StreamActivity)

			admin.GET("/cron/status", adminHandler.GetCronStatus)
			admin.POST("/cron/sweep", adminHandler.RunExpirationSweep)

			admin.GET("/audit", adminHandler.GetAuditLog)
		}
	}

	// Create HTTP server. No write timeout: the activity stream is long-lived.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	expirationService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Waiting for pending notifications...")
	notificationService.Wait()

	logger.Info("Server exited successfully")
}

func newLocker(cfg *config.Config, logger *logrus.Logger) (lease.Locker, func()) {
	opts := lease.Options{Wait: cfg.Booking.LockWait, TTL: cfg.Booking.LockLeaseTTL}

	if cfg.Redis.Addr == "" {
		logger.Info("Lease locks are process-local (REDIS_ADDR not set)")
		return lease.NewMemoryLocker(opts), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	logger.WithField("addr", cfg.Redis.Addr).Info("Lease locks use Redis")

	return lease.NewRedisLocker(client, "rental:lease:", opts, logger), func() { _ = client.Close() }
}

func newNotifyGateways(cfg *config.Config, logger *logrus.Logger) []notify.Gateway {
	if cfg.Notification.Mode != "production" {
		logger.Info("Notifications in development mode (messages are logged, not sent)")
		return []notify.Gateway{
			notify.NewLogGateway(notify.ChannelEmail, logger),
			notify.NewLogGateway(notify.ChannelWhatsApp, logger),
		}
	}

	var gateways []notify.Gateway
	if cfg.Notification.EmailAPIURL != "" {
		gateways = append(gateways, notify.NewEmailGateway(notify.HTTPConfig{
			APIURL:   cfg.Notification.EmailAPIURL,
			APIToken: cfg.Notification.EmailAPIToken,
			From:     cfg.Notification.EmailFrom,
		}))
	}
	if cfg.Notification.WhatsAppAPIURL != "" {
		gateways = append(gateways, notify.NewWhatsAppGateway(notify.HTTPConfig{
			APIURL:   cfg.Notification.WhatsAppAPIURL,
			APIToken: cfg.Notification.WhatsAppAPIToken,
		}))
	}
	return gateways
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

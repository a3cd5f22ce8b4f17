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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/config"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/handlers"
	"github.com/slotline/booking-backend/internal/metrics"
	"github.com/slotline/booking-backend/internal/middleware"
	"github.com/slotline/booking-backend/internal/realtime"
	"github.com/slotline/booking-backend/internal/services"
	"github.com/slotline/booking-backend/pkg/jwt"
	"github.com/slotline/booking-backend/pkg/mail"
	"github.com/slotline/booking-backend/pkg/validator"
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

	logger.Info("Starting Slotline Booking Backend")
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

	// Connect to database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Connect to Redis for the realtime change feed. The API stays up
	// without it, but change events will not reach websocket clients.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(redisCtx).Err(); err != nil {
		logger.Warnf("Redis unavailable, realtime feed degraded: %v", err)
	} else {
		logger.Infof("Redis connection established (%s)", cfg.Redis.Addr)
	}
	redisCancel()
	defer redisClient.Close()

	// Initialize JWT service
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Initialize mail gateway
	mailGateway := mail.NewGateway(mail.Config{
		APIURL:      cfg.Mail.APIURL,
		APIKey:      cfg.Mail.APIKey,
		SenderName:  cfg.Mail.SenderName,
		SenderEmail: cfg.Mail.SenderEmail,
		Mode:        cfg.Mail.Mode,
	})
	if cfg.Mail.Mode != "production" {
		logger.Info("Mail gateway in development mode (mail is logged, not sent)")
	}

	emailValidator := validator.NewEmailValidator(cfg.Mail.BlockFakeDomains)

	// Initialize repositories
	userRepository := database.NewUserRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	userSessionRepository := database.NewUserSessionRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	serviceRepository := database.NewServiceRepository(db)
	locationRepository := database.NewLocationRepository(db)
	availabilityRepository := database.NewAvailabilityRepository(db)
	settingRepository := database.NewSettingRepository(db)
	paymentRepository := database.NewPaymentRepository(db)

	// Initialize services
	otpService := services.NewOTPService(db)
	rateLimitService := services.NewRateLimitService(db)
	auditService := services.NewAuditService(db)

	settingsService := services.NewSettingsService(settingRepository)
	if err := settingsService.ValidateAll(); err != nil {
		logger.Fatalf("Invalid settings in database: %v", err)
	}

	sessionService := services.NewSessionService(
		userSessionRepository,
		settingsService.SessionActiveMinutes(cfg.Booking.SessionActiveMinutes),
	)

	authService := services.NewAuthService(
		userRepository,
		refreshTokenRepository,
		otpService,
		rateLimitService,
		auditService,
		jwtService,
		mailGateway,
		emailValidator,
		cfg.Security.BcryptCost,
	)

	mailService := services.NewMailService(
		mailGateway,
		userRepository,
		serviceRepository,
		emailValidator,
	)

	changePublisher := realtime.NewPublisher(redisClient, cfg.Redis.Channel)

	bookingService := services.NewBookingService(
		bookingRepository,
		serviceRepository,
		userRepository,
		changePublisher,
		mailService,
	)

	availabilityService := services.NewAvailabilityService(
		availabilityRepository,
		userRepository,
		cfg.Booking.CalendarDayStart,
		cfg.Booking.CalendarDayEnd,
	)

	calendarService := services.NewCalendarService(
		bookingRepository,
		serviceRepository,
		userRepository,
		availabilityRepository,
	)

	logger.Info("Services initialized")

	// Start the background maintenance jobs
	cronService := services.NewCronService(
		otpService,
		rateLimitService,
		sessionService,
		refreshTokenRepository,
		auditService,
	)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - Maintenance jobs enabled")

	// Bridge the Redis change channel onto the websocket hub
	hub := realtime.NewHub()
	subscriber := realtime.NewSubscriber(redisClient, cfg.Redis.Channel, hub)
	feedCtx, feedCancel := context.WithCancel(context.Background())
	go subscriber.Run(feedCtx)

	// Register Prometheus collectors
	metrics.Register()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sessionService)
	profileHandler := handlers.NewProfileHandler(userRepository)
	bookingHandler := handlers.NewBookingHandler(bookingService, auditService)
	calendarHandler := handlers.NewCalendarHandler(calendarService)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	serviceHandler := handlers.NewServiceHandler(serviceRepository)
	locationHandler := handlers.NewLocationHandler(locationRepository)
	settingHandler := handlers.NewSettingHandler(settingsService, auditService)
	paymentHandler := handlers.NewPaymentHandler(paymentRepository, bookingRepository)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	functionHandler := handlers.NewFunctionHandler(mailService, bookingService)
	wsHandler := handlers.NewWSHandler(hub)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger())
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Per-IP rate limiting across the whole API
	rateLimiter := middleware.NewRateLimiter(
		float64(cfg.RateLimit.Requests)/float64(cfg.RateLimit.WindowSeconds),
		cfg.RateLimit.Requests,
	)
	router.Use(rateLimiter.Limit())

	// Health check and metrics endpoints
	router.GET("/health", healthCheckHandler(db, redisClient))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Function endpoints mirror the hosted function call convention:
	// POST with a JSON body, {"success": ...} envelope back
	functions := router.Group("/functions")
	{
		functions.POST("/send-booking-created-email", functionHandler.SendBookingCreatedEmail)
		functions.POST("/send-booking-status-email", functionHandler.SendBookingStatusEmail)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/verify-otp", authHandler.VerifyOTP)
			auth.POST("/resend-otp", authHandler.ResendOTP)
			auth.POST("/recovery", authHandler.RequestRecovery)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Routes that require a valid access token
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		authed.Use(middleware.TouchSession(sessionService))
		{
			authed.POST("/auth/signout", authHandler.SignOut)

			authed.GET("/profile", profileHandler.Get)
			authed.PUT("/profile", profileHandler.Update)

			// Realtime change feed
			authed.GET("/ws", wsHandler.Feed)

			// Everything below needs a verified email address
			verified := authed.Group("")
			verified.Use(middleware.RequireVerifiedEmail())
			{
				bookings := verified.Group("/bookings")
				{
					bookings.POST("", bookingHandler.Create)
					bookings.GET("", bookingHandler.List)
					bookings.GET("/mine", bookingHandler.ListMine)
					bookings.GET("/stats", bookingHandler.Stats)
					bookings.GET("/:id", bookingHandler.Get)
					bookings.PUT("/:id", bookingHandler.Update)
					bookings.PATCH("/:id/status", bookingHandler.UpdateStatus)
					bookings.GET("/:id/payments", paymentHandler.ListByBooking)
					bookings.POST("/block", bookingHandler.BlockSlot)
					bookings.DELETE("/block/:id", bookingHandler.ReleaseSlot)
				}

				verified.GET("/calendar", calendarHandler.GetView)

				availability := verified.Group("/availability")
				{
					availability.GET("", availabilityHandler.List)
					availability.PUT("", availabilityHandler.SetWindow)
					availability.POST("/mark-month", availabilityHandler.MarkMonth)
				}

				verified.GET("/services", serviceHandler.List)
				verified.GET("/services/:id", serviceHandler.Get)

				verified.GET("/locations", locationHandler.List)
				verified.GET("/locations/:id", locationHandler.Get)

				verified.GET("/settings", settingHandler.List)

				payments := verified.Group("/payments")
				{
					payments.POST("", paymentHandler.Record)
					payments.PATCH("/:id/status", paymentHandler.UpdateStatus)
				}

				// Admin and manager routes
				admin := verified.Group("")
				admin.Use(middleware.RequireRole("admin", "manager"))
				{
					admin.POST("/services", serviceHandler.Create)
					admin.PUT("/services/:id", serviceHandler.Update)
					admin.DELETE("/services/:id", serviceHandler.Deactivate)

					admin.POST("/locations", locationHandler.Create)
					admin.PUT("/locations/:id", locationHandler.Update)

					admin.PUT("/settings/:category/:key", settingHandler.Update)

					admin.GET("/payments/revenue", paymentHandler.Revenue)

					admin.GET("/users/connected", sessionHandler.ConnectedUsers)
				}
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	// Stop cron service and the change feed bridge
	cronService.Stop()
	feedCancel()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		// Redis is optional, report but do not fail
		redisStatus := "healthy"
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "unhealthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"redis":     redisStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

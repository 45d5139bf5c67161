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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/garagehub/funnel-api/internal/catalog"
	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/handlers"
	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/garagehub/funnel-api/internal/middleware"
	"github.com/garagehub/funnel-api/internal/observability"
	"github.com/garagehub/funnel-api/internal/otp"
	"github.com/garagehub/funnel-api/internal/services"
	"github.com/garagehub/funnel-api/internal/sessionstore"

	_ "github.com/garagehub/funnel-api/docs"
)

// @title           Funnel API
// @version         1.0
// @description     Backend for the car-service booking funnel: the vehicle selection wizard, phone OTP verification and the session hand-off between funnel pages.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /v1

// @tag.name funnel
// @tag.description Vehicle selection wizard operations

// @tag.name otp
// @tag.description Phone verification operations

// @tag.name session
// @tag.description Session hand-off records

// @tag.name health
// @tag.description Health check operations

// @tag.name catalog
// @tag.description Catalog cache operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize Redis
	config.InitRedis()

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build the OTP provider from configuration; callers never see which
	// one is behind the interface
	var provider otp.Provider
	switch config.AppConfig.OTPProvider {
	case config.OTPProviderFirebase:
		provider = otp.NewFirebaseProvider(
			config.AppConfig.FirebaseBaseURL,
			config.AppConfig.FirebaseAPIKey,
			otp.ContextTokenSource{},
		)
	default:
		provider = otp.NewTwoFactorProvider(
			config.AppConfig.TwoFactorBaseURL,
			config.AppConfig.TwoFactorAPIKey,
		)
	}

	// Wire services
	catalogClient := catalog.NewClient()
	store := sessionstore.NewStore()
	funnelService := services.NewFunnelService(catalogClient, logging.Logger)
	otpService := services.NewOTPService(provider, logging.Logger)
	submitService := services.NewSubmitService(store, logging.Logger)

	funnelHandlers := handlers.NewFunnelHandlers(
		logging.Logger, funnelService, otpService, submitService, store, catalogClient)
	otpHandlers := handlers.NewOTPHandlers(logging.Logger, otpService)

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		v1.POST("/funnel", funnelHandlers.CreateSession)
		v1.GET("/funnel/:sid", funnelHandlers.GetState)
		v1.POST("/funnel/:sid/picker", funnelHandlers.OpenPicker)
		v1.POST("/funnel/:sid/brand", funnelHandlers.SelectBrand)
		v1.POST("/funnel/:sid/model", funnelHandlers.SelectModel)
		v1.POST("/funnel/:sid/fuel", funnelHandlers.SelectFuel)
		v1.POST("/funnel/:sid/year", funnelHandlers.SelectYear)
		v1.POST("/funnel/:sid/back", funnelHandlers.Back)
		v1.PUT("/funnel/:sid/search", funnelHandlers.SetSearch)
		v1.POST("/funnel/:sid/submit", funnelHandlers.Submit)
		v1.GET("/funnel/:sid/selection", funnelHandlers.GetSelection)
		v1.PUT("/funnel/:sid/cart", funnelHandlers.PutCart)
		v1.GET("/funnel/:sid/cart", funnelHandlers.GetCart)

		v1.POST("/funnel/:sid/otp/send", otpHandlers.SendOTP)
		v1.POST("/funnel/:sid/otp/verify", otpHandlers.VerifyOTP)
		v1.GET("/funnel/:sid/otp", otpHandlers.GetOTPStatus)

		v1.POST("/catalog/refresh", funnelHandlers.RefreshCatalog)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server",
			zap.Int("port", config.AppConfig.Port),
			zap.String("environment", config.AppConfig.Environment),
			zap.String("otp_provider", config.AppConfig.OTPProvider),
			zap.String("submit_mode", config.AppConfig.SubmitMode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("server exited gracefully")
}

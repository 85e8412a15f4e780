package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordanlanch/showcasely/config"
	"github.com/jordanlanch/showcasely/pkg/container"
	"github.com/jordanlanch/showcasely/pkg/jobs"
	custommiddleware "github.com/jordanlanch/showcasely/pkg/middleware"
	"github.com/jordanlanch/showcasely/pkg/tenant"
)

// @title Showcasely API
// @version 1.0
// @description Multi-tenant checkout showcase backend: subdomain routing, billing sync, webhooks and license keys
// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🚀 Starting Showcasely API in %s mode", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.APIEnvironment,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Printf("⚠️ Sentry initialization failed: %v", err)
		} else {
			log.Println("✅ Sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Build the dependency container
	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize container: %v", err)
	}
	defer c.Close()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Tenant subdomain rewrite must run before routing
	e.Pre(tenant.Middleware(cfg.RootDomain, cfg.LocalHost))
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Middleware
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMiddleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}

	e.Use(c.Metrics.Middleware())

	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Stripe-Signature"},
	}))
	e.Use(echoMiddleware.Gzip())
	e.Use(echoMiddleware.Secure())

	// Global rate limiting by client IP
	rateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	e.Use(rateLimiter.RateLimitMiddleware())

	// Root endpoint
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":        "Showcasely API",
			"version":     "1.0",
			"environment": cfg.APIEnvironment,
		})
	})

	// Health check
	e.GET("/health", func(ec echo.Context) error {
		ctx, cancel := context.WithTimeout(ec.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		health := map[string]string{"status": "ok"}

		if err := c.PingStore(ctx); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if c.Cache != nil {
			if err := c.Cache.Ping(ctx); err != nil {
				health["status"] = "degraded"
				health["cache"] = err.Error()
			}
		}

		return ec.JSON(status, health)
	})

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API routes
	v1 := e.Group("/api/v1")

	// Billing webhooks get their own generous limiter: provider bursts
	// must not contend with browser traffic for the global budget.
	webhookLimiter := custommiddleware.NewRateLimiter(600, 100)
	v1.POST("/webhook/billing", c.WebhookHandler.HandleBillingWebhook, webhookLimiter.RateLimitMiddleware())

	// License validation is public, called from customer deployments
	v1.GET("/validate/:licenseKey", c.LicenseHandler.Validate)

	// Showcase management (dashboard, authenticated)
	showcases := v1.Group("/showcases", custommiddleware.JWTAuth(cfg.JWTSecret))
	showcases.POST("", c.ShowcaseHandler.Create)
	showcases.GET("", c.ShowcaseHandler.List)
	showcases.GET("/:id", c.ShowcaseHandler.Get)
	showcases.PUT("/:id", c.ShowcaseHandler.Update)
	showcases.DELETE("/:id", c.ShowcaseHandler.Delete)

	// Tenant sites. Only the subdomain rewrite produces these paths;
	// direct requests are rejected before routing.
	sites := e.Group(tenant.SitesPrefix + "/:domain")
	sites.GET("", c.SiteHandler.Pricing)
	sites.GET("/checkout/:priceId", c.SiteHandler.Checkout)
	sites.GET("/portal/:subscriptionId", c.SiteHandler.Portal)
	sites.POST("/portal/:subscriptionId/cancel", c.SiteHandler.CancelSubscription)
	sites.POST("/portal/:subscriptionId/resume", c.SiteHandler.ResumeSubscription)
	sites.POST("/portal/:subscriptionId/license", c.SiteHandler.ResetLicense)
	sites.PATCH("/portal/:subscriptionId/customer", c.SiteHandler.UpdateCustomerInfo)

	// Scheduled jobs
	cronManager := jobs.NewCronManager(c.SubscriptionService, log.Default())
	if err := cronManager.SetupJobs(cfg.ReconcileSchedule); err != nil {
		log.Fatalf("❌ Failed to set up cron jobs: %v", err)
	}
	cronManager.Start()

	// Start server
	go func() {
		addr := cfg.APIHost + ":" + cfg.APIPort
		log.Printf("🌐 Server listening on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	cronManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited")
}

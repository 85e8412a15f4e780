// Package container wires the application graph: infrastructure first,
// then services, then handlers.
package container

import (
	"context"

	"github.com/jordanlanch/showcasely/config"
	"github.com/jordanlanch/showcasely/pkg/api/handlers"
	"github.com/jordanlanch/showcasely/pkg/billing"
	"github.com/jordanlanch/showcasely/pkg/cache"
	"github.com/jordanlanch/showcasely/pkg/catalog"
	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/domains"
	"github.com/jordanlanch/showcasely/pkg/email"
	"github.com/jordanlanch/showcasely/pkg/license"
	"github.com/jordanlanch/showcasely/pkg/logger"
	"github.com/jordanlanch/showcasely/pkg/metrics"
	"github.com/jordanlanch/showcasely/pkg/pricing"
	"github.com/jordanlanch/showcasely/pkg/store"
	"github.com/jordanlanch/showcasely/pkg/subscription"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Metrics

	// Infrastructure
	Store    store.Store
	Cache    *cache.Client
	Provider billing.Provider

	// Services
	CatalogService      *catalog.Service
	PricingService      *pricing.Service
	SubscriptionService *subscription.Service
	LicenseService      *license.Service
	EmailService        *email.Service

	// Handlers
	ShowcaseHandler *handlers.ShowcaseHandler
	SiteHandler     *handlers.SiteHandler
	WebhookHandler  *handlers.WebhookHandler
	LicenseHandler  *handlers.LicenseHandler

	pg *store.Postgres
}

// New creates and initializes all application dependencies
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger.New(cfg.LogLevel, cfg.LogFormat),
		Metrics: metrics.New(),
	}

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	c.initServices()
	c.initHandlers()

	c.Logger.Info("Container initialized successfully",
		"environment", cfg.APIEnvironment,
		"root_domain", cfg.RootDomain)

	return c, nil
}

// initInfrastructure initializes storage and cache connections. An
// empty DATABASE_URL selects the in-memory store, an empty REDIS_URL
// disables caching; both keep local development dependency-free.
func (c *Container) initInfrastructure() error {
	if c.Config.DatabaseURL != "" {
		pg, err := store.NewPostgres(context.Background(), c.Config.DatabaseURL)
		if err != nil {
			c.Logger.Error("Failed to connect to database", "error", err)
			return err
		}
		c.pg = pg
		c.Store = pg
		c.Logger.Info("Storage initialized", "backend", "postgres")
	} else {
		c.Store = store.NewMemory()
		c.Logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	if c.Config.RedisURL != "" {
		cacheClient, err := cache.NewClient(c.Config.RedisURL)
		if err != nil {
			c.Logger.Error("Failed to connect to cache", "error", err)
			return err
		}
		c.Cache = cacheClient
		c.Logger.Info("Cache initialized", "backend", "redis")
	} else {
		c.Logger.Warn("REDIS_URL not set, caching disabled")
	}

	return nil
}

// initServices initializes all domain services
func (c *Container) initServices() {
	c.Provider = billing.NewStripeProvider(&billing.StripeConfig{
		SecretKey:     c.Config.StripeSecretKey,
		WebhookSecret: c.Config.StripeWebhookSecret,
	})

	c.EmailService = email.NewService(
		c.Config.SendGridAPIKey,
		c.Config.EmailFrom,
		c.Config.EmailFromName,
	)

	// Subdomains are registered with the hosting platform in production
	// only; local subdomains resolve through the wildcard host rule.
	var registrar catalog.DomainRegistrar
	if c.Config.IsProduction() && c.Config.VercelToken != "" {
		registrar = domains.NewVercelRegistrar(c.Config.VercelToken, c.Config.VercelProjectID, c.Logger)
	}

	var cacheRepo domain.CacheRepository
	if c.Cache != nil {
		cacheRepo = c.Cache
	}

	c.CatalogService = catalog.NewService(c.Store, c.Provider, cacheRepo, registrar, c.Logger)
	c.PricingService = pricing.NewService(c.CatalogService, c.Store, cacheRepo, c.Logger)
	c.SubscriptionService = subscription.NewService(c.Store, c.Provider, c.EmailService, c.Logger)
	c.LicenseService = license.NewService(c.Store)

	c.Logger.Info("Services initialized",
		"catalog_service", "ready",
		"pricing_service", "ready",
		"subscription_service", "ready",
		"license_service", "ready")
}

// initHandlers initializes all HTTP handlers
func (c *Container) initHandlers() {
	c.ShowcaseHandler = handlers.NewShowcaseHandler(c.CatalogService, c.Config.RootDomain)
	c.SiteHandler = handlers.NewSiteHandler(c.PricingService, c.SubscriptionService, c.LicenseService)
	c.WebhookHandler = handlers.NewWebhookHandler(c.SubscriptionService, c.Metrics)
	c.LicenseHandler = handlers.NewLicenseHandler(c.LicenseService)

	c.Logger.Info("Handlers initialized")
}

// PingStore checks storage liveness. The in-memory store is always up.
func (c *Container) PingStore(ctx context.Context) error {
	if c.pg != nil {
		return c.pg.Ping(ctx)
	}
	return nil
}

// Close closes all resources
func (c *Container) Close() error {
	c.Logger.Info("Shutting down container...")

	if c.pg != nil {
		c.pg.Close()
	}

	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Error("Failed to close cache", "error", err)
			return err
		}
	}

	c.Logger.Info("Container shutdown complete")
	return nil
}

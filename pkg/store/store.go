package store

import (
	"context"
	"errors"
)

// Sentinel errors returned by Store implementations
var (
	// ErrNotFound indicates the requested row does not exist
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate indicates a unique constraint violation (subdomain,
	// external subscription id, license key)
	ErrDuplicate = errors.New("store: duplicate")
)

// Store defines data access for showcases, products, prices and
// subscription projections. Implementations rely on row-level atomicity
// (unique constraints, single-row updates) rather than application locks.
type Store interface {
	// Showcases
	CreateShowcase(ctx context.Context, s *Showcase) error
	GetShowcase(ctx context.Context, id string) (*Showcase, error)
	GetShowcaseBySubdomain(ctx context.Context, subdomain string) (*Showcase, error)
	ListShowcasesByUser(ctx context.Context, userID string) ([]*Showcase, error)
	UpdateShowcase(ctx context.Context, s *Showcase) error
	// DeleteShowcase cascades to the showcase's products and prices
	DeleteShowcase(ctx context.Context, id string) error

	// Products
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProductsByShowcase(ctx context.Context, showcaseID string) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	// DeleteProduct cascades to the product's prices
	DeleteProduct(ctx context.Context, id string) error

	// Prices
	CreatePrice(ctx context.Context, p *Price) error
	GetPriceByExternalID(ctx context.Context, externalID string) (*Price, error)
	ListPricesByProduct(ctx context.Context, productID string) ([]*Price, error)
	ListPricesByShowcase(ctx context.Context, showcaseID string) ([]*Price, error)
	UpdatePrice(ctx context.Context, p *Price) error
	DeletePrice(ctx context.Context, id string) error

	// Subscriptions
	// UpsertSubscription inserts a new projection row or, when a row with
	// the same external id already exists, updates only its status and
	// scheduled-cancel flag. The existing license key is preserved so
	// duplicate created-webhook deliveries cannot rotate it.
	UpsertSubscription(ctx context.Context, s *Subscription) error
	GetSubscriptionByExternalID(ctx context.Context, externalID string) (*Subscription, error)
	GetSubscriptionByLicenseKey(ctx context.Context, licenseKey string) (*Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, externalID, status string, scheduledToCancel bool) error
	UpdateLicenseKey(ctx context.Context, externalID, licenseKey string) error
	ListSubscriptions(ctx context.Context) ([]*Subscription, error)
}

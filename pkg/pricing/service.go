// Package pricing assembles the public tenant-facing read models: the
// pricing page and the denormalized checkout view. Both are cached per
// tenant; catalog mutations invalidate the whole tenant namespace.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/showcasely/pkg/catalog"
	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/logger"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/store"
)

const cacheTTL = 5 * time.Minute

// Service serves pricing pages and checkout views
type Service struct {
	catalog *catalog.Service
	store   store.Store
	cache   domain.CacheRepository
	logger  logger.Logger
}

// NewService creates a pricing service. cache may be nil.
func NewService(c *catalog.Service, s store.Store, cache domain.CacheRepository, log logger.Logger) *Service {
	return &Service{
		catalog: c,
		store:   s,
		cache:   cache,
		logger:  log,
	}
}

func (s *Service) cached(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Warn("failed to decode cached view", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) storeCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), cacheTTL); err != nil {
		s.logger.Warn("failed to cache view", "key", key, "error", err)
	}
}

// PricingPage returns the full catalog view for a tenant's pricing page
func (s *Service) PricingPage(ctx context.Context, subdomain string) (*models.ShowcaseResponse, error) {
	key := "tenant:" + subdomain + ":catalog"

	var cached models.ShowcaseResponse
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	resp, err := s.catalog.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	s.storeCache(ctx, key, resp)
	return resp, nil
}

// Checkout builds the checkout view for one price of a tenant's catalog.
// The price is addressed by its EXTERNAL id: that is what the storefront
// embeds in checkout links and hands to the provider's payment widget.
// When the owning product carries the complementary monthly or annual
// price, it rides along as the alternative; a product without one simply
// has no alternative, which is not an error.
func (s *Service) Checkout(ctx context.Context, subdomain, externalPriceID string) (*models.CheckoutResponse, error) {
	key := fmt.Sprintf("tenant:%s:checkout:%s", subdomain, externalPriceID)

	var cached models.CheckoutResponse
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	sc, err := s.store.GetShowcaseBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("showcase")
		}
		return nil, fmt.Errorf("failed to load showcase: %w", err)
	}

	prices, err := s.store.ListPricesByShowcase(ctx, sc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}

	// Matching within the tenant's own price list keeps another
	// tenant's external ids from resolving here.
	var selected *store.Price
	for _, p := range prices {
		if p.ExternalPriceID == externalPriceID {
			selected = p
			break
		}
	}
	if selected == nil {
		return nil, domain.NewNotFoundError("price")
	}

	product, err := s.store.GetProduct(ctx, selected.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	resp := &models.CheckoutResponse{
		CompanyName: sc.CompanyName,
		LogoURL:     sc.LogoURL,
		BrandColor:  sc.BrandColor,
		Subdomain:   sc.Subdomain,
		ProductName: product.Name,
		Price:       catalog.PriceToResponse(selected),
	}

	if alt := alternativeFor(selected, prices); alt != nil {
		altResp := catalog.PriceToResponse(alt)
		resp.AlternativePrice = &altResp
	}

	s.storeCache(ctx, key, resp)
	return resp, nil
}

// alternativeFor finds the complementary billing-cycle price within the
// same product: annual for a monthly price, monthly for an annual one.
// Other intervals have no alternative.
func alternativeFor(selected *store.Price, prices []*store.Price) *store.Price {
	var want string
	switch selected.RecurringInterval {
	case store.IntervalMonth:
		want = store.IntervalYear
	case store.IntervalYear:
		want = store.IntervalMonth
	default:
		return nil
	}

	for _, p := range prices {
		if p.ID == selected.ID || p.ProductID != selected.ProductID {
			continue
		}
		if p.RecurringInterval == want {
			return p
		}
	}
	return nil
}

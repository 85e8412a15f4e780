// Package catalog keeps each showcase's product and price rows
// synchronized with the billing provider. The local row id is the sync
// key: external provider ids are mutable attributes that may be
// replaced, local ids never change.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jordanlanch/showcasely/pkg/billing"
	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/logger"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/store"
	"github.com/jordanlanch/showcasely/pkg/tenant"
)

// DefaultCurrency is applied to every provider price
const DefaultCurrency = "usd"

const catalogCacheTTL = 5 * time.Minute

// Service owns the showcase lifecycle and catalog synchronization
type Service struct {
	store     store.Store
	provider  billing.Provider
	cache     domain.CacheRepository
	registrar DomainRegistrar
	validate  *validator.Validate
	logger    logger.Logger
}

// DomainRegistrar registers a tenant's fully-qualified subdomain with
// the hosting platform. Nil means registration is skipped (development).
type DomainRegistrar interface {
	RegisterDomain(ctx context.Context, domain string) error
}

// NewService creates a catalog service. cache and registrar may be nil.
func NewService(s store.Store, p billing.Provider, cache domain.CacheRepository, registrar DomainRegistrar, log logger.Logger) *Service {
	v := validator.New()
	_ = v.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
		return tenant.ValidSubdomain(fl.Field().String())
	})

	return &Service{
		store:     s,
		provider:  p,
		cache:     cache,
		registrar: registrar,
		validate:  v,
		logger:    log,
	}
}

func (s *Service) validateRequest(req *models.ShowcaseRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
			}
			return domain.NewValidationError(strings.Join(msgs, "; "))
		}
		return domain.NewValidationError(err.Error())
	}

	// Client-generated ids must be unique within one submission,
	// otherwise the diff below is ambiguous.
	productIDs := make(map[string]bool)
	priceIDs := make(map[string]bool)
	for _, p := range req.Products {
		if productIDs[p.ID] {
			return domain.NewValidationError(fmt.Sprintf("duplicate product id %s", p.ID))
		}
		productIDs[p.ID] = true
		for _, pr := range p.Prices {
			if priceIDs[pr.ID] {
				return domain.NewValidationError(fmt.Sprintf("duplicate price id %s", pr.ID))
			}
			priceIDs[pr.ID] = true
		}
	}
	return nil
}

// requireOwner loads a showcase and verifies ownership
func (s *Service) requireOwner(ctx context.Context, userID, showcaseID string) (*store.Showcase, error) {
	sc, err := s.store.GetShowcase(ctx, showcaseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("showcase")
		}
		return nil, fmt.Errorf("failed to load showcase: %w", err)
	}
	if sc.UserID != userID {
		return nil, domain.NewForbiddenError("you do not own this showcase")
	}
	return sc, nil
}

func (s *Service) invalidate(ctx context.Context, subdomain string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "tenant:"+subdomain+":*"); err != nil {
		s.logger.Warn("failed to invalidate tenant cache", "subdomain", subdomain, "error", err)
	}
}

// Create provisions a showcase: branding row, platform subdomain
// registration, then an initial catalog sync against the provider
func (s *Service) Create(ctx context.Context, userID string, req *models.ShowcaseRequest, rootDomain string) (*models.ShowcaseResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	sc := &store.Showcase{
		ID:          uuid.NewString(),
		UserID:      userID,
		CompanyName: req.CompanyName,
		LogoURL:     req.LogoURL,
		BrandColor:  req.BrandColor,
		Subdomain:   strings.ToLower(req.Subdomain),
	}
	if err := s.store.CreateShowcase(ctx, sc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewConflictError("subdomain already taken")
		}
		return nil, fmt.Errorf("failed to create showcase: %w", err)
	}

	if s.registrar != nil {
		fqdn := sc.Subdomain + "." + rootDomain
		if err := s.registrar.RegisterDomain(ctx, fqdn); err != nil {
			// Roll the row back so the subdomain is not squatted by a
			// showcase nobody can reach.
			if derr := s.store.DeleteShowcase(ctx, sc.ID); derr != nil {
				s.logger.Error("failed to roll back showcase after domain registration failure", "showcase_id", sc.ID, "error", derr)
			}
			return nil, domain.NewInternalError(fmt.Errorf("failed to register domain %s: %w", fqdn, err))
		}
	}

	if err := s.syncCatalog(ctx, sc.ID, req.Products); err != nil {
		return nil, err
	}

	s.invalidate(ctx, sc.Subdomain)
	return s.buildResponse(ctx, sc)
}

// Update applies branding changes and re-synchronizes the catalog to the
// submitted desired state
func (s *Service) Update(ctx context.Context, userID, showcaseID string, req *models.ShowcaseRequest) (*models.ShowcaseResponse, error) {
	sc, err := s.requireOwner(ctx, userID, showcaseID)
	if err != nil {
		return nil, err
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	sc.CompanyName = req.CompanyName
	sc.LogoURL = req.LogoURL
	sc.BrandColor = req.BrandColor
	if err := s.store.UpdateShowcase(ctx, sc); err != nil {
		return nil, fmt.Errorf("failed to update showcase: %w", err)
	}

	if err := s.syncCatalog(ctx, sc.ID, req.Products); err != nil {
		return nil, err
	}

	s.invalidate(ctx, sc.Subdomain)
	return s.buildResponse(ctx, sc)
}

// Delete archives the showcase's provider objects and removes all local
// rows. Archival failures are logged, never fatal: the provider keeps an
// orphaned but inactive object, the local catalog goes away regardless.
func (s *Service) Delete(ctx context.Context, userID, showcaseID string) error {
	sc, err := s.requireOwner(ctx, userID, showcaseID)
	if err != nil {
		return err
	}

	prices, err := s.store.ListPricesByShowcase(ctx, showcaseID)
	if err != nil {
		return fmt.Errorf("failed to list prices: %w", err)
	}
	for _, pr := range prices {
		if err := s.provider.ArchivePrice(ctx, pr.ExternalPriceID); err != nil {
			s.logger.Warn("failed to archive price", "price_id", pr.ID, "external_price_id", pr.ExternalPriceID, "error", err)
		}
	}

	products, err := s.store.ListProductsByShowcase(ctx, showcaseID)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	for _, p := range products {
		if err := s.provider.ArchiveProduct(ctx, p.ExternalProductID); err != nil {
			s.logger.Warn("failed to archive product", "product_id", p.ID, "external_product_id", p.ExternalProductID, "error", err)
		}
	}

	if err := s.store.DeleteShowcase(ctx, showcaseID); err != nil {
		return fmt.Errorf("failed to delete showcase: %w", err)
	}

	s.invalidate(ctx, sc.Subdomain)
	return nil
}

// Get returns a showcase with its catalog, enforcing ownership
func (s *Service) Get(ctx context.Context, userID, showcaseID string) (*models.ShowcaseResponse, error) {
	sc, err := s.requireOwner(ctx, userID, showcaseID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, sc)
}

// List returns all showcases owned by a user, each with its catalog
func (s *Service) List(ctx context.Context, userID string) ([]*models.ShowcaseResponse, error) {
	rows, err := s.store.ListShowcasesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list showcases: %w", err)
	}
	out := make([]*models.ShowcaseResponse, 0, len(rows))
	for _, sc := range rows {
		resp, err := s.buildResponse(ctx, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetBySubdomain returns the public catalog view for a tenant page
func (s *Service) GetBySubdomain(ctx context.Context, subdomain string) (*models.ShowcaseResponse, error) {
	sc, err := s.store.GetShowcaseBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("showcase")
		}
		return nil, fmt.Errorf("failed to load showcase: %w", err)
	}
	return s.buildResponse(ctx, sc)
}

// syncCatalog reconciles the desired catalog against local and provider
// state. Per row the provider call runs first and the local write only
// after it succeeds, so an abort can leave missing rows but never rows
// pointing at provider objects that were not confirmed. Re-running the
// same desired catalog converges.
func (s *Service) syncCatalog(ctx context.Context, showcaseID string, desired []models.ProductInput) error {
	existingProducts, err := s.store.ListProductsByShowcase(ctx, showcaseID)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	existingPrices, err := s.store.ListPricesByShowcase(ctx, showcaseID)
	if err != nil {
		return fmt.Errorf("failed to list prices: %w", err)
	}

	productByID := make(map[string]*store.Product, len(existingProducts))
	for _, p := range existingProducts {
		productByID[p.ID] = p
	}
	priceByID := make(map[string]*store.Price, len(existingPrices))
	for _, p := range existingPrices {
		priceByID[p.ID] = p
	}

	seenProducts := make(map[string]bool, len(desired))
	seenPrices := make(map[string]bool)

	for _, dp := range desired {
		seenProducts[dp.ID] = true

		var externalProductID string
		if existing, ok := productByID[dp.ID]; ok {
			if err := s.provider.UpdateProduct(ctx, existing.ExternalProductID, dp.Name); err != nil {
				return domain.NewProviderError("product update", err)
			}
			existing.Name = dp.Name
			if err := s.store.UpdateProduct(ctx, existing); err != nil {
				return fmt.Errorf("failed to update product %s: %w", dp.ID, err)
			}
			externalProductID = existing.ExternalProductID
		} else {
			extID, err := s.provider.CreateProduct(ctx, dp.Name)
			if err != nil {
				return domain.NewProviderError("product create", err)
			}
			if err := s.store.CreateProduct(ctx, &store.Product{
				ID:                dp.ID,
				ShowcaseID:        showcaseID,
				Name:              dp.Name,
				ExternalProductID: extID,
			}); err != nil {
				return fmt.Errorf("failed to create product %s: %w", dp.ID, err)
			}
			externalProductID = extID
		}

		for _, dpr := range dp.Prices {
			seenPrices[dpr.ID] = true

			params := billing.PriceParams{
				Name:          dpr.Name,
				AmountInCents: int64(dpr.BasePriceInCents),
				Currency:      DefaultCurrency,
				Interval:      dpr.RecurringInterval,
				Frequency:     dpr.RecurringFrequency,
			}

			if existing, ok := priceByID[dpr.ID]; ok {
				newExtID, err := s.provider.UpdatePrice(ctx, existing.ExternalPriceID, externalProductID, params)
				if err != nil {
					return domain.NewProviderError("price update", err)
				}
				existing.Name = dpr.Name
				existing.BasePriceInCents = dpr.BasePriceInCents
				existing.PriceQuantity = dpr.PriceQuantity
				existing.RecurringInterval = dpr.RecurringInterval
				existing.RecurringFrequency = dpr.RecurringFrequency
				existing.ExternalPriceID = newExtID
				if err := s.store.UpdatePrice(ctx, existing); err != nil {
					return fmt.Errorf("failed to update price %s: %w", dpr.ID, err)
				}
			} else {
				extID, err := s.provider.CreatePrice(ctx, externalProductID, params)
				if err != nil {
					return domain.NewProviderError("price create", err)
				}
				if err := s.store.CreatePrice(ctx, &store.Price{
					ID:                 dpr.ID,
					ProductID:          dp.ID,
					Name:               dpr.Name,
					BasePriceInCents:   dpr.BasePriceInCents,
					PriceQuantity:      dpr.PriceQuantity,
					RecurringInterval:  dpr.RecurringInterval,
					RecurringFrequency: dpr.RecurringFrequency,
					ExternalPriceID:    extID,
				}); err != nil {
					return fmt.Errorf("failed to create price %s: %w", dpr.ID, err)
				}
			}
		}
	}

	// Removals. Prices first so no price ever outlives its product.
	for _, pr := range existingPrices {
		if seenPrices[pr.ID] {
			continue
		}
		if err := s.provider.ArchivePrice(ctx, pr.ExternalPriceID); err != nil {
			s.logger.Warn("failed to archive price", "price_id", pr.ID, "external_price_id", pr.ExternalPriceID, "error", err)
		}
		if err := s.store.DeletePrice(ctx, pr.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete price %s: %w", pr.ID, err)
		}
	}
	for _, p := range existingProducts {
		if seenProducts[p.ID] {
			continue
		}
		if err := s.provider.ArchiveProduct(ctx, p.ExternalProductID); err != nil {
			s.logger.Warn("failed to archive product", "product_id", p.ID, "external_product_id", p.ExternalProductID, "error", err)
		}
		if err := s.store.DeleteProduct(ctx, p.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete product %s: %w", p.ID, err)
		}
	}

	return nil
}

func (s *Service) buildResponse(ctx context.Context, sc *store.Showcase) (*models.ShowcaseResponse, error) {
	products, err := s.store.ListProductsByShowcase(ctx, sc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	out := &models.ShowcaseResponse{
		ID:          sc.ID,
		CompanyName: sc.CompanyName,
		LogoURL:     sc.LogoURL,
		BrandColor:  sc.BrandColor,
		Subdomain:   sc.Subdomain,
		Products:    make([]models.ProductResponse, 0, len(products)),
		CreatedAt:   sc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   sc.UpdatedAt.UTC().Format(time.RFC3339),
	}

	for _, p := range products {
		prices, err := s.store.ListPricesByProduct(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list prices: %w", err)
		}
		pr := models.ProductResponse{
			ID:     p.ID,
			Name:   p.Name,
			Prices: make([]models.PriceResponse, 0, len(prices)),
		}
		for _, price := range prices {
			pr.Prices = append(pr.Prices, PriceToResponse(price))
		}
		out.Products = append(out.Products, pr)
	}

	return out, nil
}

// PriceToResponse maps a price row onto its API representation
func PriceToResponse(p *store.Price) models.PriceResponse {
	return models.PriceResponse{
		ID:                 p.ID,
		Name:               p.Name,
		BasePriceInCents:   p.BasePriceInCents,
		FormattedPrice:     models.FormatPrice(p.BasePriceInCents, DefaultCurrency),
		PriceQuantity:      p.PriceQuantity,
		RecurringInterval:  p.RecurringInterval,
		RecurringFrequency: p.RecurringFrequency,
		ExternalPriceID:    p.ExternalPriceID,
	}
}

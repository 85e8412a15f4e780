package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store with in-process maps. It backs unit tests and
// the development "memory mode" used when no database is configured.
type Memory struct {
	mu            sync.RWMutex
	showcases     map[string]*Showcase
	products      map[string]*Product
	prices        map[string]*Price
	subscriptions map[string]*Subscription // keyed by external id
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		showcases:     make(map[string]*Showcase),
		products:      make(map[string]*Product),
		prices:        make(map[string]*Price),
		subscriptions: make(map[string]*Subscription),
	}
}

func cloneShowcase(s *Showcase) *Showcase {
	c := *s
	return &c
}

func cloneProduct(p *Product) *Product {
	c := *p
	return &c
}

func clonePrice(p *Price) *Price {
	c := *p
	return &c
}

func cloneSubscription(s *Subscription) *Subscription {
	c := *s
	return &c
}

// --- Showcases ---

// CreateShowcase inserts a showcase, enforcing subdomain uniqueness
func (m *Memory) CreateShowcase(_ context.Context, s *Showcase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.showcases[s.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.showcases {
		if existing.Subdomain == s.Subdomain {
			return ErrDuplicate
		}
	}

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.showcases[s.ID] = cloneShowcase(s)
	return nil
}

// GetShowcase retrieves a showcase by id
func (m *Memory) GetShowcase(_ context.Context, id string) (*Showcase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.showcases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneShowcase(s), nil
}

// GetShowcaseBySubdomain retrieves a showcase by subdomain
func (m *Memory) GetShowcaseBySubdomain(_ context.Context, subdomain string) (*Showcase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.showcases {
		if s.Subdomain == subdomain {
			return cloneShowcase(s), nil
		}
	}
	return nil, ErrNotFound
}

// ListShowcasesByUser retrieves all showcases owned by a user
func (m *Memory) ListShowcasesByUser(_ context.Context, userID string) ([]*Showcase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Showcase
	for _, s := range m.showcases {
		if s.UserID == userID {
			out = append(out, cloneShowcase(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateShowcase updates branding fields; the subdomain stays as bound
func (m *Memory) UpdateShowcase(_ context.Context, s *Showcase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.showcases[s.ID]
	if !ok {
		return ErrNotFound
	}
	existing.CompanyName = s.CompanyName
	existing.LogoURL = s.LogoURL
	existing.BrandColor = s.BrandColor
	existing.UpdatedAt = time.Now()
	return nil
}

// DeleteShowcase deletes a showcase and cascades products and prices
func (m *Memory) DeleteShowcase(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.showcases[id]; !ok {
		return ErrNotFound
	}
	delete(m.showcases, id)
	for pid, p := range m.products {
		if p.ShowcaseID == id {
			delete(m.products, pid)
			for prid, pr := range m.prices {
				if pr.ProductID == pid {
					delete(m.prices, prid)
				}
			}
		}
	}
	return nil
}

// --- Products ---

// CreateProduct inserts a product
func (m *Memory) CreateProduct(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[p.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.products[p.ID] = cloneProduct(p)
	return nil
}

// GetProduct retrieves a product by id
func (m *Memory) GetProduct(_ context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProduct(p), nil
}

// ListProductsByShowcase retrieves all products for a showcase
func (m *Memory) ListProductsByShowcase(_ context.Context, showcaseID string) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Product
	for _, p := range m.products {
		if p.ShowcaseID == showcaseID {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateProduct updates a product's name and external id
func (m *Memory) UpdateProduct(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.ExternalProductID = p.ExternalProductID
	existing.UpdatedAt = time.Now()
	return nil
}

// DeleteProduct deletes a product and cascades its prices
func (m *Memory) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	for prid, pr := range m.prices {
		if pr.ProductID == id {
			delete(m.prices, prid)
		}
	}
	return nil
}

// --- Prices ---

// CreatePrice inserts a price
func (m *Memory) CreatePrice(_ context.Context, p *Price) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.prices[p.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.prices[p.ID] = clonePrice(p)
	return nil
}

// GetPriceByExternalID retrieves a price by its provider price id
func (m *Memory) GetPriceByExternalID(_ context.Context, externalID string) (*Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.prices {
		if p.ExternalPriceID == externalID {
			return clonePrice(p), nil
		}
	}
	return nil, ErrNotFound
}

// ListPricesByProduct retrieves all prices for a product
func (m *Memory) ListPricesByProduct(_ context.Context, productID string) ([]*Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Price
	for _, p := range m.prices {
		if p.ProductID == productID {
			out = append(out, clonePrice(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListPricesByShowcase retrieves all prices under a showcase's products
func (m *Memory) ListPricesByShowcase(_ context.Context, showcaseID string) ([]*Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	productIDs := make(map[string]bool)
	for _, p := range m.products {
		if p.ShowcaseID == showcaseID {
			productIDs[p.ID] = true
		}
	}

	var out []*Price
	for _, p := range m.prices {
		if productIDs[p.ProductID] {
			out = append(out, clonePrice(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdatePrice updates a price row including its external id
func (m *Memory) UpdatePrice(_ context.Context, p *Price) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.prices[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.BasePriceInCents = p.BasePriceInCents
	existing.PriceQuantity = p.PriceQuantity
	existing.RecurringInterval = p.RecurringInterval
	existing.RecurringFrequency = p.RecurringFrequency
	existing.ExternalPriceID = p.ExternalPriceID
	existing.UpdatedAt = time.Now()
	return nil
}

// DeletePrice deletes a price row
func (m *Memory) DeletePrice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.prices[id]; !ok {
		return ErrNotFound
	}
	delete(m.prices, id)
	return nil
}

// --- Subscriptions ---

// UpsertSubscription inserts or updates the projection keyed by external
// id, preserving the license key of an existing row
func (m *Memory) UpsertSubscription(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.subscriptions[s.ExternalID]; ok {
		existing.Status = s.Status
		existing.ScheduledToCancel = s.ScheduledToCancel
		existing.UpdatedAt = now
		return nil
	}

	s.CreatedAt = now
	s.UpdatedAt = now
	m.subscriptions[s.ExternalID] = cloneSubscription(s)
	return nil
}

// GetSubscriptionByExternalID retrieves a subscription by provider id
func (m *Memory) GetSubscriptionByExternalID(_ context.Context, externalID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subscriptions[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSubscription(s), nil
}

// GetSubscriptionByLicenseKey retrieves a subscription by license key
func (m *Memory) GetSubscriptionByLicenseKey(_ context.Context, licenseKey string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.subscriptions {
		if s.LicenseKey == licenseKey {
			return cloneSubscription(s), nil
		}
	}
	return nil, ErrNotFound
}

// UpdateSubscriptionStatus sets status fields on the row matching the
// external id
func (m *Memory) UpdateSubscriptionStatus(_ context.Context, externalID, status string, scheduledToCancel bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subscriptions[externalID]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.ScheduledToCancel = scheduledToCancel
	s.UpdatedAt = time.Now()
	return nil
}

// UpdateLicenseKey overwrites the license key for the matching row
func (m *Memory) UpdateLicenseKey(_ context.Context, externalID, licenseKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subscriptions[externalID]
	if !ok {
		return ErrNotFound
	}
	s.LicenseKey = licenseKey
	s.UpdatedAt = time.Now()
	return nil
}

// ListSubscriptions retrieves all subscription projections
func (m *Memory) ListSubscriptions(_ context.Context) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Subscription
	for _, s := range m.subscriptions {
		out = append(out, cloneSubscription(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

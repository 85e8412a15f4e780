package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/showcasely/pkg/billing"
	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/logger"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/store"
)

// fakeProvider records provider calls and hands out sequential external
// ids so tests can assert exactly which calls a sync performed
type fakeProvider struct {
	mu     sync.Mutex
	nextID int

	productCreates  []string
	productUpdates  []string
	productArchives []string
	priceCreates    []billing.PriceParams
	priceUpdates    []string
	priceArchives   []string

	createProductErr error
	updateProductErr error
	createPriceErr   error
	updatePriceErr   error
	archivePriceErr  error
	archiveProdErr   error
}

func (f *fakeProvider) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func (f *fakeProvider) CreateProduct(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createProductErr != nil {
		return "", f.createProductErr
	}
	f.productCreates = append(f.productCreates, name)
	return f.newID("prod"), nil
}

func (f *fakeProvider) UpdateProduct(_ context.Context, externalID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateProductErr != nil {
		return f.updateProductErr
	}
	f.productUpdates = append(f.productUpdates, externalID)
	return nil
}

func (f *fakeProvider) ArchiveProduct(_ context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productArchives = append(f.productArchives, externalID)
	return f.archiveProdErr
}

func (f *fakeProvider) CreatePrice(_ context.Context, externalProductID string, p billing.PriceParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createPriceErr != nil {
		return "", f.createPriceErr
	}
	f.priceCreates = append(f.priceCreates, p)
	return f.newID("price"), nil
}

func (f *fakeProvider) UpdatePrice(_ context.Context, externalID, externalProductID string, p billing.PriceParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updatePriceErr != nil {
		return "", f.updatePriceErr
	}
	f.priceUpdates = append(f.priceUpdates, externalID)
	return externalID, nil
}

func (f *fakeProvider) ArchivePrice(_ context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceArchives = append(f.priceArchives, externalID)
	return f.archivePriceErr
}

func (f *fakeProvider) GetSubscription(context.Context, string) (*billing.Subscription, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) CancelSubscription(context.Context, string) error { return nil }
func (f *fakeProvider) ResumeSubscription(context.Context, string) error { return nil }
func (f *fakeProvider) GetCustomer(context.Context, string) (*billing.Customer, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) UpdateCustomer(context.Context, string, string, string) error { return nil }
func (f *fakeProvider) ListTransactions(context.Context, string) ([]billing.Transaction, error) {
	return nil, nil
}
func (f *fakeProvider) VerifyWebhook([]byte, string) (*billing.Event, error) {
	return nil, errors.New("not implemented")
}

type fakeRegistrar struct {
	domains []string
	err     error
}

func (f *fakeRegistrar) RegisterDomain(_ context.Context, domain string) error {
	if f.err != nil {
		return f.err
	}
	f.domains = append(f.domains, domain)
	return nil
}

func proRequest() *models.ShowcaseRequest {
	return &models.ShowcaseRequest{
		CompanyName: "Acme Inc",
		BrandColor:  "#1a2b3c",
		Subdomain:   "acme",
		Products: []models.ProductInput{
			{
				ID:   "prod-local-1",
				Name: "Pro",
				Prices: []models.PriceInput{
					{
						ID:                 "price-local-1",
						Name:               "Pro Monthly",
						BasePriceInCents:   4900,
						PriceQuantity:      1,
						RecurringInterval:  store.IntervalMonth,
						RecurringFrequency: 1,
					},
					{
						ID:                 "price-local-2",
						Name:               "Pro Annual",
						BasePriceInCents:   49000,
						PriceQuantity:      1,
						RecurringInterval:  store.IntervalYear,
						RecurringFrequency: 1,
					},
				},
			},
		},
	}
}

func newTestService(p billing.Provider, r DomainRegistrar) (*Service, *store.Memory) {
	mem := store.NewMemory()
	return NewService(mem, p, nil, r, logger.Nop()), mem
}

func TestCreateShowcase(t *testing.T) {
	fake := &fakeProvider{}
	svc, mem := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "Acme Inc", resp.CompanyName)
	assert.Equal(t, "acme", resp.Subdomain)
	require.Len(t, resp.Products, 1)
	require.Len(t, resp.Products[0].Prices, 2)
	assert.Equal(t, "$49.00", resp.Products[0].Prices[0].FormattedPrice)
	assert.Equal(t, "$490.00", resp.Products[0].Prices[1].FormattedPrice)

	assert.Len(t, fake.productCreates, 1)
	assert.Len(t, fake.priceCreates, 2)

	sc, err := mem.GetShowcaseBySubdomain(context.Background(), "acme")
	require.NoError(t, err)
	prices, err := mem.ListPricesByShowcase(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 2)
	for _, p := range prices {
		assert.NotEmpty(t, p.ExternalPriceID)
	}
}

func TestCreateShowcaseRegistersDomain(t *testing.T) {
	fake := &fakeProvider{}
	reg := &fakeRegistrar{}
	svc, _ := newTestService(fake, reg)

	_, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.example.com"}, reg.domains)
}

func TestCreateShowcaseRollsBackOnRegistrarFailure(t *testing.T) {
	fake := &fakeProvider{}
	reg := &fakeRegistrar{err: errors.New("platform down")}
	svc, mem := newTestService(fake, reg)

	_, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.Error(t, err)

	_, err = mem.GetShowcaseBySubdomain(context.Background(), "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, fake.productCreates)
}

func TestCreateShowcaseDuplicateSubdomain(t *testing.T) {
	fake := &fakeProvider{}
	svc, _ := newTestService(fake, nil)

	_, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	req := proRequest()
	req.Products[0].ID = "prod-local-2"
	req.Products[0].Prices[0].ID = "price-local-3"
	req.Products[0].Prices[1].ID = "price-local-4"
	_, err = svc.Create(context.Background(), "user-2", req, "example.com")
	assert.True(t, domain.IsConflict(err))
}

func TestCreateShowcaseValidation(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{}, nil)

	tests := []struct {
		name   string
		mutate func(r *models.ShowcaseRequest)
	}{
		{"empty company name", func(r *models.ShowcaseRequest) { r.CompanyName = "" }},
		{"bad brand color", func(r *models.ShowcaseRequest) { r.BrandColor = "red" }},
		{"bad subdomain", func(r *models.ShowcaseRequest) { r.Subdomain = "-acme-" }},
		{"uppercase subdomain", func(r *models.ShowcaseRequest) { r.Subdomain = "Acme" }},
		{"no products", func(r *models.ShowcaseRequest) { r.Products = nil }},
		{"product without prices", func(r *models.ShowcaseRequest) { r.Products[0].Prices = nil }},
		{"bad interval", func(r *models.ShowcaseRequest) { r.Products[0].Prices[0].RecurringInterval = "fortnight" }},
		{"duplicate price ids", func(r *models.ShowcaseRequest) { r.Products[0].Prices[1].ID = r.Products[0].Prices[0].ID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := proRequest()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), "user-1", req, "example.com")
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	fake := &fakeProvider{}
	svc, mem := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	// Re-submitting the identical catalog must update, never create
	_, err = svc.Update(context.Background(), "user-1", resp.ID, proRequest())
	require.NoError(t, err)

	assert.Len(t, fake.productCreates, 1)
	assert.Len(t, fake.priceCreates, 2)
	assert.Len(t, fake.productUpdates, 1)
	assert.Len(t, fake.priceUpdates, 2)
	assert.Empty(t, fake.priceArchives)

	products, err := mem.ListProductsByShowcase(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	prices, err := mem.ListPricesByShowcase(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 2)
}

func TestSyncRemovesDroppedPrices(t *testing.T) {
	fake := &fakeProvider{}
	svc, mem := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	req := proRequest()
	req.Products[0].Prices = req.Products[0].Prices[:1]
	_, err = svc.Update(context.Background(), "user-1", resp.ID, req)
	require.NoError(t, err)

	assert.Len(t, fake.priceArchives, 1)
	prices, err := mem.ListPricesByShowcase(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "price-local-1", prices[0].ID)
}

func TestSyncRemovalSurvivesArchivalFailure(t *testing.T) {
	fake := &fakeProvider{}
	svc, mem := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	fake.archivePriceErr = errors.New("provider refused")

	req := proRequest()
	req.Products[0].Prices = req.Products[0].Prices[:1]
	_, err = svc.Update(context.Background(), "user-1", resp.ID, req)
	require.NoError(t, err)

	// Archival was attempted but the local row is gone regardless
	assert.Len(t, fake.priceArchives, 1)
	prices, err := mem.ListPricesByShowcase(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 1)
}

func TestSyncRemovesDroppedProducts(t *testing.T) {
	fake := &fakeProvider{}
	svc, mem := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	req := proRequest()
	req.Products = []models.ProductInput{
		{
			ID:   "prod-local-9",
			Name: "Starter",
			Prices: []models.PriceInput{
				{
					ID:                 "price-local-9",
					Name:               "Starter Monthly",
					BasePriceInCents:   900,
					PriceQuantity:      1,
					RecurringInterval:  store.IntervalMonth,
					RecurringFrequency: 1,
				},
			},
		},
	}
	_, err = svc.Update(context.Background(), "user-1", resp.ID, req)
	require.NoError(t, err)

	// Both old prices and the old product were archived
	assert.Len(t, fake.priceArchives, 2)
	assert.Len(t, fake.productArchives, 1)

	products, err := mem.ListProductsByShowcase(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "prod-local-9", products[0].ID)
}

func TestSyncAbortsOnProviderFailure(t *testing.T) {
	fake := &fakeProvider{createPriceErr: errors.New("stripe is down")}
	svc, mem := newTestService(fake, nil)

	_, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.Error(t, err)
	assert.True(t, domain.IsProvider(err))

	// The product write had already happened, but no price row exists:
	// local writes never precede a confirmed provider call.
	sc, err := mem.GetShowcaseBySubdomain(context.Background(), "acme")
	require.NoError(t, err)
	prices, err := mem.ListPricesByShowcase(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Empty(t, prices)

	// A retry with a healthy provider converges without duplicating rows
	fake.createPriceErr = nil
	req := proRequest()
	_, err = svc.Update(context.Background(), "user-1", sc.ID, req)
	require.NoError(t, err)
	prices, err = mem.ListPricesByShowcase(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 2)
	products, err := mem.ListProductsByShowcase(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestUpdateShowcaseOwnership(t *testing.T) {
	fake := &fakeProvider{}
	svc, _ := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "intruder", resp.ID, proRequest())
	assert.True(t, domain.IsForbidden(err))

	err = svc.Delete(context.Background(), "intruder", resp.ID)
	assert.True(t, domain.IsForbidden(err))

	_, err = svc.Get(context.Background(), "intruder", resp.ID)
	assert.True(t, domain.IsForbidden(err))
}

func TestUpdateShowcaseUnknownID(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{}, nil)

	_, err := svc.Update(context.Background(), "user-1", "missing", proRequest())
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteShowcase(t *testing.T) {
	fake := &fakeProvider{archivePriceErr: errors.New("provider refused")}
	svc, mem := newTestService(fake, nil)

	resp, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "user-1", resp.ID)
	require.NoError(t, err)

	assert.Len(t, fake.priceArchives, 2)
	assert.Len(t, fake.productArchives, 1)

	_, err = mem.GetShowcaseBySubdomain(context.Background(), "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
	products, err := mem.ListProductsByShowcase(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestGetBySubdomain(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{}, nil)

	_, err := svc.GetBySubdomain(context.Background(), "nobody")
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	resp, err := svc.GetBySubdomain(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", resp.CompanyName)
	require.Len(t, resp.Products, 1)
}

func TestListShowcases(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{}, nil)

	_, err := svc.Create(context.Background(), "user-1", proRequest(), "example.com")
	require.NoError(t, err)

	other := proRequest()
	other.Subdomain = "globex"
	other.Products[0].ID = "prod-local-2"
	other.Products[0].Prices[0].ID = "price-local-3"
	other.Products[0].Prices[1].ID = "price-local-4"
	_, err = svc.Create(context.Background(), "user-2", other, "example.com")
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "acme", mine[0].Subdomain)
}

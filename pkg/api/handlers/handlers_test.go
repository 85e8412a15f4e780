package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/showcasely/pkg/billing"
	"github.com/jordanlanch/showcasely/pkg/catalog"
	"github.com/jordanlanch/showcasely/pkg/license"
	"github.com/jordanlanch/showcasely/pkg/logger"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/pricing"
	"github.com/jordanlanch/showcasely/pkg/store"
	"github.com/jordanlanch/showcasely/pkg/subscription"
)

// stubProvider satisfies billing.Provider with canned behavior for
// handler-level tests
type stubProvider struct {
	nextID    int
	event     *billing.Event
	verifyErr error
}

func (s *stubProvider) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s_%d", prefix, s.nextID)
}

func (s *stubProvider) CreateProduct(context.Context, string) (string, error) {
	return s.newID("prod"), nil
}
func (s *stubProvider) UpdateProduct(context.Context, string, string) error { return nil }
func (s *stubProvider) ArchiveProduct(context.Context, string) error        { return nil }
func (s *stubProvider) CreatePrice(context.Context, string, billing.PriceParams) (string, error) {
	return s.newID("price"), nil
}
func (s *stubProvider) UpdatePrice(_ context.Context, externalID string, _ string, _ billing.PriceParams) (string, error) {
	return externalID, nil
}
func (s *stubProvider) ArchivePrice(context.Context, string) error { return nil }
func (s *stubProvider) GetSubscription(context.Context, string) (*billing.Subscription, error) {
	return nil, errors.New("unavailable")
}
func (s *stubProvider) CancelSubscription(context.Context, string) error { return nil }
func (s *stubProvider) ResumeSubscription(context.Context, string) error { return nil }
func (s *stubProvider) GetCustomer(context.Context, string) (*billing.Customer, error) {
	return nil, errors.New("unavailable")
}
func (s *stubProvider) UpdateCustomer(context.Context, string, string, string) error { return nil }
func (s *stubProvider) ListTransactions(context.Context, string) ([]billing.Transaction, error) {
	return nil, nil
}
func (s *stubProvider) VerifyWebhook([]byte, string) (*billing.Event, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.event, nil
}

// stubRecorder captures webhook outcome counts
type stubRecorder struct {
	outcomes []string
}

func (r *stubRecorder) RecordWebhook(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

type testEnv struct {
	e        *echo.Echo
	store    *store.Memory
	provider *stubProvider
	recorder *stubRecorder

	showcase *ShowcaseHandler
	site     *SiteHandler
	webhook  *WebhookHandler
	license  *LicenseHandler
}

func newTestEnv() *testEnv {
	mem := store.NewMemory()
	provider := &stubProvider{}
	recorder := &stubRecorder{}
	log := logger.Nop()

	catalogSvc := catalog.NewService(mem, provider, nil, nil, log)
	pricingSvc := pricing.NewService(catalogSvc, mem, nil, log)
	subscriptionSvc := subscription.NewService(mem, provider, nil, log)
	licenseSvc := license.NewService(mem)

	return &testEnv{
		e:        echo.New(),
		store:    mem,
		provider: provider,
		recorder: recorder,
		showcase: NewShowcaseHandler(catalogSvc, "example.com"),
		site:     NewSiteHandler(pricingSvc, subscriptionSvc, licenseSvc),
		webhook:  NewWebhookHandler(subscriptionSvc, recorder),
		license:  NewLicenseHandler(licenseSvc),
	}
}

const showcaseBody = `{
	"company_name": "Acme Inc",
	"brand_color": "#1a2b3c",
	"subdomain": "acme",
	"products": [
		{
			"id": "prod-local-1",
			"name": "Pro",
			"prices": [
				{
					"id": "price-local-1",
					"name": "Pro Monthly",
					"base_price_in_cents": 4900,
					"price_quantity": 1,
					"recurring_interval": "month",
					"recurring_frequency": 1
				},
				{
					"id": "price-local-2",
					"name": "Pro Annual",
					"base_price_in_cents": 49000,
					"price_quantity": 1,
					"recurring_interval": "year",
					"recurring_frequency": 1
				}
			]
		}
	]
}`

func (env *testEnv) jsonRequest(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

func (env *testEnv) createShowcase(t *testing.T) models.ShowcaseResponse {
	t.Helper()

	c, rec := env.jsonRequest(http.MethodPost, "/api/v1/showcases", showcaseBody)
	c.Set("user_id", "user-1")
	require.NoError(t, env.showcase.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.ShowcaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestShowcaseCreate(t *testing.T) {
	env := newTestEnv()
	resp := env.createShowcase(t)

	assert.Equal(t, "acme", resp.Subdomain)
	require.Len(t, resp.Products, 1)
	assert.Len(t, resp.Products[0].Prices, 2)
}

func TestShowcaseCreateRequiresAuth(t *testing.T) {
	env := newTestEnv()

	c, rec := env.jsonRequest(http.MethodPost, "/api/v1/showcases", showcaseBody)
	require.NoError(t, env.showcase.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShowcaseCreateRejectsInvalidPayload(t *testing.T) {
	env := newTestEnv()

	c, rec := env.jsonRequest(http.MethodPost, "/api/v1/showcases", `{"company_name": "Acme"}`)
	c.Set("user_id", "user-1")
	require.NoError(t, env.showcase.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowcaseUpdateForbiddenForNonOwner(t *testing.T) {
	env := newTestEnv()
	resp := env.createShowcase(t)

	c, rec := env.jsonRequest(http.MethodPut, "/api/v1/showcases/"+resp.ID, showcaseBody)
	c.SetParamNames("id")
	c.SetParamValues(resp.ID)
	c.Set("user_id", "intruder")
	require.NoError(t, env.showcase.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShowcaseDelete(t *testing.T) {
	env := newTestEnv()
	resp := env.createShowcase(t)

	c, rec := env.jsonRequest(http.MethodDelete, "/api/v1/showcases/"+resp.ID, "")
	c.SetParamNames("id")
	c.SetParamValues(resp.ID)
	c.Set("user_id", "user-1")
	require.NoError(t, env.showcase.Delete(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := env.store.GetShowcaseBySubdomain(context.Background(), "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSitePricing(t *testing.T) {
	env := newTestEnv()
	env.createShowcase(t)

	c, rec := env.jsonRequest(http.MethodGet, "/_sites/acme", "")
	c.SetParamNames("domain")
	c.SetParamValues("acme")
	require.NoError(t, env.site.Pricing(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ShowcaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Inc", resp.CompanyName)
}

func TestSitePricingUnknownTenant(t *testing.T) {
	env := newTestEnv()

	c, rec := env.jsonRequest(http.MethodGet, "/_sites/ghost", "")
	c.SetParamNames("domain")
	c.SetParamValues("ghost")
	require.NoError(t, env.site.Pricing(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSiteCheckout(t *testing.T) {
	env := newTestEnv()
	created := env.createShowcase(t)

	// Checkout links address prices by the provider's id
	extID := created.Products[0].Prices[0].ExternalPriceID
	require.NotEmpty(t, extID)

	c, rec := env.jsonRequest(http.MethodGet, "/_sites/acme/checkout/"+extID, "")
	c.SetParamNames("domain", "priceId")
	c.SetParamValues("acme", extID)
	require.NoError(t, env.site.Checkout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Pro", resp.ProductName)
	assert.Equal(t, "price-local-1", resp.Price.ID)
	require.NotNil(t, resp.AlternativePrice)
	assert.Equal(t, "price-local-2", resp.AlternativePrice.ID)
}

func TestWebhookCreatesSubscription(t *testing.T) {
	env := newTestEnv()
	env.provider.event = &billing.Event{
		Type: billing.EventSubscriptionCreated,
		Subscription: billing.Subscription{
			ID:     "sub_1",
			Status: store.SubscriptionStatusActive,
		},
	}

	c, rec := env.jsonRequest(http.MethodPost, "/api/v1/webhook/billing", `{"raw": "payload"}`)
	c.Request().Header.Set("Stripe-Signature", "t=1,v1=sig")
	require.NoError(t, env.webhook.HandleBillingWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	row, err := env.store.GetSubscriptionByExternalID(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, store.SubscriptionStatusActive, row.Status)
	assert.Equal(t, []string{"processed"}, env.recorder.outcomes)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv()
	env.provider.verifyErr = errors.New("signature mismatch")

	c, rec := env.jsonRequest(http.MethodPost, "/api/v1/webhook/billing", `{"raw": "payload"}`)
	require.NoError(t, env.webhook.HandleBillingWebhook(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_signature")
	assert.Equal(t, []string{"rejected"}, env.recorder.outcomes)
}

func seedActiveSubscription(t *testing.T, env *testEnv, externalID, key string) {
	t.Helper()
	require.NoError(t, env.store.UpsertSubscription(context.Background(), &store.Subscription{
		ID:         "local-" + externalID,
		ExternalID: externalID,
		LicenseKey: key,
		Status:     store.SubscriptionStatusActive,
	}))
}

func TestLicenseValidate(t *testing.T) {
	env := newTestEnv()
	seedActiveSubscription(t, env, "sub_1", "AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD")

	c, rec := env.jsonRequest(http.MethodGet, "/api/v1/validate/AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD", "")
	c.SetParamNames("licenseKey")
	c.SetParamValues("AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD")
	require.NoError(t, env.license.Validate(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid": true}`, rec.Body.String())

	c, rec = env.jsonRequest(http.MethodGet, "/api/v1/validate/UNKNOWN", "")
	c.SetParamNames("licenseKey")
	c.SetParamValues("UNKNOWN")
	require.NoError(t, env.license.Validate(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid": false}`, rec.Body.String())
}

func TestPortalResetLicense(t *testing.T) {
	env := newTestEnv()
	seedActiveSubscription(t, env, "sub_1", "AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD")

	c, rec := env.jsonRequest(http.MethodPost, "/_sites/acme/portal/sub_1/license", "")
	c.SetParamNames("domain", "subscriptionId")
	c.SetParamValues("acme", "sub_1")
	require.NoError(t, env.site.ResetLicense(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ResetLicenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, "AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD", resp.LicenseKey)
	assert.NotEmpty(t, resp.LicenseKey)
}

func TestPortalCancelAndResume(t *testing.T) {
	env := newTestEnv()
	seedActiveSubscription(t, env, "sub_1", "AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD")

	c, rec := env.jsonRequest(http.MethodPost, "/_sites/acme/portal/sub_1/cancel", "")
	c.SetParamNames("domain", "subscriptionId")
	c.SetParamValues("acme", "sub_1")
	require.NoError(t, env.site.CancelSubscription(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Local status is untouched until the webhook lands
	row, err := env.store.GetSubscriptionByExternalID(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, store.SubscriptionStatusActive, row.Status)

	c, rec = env.jsonRequest(http.MethodPost, "/_sites/acme/portal/sub_1/resume", "")
	c.SetParamNames("domain", "subscriptionId")
	c.SetParamValues("acme", "sub_1")
	require.NoError(t, env.site.ResumeSubscription(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPortalCancelUnknownSubscription(t *testing.T) {
	env := newTestEnv()

	c, rec := env.jsonRequest(http.MethodPost, "/_sites/acme/portal/sub_ghost/cancel", "")
	c.SetParamNames("domain", "subscriptionId")
	c.SetParamValues("acme", "sub_ghost")
	require.NoError(t, env.site.CancelSubscription(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

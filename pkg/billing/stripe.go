package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jordanlanch/showcasely/pkg/store"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig holds Stripe configuration
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	CallTimeout   time.Duration
}

// StripeProvider implements Provider against the Stripe API
type StripeProvider struct {
	api    *client.API
	config *StripeConfig
}

// NewStripeProvider creates a Stripe-backed billing provider
func NewStripeProvider(config *StripeConfig) *StripeProvider {
	if config.CallTimeout == 0 {
		config.CallTimeout = 15 * time.Second
	}

	api := &client.API{}
	api.Init(config.SecretKey, nil)

	return &StripeProvider{
		api:    api,
		config: config,
	}
}

// callCtx caps every provider call so a stalled request surfaces as a
// timeout error instead of hanging a sync
func (s *StripeProvider) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.CallTimeout)
}

// CreateProduct creates a product and returns its Stripe id
func (s *StripeProvider) CreateProduct(ctx context.Context, name string) (string, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.ProductParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(name),
	}
	prod, err := s.api.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	return prod.ID, nil
}

// UpdateProduct renames an existing product
func (s *StripeProvider) UpdateProduct(ctx context.Context, externalID, name string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.ProductParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(name),
	}
	if _, err := s.api.Products.Update(externalID, params); err != nil {
		return fmt.Errorf("failed to update product %s: %w", externalID, err)
	}
	return nil
}

// ArchiveProduct deactivates a product. Stripe has no hard delete for
// products that carry prices, so archival is the terminal state.
func (s *StripeProvider) ArchiveProduct(ctx context.Context, externalID string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.ProductParams{
		Params: stripe.Params{Context: ctx},
		Active: stripe.Bool(false),
	}
	if _, err := s.api.Products.Update(externalID, params); err != nil {
		return fmt.Errorf("failed to archive product %s: %w", externalID, err)
	}
	return nil
}

func recurringParams(p PriceParams) *stripe.PriceRecurringParams {
	if p.Interval == store.IntervalOneTime {
		return nil
	}
	return &stripe.PriceRecurringParams{
		Interval:      stripe.String(p.Interval),
		IntervalCount: stripe.Int64(int64(p.Frequency)),
	}
}

// CreatePrice creates a price under the given product and returns its
// Stripe id
func (s *StripeProvider) CreatePrice(ctx context.Context, externalProductID string, p PriceParams) (string, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.PriceParams{
		Params:     stripe.Params{Context: ctx},
		Product:    stripe.String(externalProductID),
		Nickname:   stripe.String(p.Name),
		Currency:   stripe.String(p.Currency),
		UnitAmount: stripe.Int64(p.AmountInCents),
		Recurring:  recurringParams(p),
	}
	price, err := s.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create price: %w", err)
	}
	return price.ID, nil
}

// UpdatePrice applies the desired billing fields to an existing price.
// Stripe prices are immutable in amount, currency and billing cycle, so
// when any of those changed the old price is archived and a replacement
// created; the returned id is the one to store.
func (s *StripeProvider) UpdatePrice(ctx context.Context, externalID, externalProductID string, p PriceParams) (string, error) {
	getCtx, cancelGet := s.callCtx(ctx)
	defer cancelGet()

	current, err := s.api.Prices.Get(externalID, &stripe.PriceParams{
		Params: stripe.Params{Context: getCtx},
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch price %s: %w", externalID, err)
	}

	if priceBillingEquals(current, p) {
		updCtx, cancelUpd := s.callCtx(ctx)
		defer cancelUpd()

		params := &stripe.PriceParams{
			Params:   stripe.Params{Context: updCtx},
			Nickname: stripe.String(p.Name),
		}
		if _, err := s.api.Prices.Update(externalID, params); err != nil {
			return "", fmt.Errorf("failed to update price %s: %w", externalID, err)
		}
		return externalID, nil
	}

	if err := s.ArchivePrice(ctx, externalID); err != nil {
		return "", err
	}
	return s.CreatePrice(ctx, externalProductID, p)
}

func priceBillingEquals(current *stripe.Price, p PriceParams) bool {
	if current.UnitAmount != p.AmountInCents {
		return false
	}
	if string(current.Currency) != p.Currency {
		return false
	}
	if current.Recurring == nil {
		return p.Interval == store.IntervalOneTime
	}
	return string(current.Recurring.Interval) == p.Interval &&
		current.Recurring.IntervalCount == int64(p.Frequency)
}

// ArchivePrice deactivates a price
func (s *StripeProvider) ArchivePrice(ctx context.Context, externalID string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.PriceParams{
		Params: stripe.Params{Context: ctx},
		Active: stripe.Bool(false),
	}
	if _, err := s.api.Prices.Update(externalID, params); err != nil {
		return fmt.Errorf("failed to archive price %s: %w", externalID, err)
	}
	return nil
}

// GetSubscription fetches a subscription by id
func (s *StripeProvider) GetSubscription(ctx context.Context, externalID string) (*Subscription, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	sub, err := s.api.Subscriptions.Get(externalID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", externalID, err)
	}
	return mapSubscription(sub), nil
}

// CancelSubscription schedules cancellation effective at the end of the
// current billing period. Local status is untouched: the resulting
// webhook is the source of truth.
func (s *StripeProvider) CancelSubscription(ctx context.Context, externalID string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	if _, err := s.api.Subscriptions.Update(externalID, params); err != nil {
		return fmt.Errorf("failed to cancel subscription %s: %w", externalID, err)
	}
	return nil
}

// ResumeSubscription clears a scheduled cancellation
func (s *StripeProvider) ResumeSubscription(ctx context.Context, externalID string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	if _, err := s.api.Subscriptions.Update(externalID, params); err != nil {
		return fmt.Errorf("failed to resume subscription %s: %w", externalID, err)
	}
	return nil
}

// GetCustomer fetches a customer by id
func (s *StripeProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	cust, err := s.api.Customers.Get(customerID, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customer %s: %w", customerID, err)
	}
	return &Customer{
		ID:    cust.ID,
		Name:  cust.Name,
		Email: cust.Email,
	}, nil
}

// UpdateCustomer updates the customer's contact details
func (s *StripeProvider) UpdateCustomer(ctx context.Context, customerID, name, email string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(name),
		Email:  stripe.String(email),
	}
	if _, err := s.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("failed to update customer %s: %w", customerID, err)
	}
	return nil
}

// ListTransactions returns the invoices billed against a subscription
func (s *StripeProvider) ListTransactions(ctx context.Context, subscriptionID string) ([]Transaction, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	params := &stripe.InvoiceListParams{
		ListParams:   stripe.ListParams{Context: ctx},
		Subscription: stripe.String(subscriptionID),
	}

	var out []Transaction
	iter := s.api.Invoices.List(params)
	for iter.Next() {
		inv := iter.Invoice()
		out = append(out, Transaction{
			ID:          inv.ID,
			Status:      string(inv.Status),
			Amount:      inv.AmountPaid,
			Currency:    string(inv.Currency),
			BilledAt:    time.Unix(inv.Created, 0).UTC(),
			Description: inv.Description,
			InvoiceURL:  inv.HostedInvoiceURL,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", subscriptionID, err)
	}
	return out, nil
}

// VerifyWebhook checks the Stripe-Signature header against the shared
// webhook secret and parses the event payload
func (s *StripeProvider) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	out := &Event{Type: string(event.Type)}

	switch out.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		out.Subscription = *mapSubscription(&sub)
	}

	return out, nil
}

// mapSubscription maps a Stripe subscription onto the local projection
// vocabulary
func mapSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                sub.ID,
		Status:            mapStatus(sub.Status),
		ScheduledToCancel: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out
}

func mapStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return store.SubscriptionStatusActive
	case stripe.SubscriptionStatusCanceled:
		return store.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return store.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusPaused:
		return store.SubscriptionStatusPaused
	default:
		return store.SubscriptionStatusCreated
	}
}

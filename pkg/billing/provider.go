package billing

import (
	"context"
	"time"
)

// Webhook event types dispatched to the subscription state machine.
// Anything else coming off the wire is a forward-compatible no-op.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// PriceParams carries the billing fields of a price as the provider
// understands them. Frequency is meaningless when Interval is one-time.
type PriceParams struct {
	Name          string
	AmountInCents int64
	Currency      string
	Interval      string
	Frequency     int
}

// Subscription is the provider's view of a subscription, mapped onto the
// local status vocabulary
type Subscription struct {
	ID                string
	Status            string
	CustomerID        string
	ScheduledToCancel bool
	CurrentPeriodEnd  time.Time
}

// Customer is the provider's customer record
type Customer struct {
	ID    string
	Name  string
	Email string
}

// Transaction is one billing transaction attached to a subscription
type Transaction struct {
	ID          string
	Status      string
	Amount      int64
	Currency    string
	BilledAt    time.Time
	Description string
	InvoiceURL  string
}

// Event is a verified webhook event. Subscription is populated for the
// subscription.* event types.
type Event struct {
	Type         string
	Subscription Subscription
}

// Provider abstracts the external billing platform. It is injected into
// every component that talks to the provider so tests can substitute a
// double. Implementations must not hang: every call carries the caller's
// context plus a bounded internal timeout, and failures surface as
// errors, never as silently stale results.
type Provider interface {
	// Products
	CreateProduct(ctx context.Context, name string) (string, error)
	UpdateProduct(ctx context.Context, externalID, name string) error
	ArchiveProduct(ctx context.Context, externalID string) error

	// Prices. UpdatePrice returns the external price id to store, which
	// may differ from the input when the provider cannot mutate a price
	// in place and replaces it instead.
	CreatePrice(ctx context.Context, externalProductID string, p PriceParams) (string, error)
	UpdatePrice(ctx context.Context, externalID, externalProductID string, p PriceParams) (string, error)
	ArchivePrice(ctx context.Context, externalID string) error

	// Subscriptions. Cancel schedules cancellation effective at the next
	// billing period; Resume clears that scheduled change. Neither call
	// mutates local state: status changes arrive via webhooks only.
	GetSubscription(ctx context.Context, externalID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, externalID string) error
	ResumeSubscription(ctx context.Context, externalID string) error

	// Customers
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID, name, email string) error

	// Transactions
	ListTransactions(ctx context.Context, subscriptionID string) ([]Transaction, error)

	// VerifyWebhook checks the payload's HMAC signature against the
	// shared webhook secret and parses the event. A verification failure
	// rejects the whole delivery.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}

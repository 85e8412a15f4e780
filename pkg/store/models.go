package store

import "time"

// Subscription status vocabulary mirrored from the billing provider
const (
	SubscriptionStatusCreated  = "created"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusPaused   = "paused"
	SubscriptionStatusCanceled = "canceled"
)

// Recurring interval vocabulary for prices
const (
	IntervalDay     = "day"
	IntervalWeek    = "week"
	IntervalMonth   = "month"
	IntervalYear    = "year"
	IntervalOneTime = "one-time"
)

// Showcase is one merchant's branded storefront, keyed by subdomain
type Showcase struct {
	ID          string
	UserID      string
	CompanyName string
	LogoURL     string
	BrandColor  string
	Subdomain   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product belongs to exactly one showcase and mirrors a provider product
// object through ExternalProductID
type Product struct {
	ID                string
	ShowcaseID        string
	Name              string
	ExternalProductID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Price belongs to exactly one product. ExternalPriceID always references
// a provider price under the owning product's external product id.
// RecurringFrequency is stored but ignored downstream when the interval
// is one-time.
type Price struct {
	ID                 string
	ProductID          string
	Name               string
	BasePriceInCents   int
	PriceQuantity      int
	RecurringInterval  string
	RecurringFrequency int
	ExternalPriceID    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Subscription is a local projection of provider subscription state,
// keyed by the provider's subscription id. It carries no foreign key to
// showcase/product/price; correlation happens by external ids at read
// time. Rows are never deleted, only status-transitioned.
type Subscription struct {
	ID                string
	ExternalID        string
	LicenseKey        string
	Status            string
	ScheduledToCancel bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

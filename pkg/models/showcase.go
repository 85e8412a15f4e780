package models

// PriceInput is one price row submitted as part of a desired catalog.
// ID is client-generated: an ID matching an existing local row means
// update, a fresh ID means create.
type PriceInput struct {
	ID                 string `json:"id" validate:"required"`
	Name               string `json:"name" validate:"required"`
	BasePriceInCents   int    `json:"base_price_in_cents" validate:"min=0"`
	PriceQuantity      int    `json:"price_quantity" validate:"min=1"`
	RecurringInterval  string `json:"recurring_interval" validate:"required,oneof=day week month year one-time"`
	RecurringFrequency int    `json:"recurring_frequency" validate:"min=1"`
}

// ProductInput is one product row of a desired catalog
type ProductInput struct {
	ID     string       `json:"id" validate:"required"`
	Name   string       `json:"name" validate:"required"`
	Prices []PriceInput `json:"prices" validate:"required,min=1,dive"`
}

// ShowcaseRequest is the create/edit payload for a showcase and its
// full desired catalog
type ShowcaseRequest struct {
	CompanyName string         `json:"company_name" validate:"required,max=100"`
	LogoURL     string         `json:"logo_url" validate:"omitempty,url"`
	BrandColor  string         `json:"brand_color" validate:"required,hexcolor"`
	Subdomain   string         `json:"subdomain" validate:"required,max=63,subdomain"`
	Products    []ProductInput `json:"products" validate:"required,min=1,dive"`
}

// PriceResponse represents a price in API responses
type PriceResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	BasePriceInCents   int    `json:"base_price_in_cents"`
	FormattedPrice     string `json:"formatted_price"`
	PriceQuantity      int    `json:"price_quantity"`
	RecurringInterval  string `json:"recurring_interval"`
	RecurringFrequency int    `json:"recurring_frequency"`
	ExternalPriceID    string `json:"external_price_id"`
}

// ProductResponse represents a product with its prices
type ProductResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Prices []PriceResponse `json:"prices"`
}

// ShowcaseResponse represents a showcase with its catalog
type ShowcaseResponse struct {
	ID          string            `json:"id"`
	CompanyName string            `json:"company_name"`
	LogoURL     string            `json:"logo_url,omitempty"`
	BrandColor  string            `json:"brand_color"`
	Subdomain   string            `json:"subdomain"`
	Products    []ProductResponse `json:"products"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// CheckoutResponse is the denormalized view driving a checkout page:
// branding, the selected price, and the complementary month/year price
// when the product has one
type CheckoutResponse struct {
	CompanyName      string         `json:"company_name"`
	LogoURL          string         `json:"logo_url,omitempty"`
	BrandColor       string         `json:"brand_color"`
	Subdomain        string         `json:"subdomain"`
	ProductName      string         `json:"product_name"`
	Price            PriceResponse  `json:"price"`
	AlternativePrice *PriceResponse `json:"alternative_price"`
}

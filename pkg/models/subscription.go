package models

// ValidateLicenseResponse is the license validation result
type ValidateLicenseResponse struct {
	Valid bool `json:"valid"`
}

// ResetLicenseResponse returns the freshly rotated license key
type ResetLicenseResponse struct {
	LicenseKey string `json:"license_key"`
}

// CustomerInfoRequest updates the billing customer's contact details
type CustomerInfoRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// TransactionResponse is one billing transaction in the portal history
type TransactionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	BilledAt    string `json:"billed_at"`
	Description string `json:"description,omitempty"`
	InvoiceURL  string `json:"invoice_url,omitempty"`
}

// PortalResponse is the customer self-service portal view. Status comes
// from the local projection; customer and transaction data are fetched
// live from the provider.
type PortalResponse struct {
	SubscriptionID    string                `json:"subscription_id"`
	Status            string                `json:"status"`
	ScheduledToCancel bool                  `json:"scheduled_to_cancel"`
	LicenseKey        string                `json:"license_key"`
	CustomerName      string                `json:"customer_name,omitempty"`
	CustomerEmail     string                `json:"customer_email,omitempty"`
	Transactions      []TransactionResponse `json:"transactions"`
}

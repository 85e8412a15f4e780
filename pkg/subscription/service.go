// Package subscription drives the subscription projection. Webhooks are
// the only writer of subscription status: the cancel and resume
// operations talk to the provider and wait for the resulting webhook,
// they never flip local state themselves.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jordanlanch/showcasely/pkg/billing"
	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/license"
	"github.com/jordanlanch/showcasely/pkg/logger"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/store"
)

// Service processes billing webhooks and serves the customer portal
type Service struct {
	store    store.Store
	provider billing.Provider
	email    domain.EmailService
	logger   logger.Logger
}

// NewService creates a subscription service. email may be nil.
func NewService(s store.Store, p billing.Provider, email domain.EmailService, log logger.Logger) *Service {
	return &Service{
		store:    s,
		provider: p,
		email:    email,
		logger:   log,
	}
}

// HandleWebhook verifies and dispatches one webhook delivery. A
// signature failure rejects the whole request. Unknown event types are
// acknowledged without effect so new provider events cannot break the
// endpoint.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.VerifyWebhook(payload, signature)
	if err != nil {
		return domain.NewWebhookSignatureError(err)
	}

	switch event.Type {
	case billing.EventSubscriptionCreated:
		return s.handleCreated(ctx, &event.Subscription)
	case billing.EventSubscriptionUpdated:
		return s.handleUpdated(ctx, &event.Subscription)
	case billing.EventSubscriptionDeleted:
		return s.handleDeleted(ctx, &event.Subscription)
	default:
		s.logger.Debug("ignoring webhook event", "type", event.Type)
		return nil
	}
}

// handleCreated upserts the projection row and issues a license key.
// The upsert preserves any existing license key, so a duplicate delivery
// updates status without rotating the customer's credential.
func (s *Service) handleCreated(ctx context.Context, sub *billing.Subscription) error {
	key, err := license.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate license key: %w", err)
	}

	row := &store.Subscription{
		ID:                uuid.NewString(),
		ExternalID:        sub.ID,
		LicenseKey:        key,
		Status:            sub.Status,
		ScheduledToCancel: sub.ScheduledToCancel,
	}
	if err := s.store.UpsertSubscription(ctx, row); err != nil {
		return fmt.Errorf("failed to upsert subscription %s: %w", sub.ID, err)
	}

	s.logger.Info("subscription created", "external_id", sub.ID, "status", sub.Status)
	s.sendWelcomeEmail(ctx, sub)
	return nil
}

// sendWelcomeEmail delivers the license key to the customer. Failures
// are logged, never fatal: the webhook must still be acknowledged.
func (s *Service) sendWelcomeEmail(ctx context.Context, sub *billing.Subscription) {
	if s.email == nil || sub.CustomerID == "" {
		return
	}

	cust, err := s.provider.GetCustomer(ctx, sub.CustomerID)
	if err != nil {
		s.logger.Warn("failed to fetch customer for welcome email", "customer_id", sub.CustomerID, "error", err)
		return
	}

	row, err := s.store.GetSubscriptionByExternalID(ctx, sub.ID)
	if err != nil {
		s.logger.Warn("failed to load subscription for welcome email", "external_id", sub.ID, "error", err)
		return
	}

	if err := s.email.SendSubscriptionCreatedEmail(cust.Email, cust.Name, sub.ID, row.LicenseKey); err != nil {
		s.logger.Warn("failed to send welcome email", "external_id", sub.ID, "error", err)
	}
}

// handleUpdated applies the provider's status to the projection. An
// update arriving before its created event materializes the row, so
// out-of-order delivery converges on the same state.
func (s *Service) handleUpdated(ctx context.Context, sub *billing.Subscription) error {
	err := s.store.UpdateSubscriptionStatus(ctx, sub.ID, sub.Status, sub.ScheduledToCancel)
	if err == nil {
		s.logger.Info("subscription updated", "external_id", sub.ID, "status", sub.Status, "scheduled_to_cancel", sub.ScheduledToCancel)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}

	s.logger.Warn("update webhook arrived before created, materializing row", "external_id", sub.ID)
	return s.handleCreated(ctx, sub)
}

// handleDeleted marks the projection canceled. A missing row is logged
// and acknowledged: there is nothing left to transition.
func (s *Service) handleDeleted(ctx context.Context, sub *billing.Subscription) error {
	err := s.store.UpdateSubscriptionStatus(ctx, sub.ID, store.SubscriptionStatusCanceled, false)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("deleted webhook for unknown subscription", "external_id", sub.ID)
			return nil
		}
		return fmt.Errorf("failed to cancel subscription %s: %w", sub.ID, err)
	}
	s.logger.Info("subscription canceled", "external_id", sub.ID)
	return nil
}

// Cancel schedules cancellation at the end of the current billing
// period. Local state is untouched until the provider's webhook lands.
func (s *Service) Cancel(ctx context.Context, externalID string) error {
	if _, err := s.requireKnown(ctx, externalID); err != nil {
		return err
	}
	if err := s.provider.CancelSubscription(ctx, externalID); err != nil {
		return domain.NewProviderError("subscription cancel", err)
	}
	s.logger.Info("cancellation scheduled", "external_id", externalID)
	return nil
}

// Resume clears a scheduled cancellation
func (s *Service) Resume(ctx context.Context, externalID string) error {
	if _, err := s.requireKnown(ctx, externalID); err != nil {
		return err
	}
	if err := s.provider.ResumeSubscription(ctx, externalID); err != nil {
		return domain.NewProviderError("subscription resume", err)
	}
	s.logger.Info("cancellation cleared", "external_id", externalID)
	return nil
}

func (s *Service) requireKnown(ctx context.Context, externalID string) (*store.Subscription, error) {
	row, err := s.store.GetSubscriptionByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError("subscription")
		}
		return nil, fmt.Errorf("failed to load subscription %s: %w", externalID, err)
	}
	return row, nil
}

// Portal assembles the self-service portal view: local projection state
// plus customer and transaction data fetched live from the provider.
// Provider read failures degrade the view instead of failing it.
func (s *Service) Portal(ctx context.Context, externalID string) (*models.PortalResponse, error) {
	row, err := s.requireKnown(ctx, externalID)
	if err != nil {
		return nil, err
	}

	out := &models.PortalResponse{
		SubscriptionID:    row.ExternalID,
		Status:            row.Status,
		ScheduledToCancel: row.ScheduledToCancel,
		LicenseKey:        row.LicenseKey,
		Transactions:      []models.TransactionResponse{},
	}

	sub, err := s.provider.GetSubscription(ctx, externalID)
	if err != nil {
		s.logger.Warn("failed to fetch provider subscription for portal", "external_id", externalID, "error", err)
		return out, nil
	}

	if sub.CustomerID != "" {
		if cust, err := s.provider.GetCustomer(ctx, sub.CustomerID); err != nil {
			s.logger.Warn("failed to fetch customer for portal", "customer_id", sub.CustomerID, "error", err)
		} else {
			out.CustomerName = cust.Name
			out.CustomerEmail = cust.Email
		}
	}

	txns, err := s.provider.ListTransactions(ctx, externalID)
	if err != nil {
		s.logger.Warn("failed to list transactions for portal", "external_id", externalID, "error", err)
		return out, nil
	}
	for _, t := range txns {
		out.Transactions = append(out.Transactions, models.TransactionResponse{
			ID:          t.ID,
			Status:      t.Status,
			Amount:      t.Amount,
			Currency:    t.Currency,
			BilledAt:    t.BilledAt.UTC().Format(time.RFC3339),
			Description: t.Description,
			InvoiceURL:  t.InvoiceURL,
		})
	}

	return out, nil
}

// UpdateCustomerInfo pushes new contact details to the provider's
// customer record
func (s *Service) UpdateCustomerInfo(ctx context.Context, externalID, name, email string) error {
	if _, err := s.requireKnown(ctx, externalID); err != nil {
		return err
	}

	sub, err := s.provider.GetSubscription(ctx, externalID)
	if err != nil {
		return domain.NewProviderError("subscription fetch", err)
	}
	if sub.CustomerID == "" {
		return domain.NewNotFoundError("customer")
	}

	if err := s.provider.UpdateCustomer(ctx, sub.CustomerID, name, email); err != nil {
		return domain.NewProviderError("customer update", err)
	}
	s.logger.Info("customer info updated", "external_id", externalID)
	return nil
}

// ReconcileAll refreshes every projection row from the provider. It
// backstops lost webhooks; per-row failures are logged and skipped so
// one bad subscription cannot stall the sweep.
func (s *Service) ReconcileAll(ctx context.Context) error {
	rows, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	var failed int
	for _, row := range rows {
		sub, err := s.provider.GetSubscription(ctx, row.ExternalID)
		if err != nil {
			s.logger.Warn("failed to reconcile subscription", "external_id", row.ExternalID, "error", err)
			failed++
			continue
		}
		if sub.Status == row.Status && sub.ScheduledToCancel == row.ScheduledToCancel {
			continue
		}
		if err := s.store.UpdateSubscriptionStatus(ctx, row.ExternalID, sub.Status, sub.ScheduledToCancel); err != nil {
			s.logger.Warn("failed to store reconciled status", "external_id", row.ExternalID, "error", err)
			failed++
			continue
		}
		s.logger.Info("reconciled subscription", "external_id", row.ExternalID, "status", sub.Status)
	}

	if failed > 0 {
		return fmt.Errorf("reconciliation finished with %d failures", failed)
	}
	return nil
}

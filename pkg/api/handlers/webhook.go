package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/showcasely/pkg/api/errors"
	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/subscription"
)

// WebhookRecorder counts webhook delivery outcomes
type WebhookRecorder interface {
	RecordWebhook(outcome string)
}

// WebhookHandler receives billing provider webhooks
type WebhookHandler struct {
	subscriptionService *subscription.Service
	recorder            WebhookRecorder
}

// NewWebhookHandler creates a new webhook handler. recorder may be nil.
func NewWebhookHandler(subscriptionService *subscription.Service, recorder WebhookRecorder) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		recorder:            recorder,
	}
}

func (h *WebhookHandler) record(outcome string) {
	if h.recorder != nil {
		h.recorder.RecordWebhook(outcome)
	}
}

// HandleBillingWebhook verifies and processes one webhook delivery
// @Summary Billing provider webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Router /webhook/billing [post]
func (h *WebhookHandler) HandleBillingWebhook(c echo.Context) error {
	// The raw body is needed for signature verification; Bind would
	// consume and reshape it.
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	signature := c.Request().Header.Get("Stripe-Signature")

	if err := h.subscriptionService.HandleWebhook(c.Request().Context(), payload, signature); err != nil {
		if domain.IsWebhookSignature(err) {
			h.record("rejected")
		} else {
			h.record("failed")
		}
		return errors.Respond(c, err)
	}

	h.record("processed")
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/showcasely/pkg/api/errors"
	"github.com/jordanlanch/showcasely/pkg/license"
	"github.com/jordanlanch/showcasely/pkg/models"
	"github.com/jordanlanch/showcasely/pkg/pricing"
	"github.com/jordanlanch/showcasely/pkg/subscription"
)

// SiteHandler serves the tenant-facing pages under the internal
// /_sites/:domain namespace: pricing, checkout and the customer portal.
// Requests only reach it through the subdomain rewrite.
type SiteHandler struct {
	pricingService      *pricing.Service
	subscriptionService *subscription.Service
	licenseService      *license.Service
	validator           *validator.Validate
}

// NewSiteHandler creates a new site handler
func NewSiteHandler(pricingService *pricing.Service, subscriptionService *subscription.Service, licenseService *license.Service) *SiteHandler {
	return &SiteHandler{
		pricingService:      pricingService,
		subscriptionService: subscriptionService,
		licenseService:      licenseService,
		validator:           validator.New(),
	}
}

// Pricing handles the tenant pricing page
// @Summary Tenant pricing page
// @Tags Sites
// @Produce json
// @Router /_sites/{domain} [get]
func (h *SiteHandler) Pricing(c echo.Context) error {
	resp, err := h.pricingService.PricingPage(c.Request().Context(), c.Param("domain"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Checkout handles the tenant checkout view for one price, addressed by
// the provider's external price id as embedded in checkout links
// @Summary Tenant checkout view
// @Tags Sites
// @Produce json
// @Router /_sites/{domain}/checkout/{priceId} [get]
func (h *SiteHandler) Checkout(c echo.Context) error {
	resp, err := h.pricingService.Checkout(c.Request().Context(), c.Param("domain"), c.Param("priceId"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Portal handles the customer self-service portal view
// @Summary Customer portal
// @Tags Sites
// @Produce json
// @Router /_sites/{domain}/portal/{subscriptionId} [get]
func (h *SiteHandler) Portal(c echo.Context) error {
	resp, err := h.subscriptionService.Portal(c.Request().Context(), c.Param("subscriptionId"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CancelSubscription schedules cancellation at the end of the billing
// period. The response confirms scheduling only: local status changes
// when the provider's webhook arrives.
// @Summary Schedule subscription cancellation
// @Tags Sites
// @Produce json
// @Router /_sites/{domain}/portal/{subscriptionId}/cancel [post]
func (h *SiteHandler) CancelSubscription(c echo.Context) error {
	if err := h.subscriptionService.Cancel(c.Request().Context(), c.Param("subscriptionId")); err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Cancellation scheduled",
	})
}

// ResumeSubscription clears a scheduled cancellation
// @Summary Resume subscription
// @Tags Sites
// @Produce json
// @Router /_sites/{domain}/portal/{subscriptionId}/resume [post]
func (h *SiteHandler) ResumeSubscription(c echo.Context) error {
	if err := h.subscriptionService.Resume(c.Request().Context(), c.Param("subscriptionId")); err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Cancellation cleared",
	})
}

// ResetLicense rotates the subscription's license key
// @Summary Reset license key
// @Tags Sites
// @Produce json
// @Router /_sites/{domain}/portal/{subscriptionId}/license [post]
func (h *SiteHandler) ResetLicense(c echo.Context) error {
	key, err := h.licenseService.Reset(c.Request().Context(), c.Param("subscriptionId"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.ResetLicenseResponse{LicenseKey: key})
}

// UpdateCustomerInfo pushes new contact details to the billing provider
// @Summary Update customer info
// @Tags Sites
// @Accept json
// @Produce json
// @Router /_sites/{domain}/portal/{subscriptionId}/customer [patch]
func (h *SiteHandler) UpdateCustomerInfo(c echo.Context) error {
	var req models.CustomerInfoRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	if err := h.subscriptionService.UpdateCustomerInfo(c.Request().Context(), c.Param("subscriptionId"), req.Name, req.Email); err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Customer info updated",
	})
}

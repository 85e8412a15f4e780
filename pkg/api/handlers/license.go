package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/showcasely/pkg/api/errors"
	"github.com/jordanlanch/showcasely/pkg/license"
	"github.com/jordanlanch/showcasely/pkg/models"
)

// LicenseHandler validates license keys for external integrations
type LicenseHandler struct {
	licenseService *license.Service
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(licenseService *license.Service) *LicenseHandler {
	return &LicenseHandler{licenseService: licenseService}
}

// Validate reports whether a license key is active. An unknown key is a
// valid:false response, not an error.
// @Summary Validate license key
// @Tags Licenses
// @Produce json
// @Router /validate/{licenseKey} [get]
func (h *LicenseHandler) Validate(c echo.Context) error {
	valid, err := h.licenseService.Validate(c.Request().Context(), c.Param("licenseKey"))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.ValidateLicenseResponse{Valid: valid})
}

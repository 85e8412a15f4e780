package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/showcasely/pkg/api/errors"
	"github.com/jordanlanch/showcasely/pkg/catalog"
	"github.com/jordanlanch/showcasely/pkg/models"
)

// ShowcaseHandler handles the dashboard showcase management endpoints
type ShowcaseHandler struct {
	catalogService *catalog.Service
	rootDomain     string
}

// NewShowcaseHandler creates a new showcase handler
func NewShowcaseHandler(catalogService *catalog.Service, rootDomain string) *ShowcaseHandler {
	return &ShowcaseHandler{
		catalogService: catalogService,
		rootDomain:     rootDomain,
	}
}

func requireUserID(c echo.Context) (string, bool) {
	userID, ok := c.Get("user_id").(string)
	return userID, ok && userID != ""
}

// Create handles creating a showcase with its catalog
// @Summary Create showcase
// @Description Create a showcase with its product catalog and synchronize it to the billing provider
// @Tags Showcases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /showcases [post]
func (h *ShowcaseHandler) Create(c echo.Context) error {
	userID, ok := requireUserID(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	var req models.ShowcaseRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	resp, err := h.catalogService.Create(c.Request().Context(), userID, &req, h.rootDomain)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// List handles listing the caller's showcases
// @Summary List showcases
// @Tags Showcases
// @Produce json
// @Security BearerAuth
// @Router /showcases [get]
func (h *ShowcaseHandler) List(c echo.Context) error {
	userID, ok := requireUserID(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	resp, err := h.catalogService.List(c.Request().Context(), userID)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Get handles fetching one showcase with its catalog
// @Summary Get showcase
// @Tags Showcases
// @Produce json
// @Security BearerAuth
// @Router /showcases/{id} [get]
func (h *ShowcaseHandler) Get(c echo.Context) error {
	userID, ok := requireUserID(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	resp, err := h.catalogService.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Update handles editing a showcase and re-synchronizing its catalog
// @Summary Update showcase
// @Tags Showcases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /showcases/{id} [put]
func (h *ShowcaseHandler) Update(c echo.Context) error {
	userID, ok := requireUserID(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	var req models.ShowcaseRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	resp, err := h.catalogService.Update(c.Request().Context(), userID, c.Param("id"), &req)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Delete handles deleting a showcase and archiving its provider objects
// @Summary Delete showcase
// @Tags Showcases
// @Produce json
// @Security BearerAuth
// @Router /showcases/{id} [delete]
func (h *ShowcaseHandler) Delete(c echo.Context) error {
	userID, ok := requireUserID(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	if err := h.catalogService.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Showcase deleted",
	})
}

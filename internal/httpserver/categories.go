package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CategoryHandler struct {
	Svc *service.CatalogService
}

func (h *CategoryHandler) List(c echo.Context) error {
	list, err := h.Svc.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.Categories(list))
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cat, err := h.Svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.CategoryWithCount(*cat))
}

func (h *CategoryHandler) Create(c echo.Context) error {
	body, err := bindFields(c)
	if err != nil {
		return err
	}
	defer body.Close()

	cat, err := h.Svc.CreateCategory(c.Request().Context(), body.fields.Category())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.CategoryWithCount(*cat))
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	body, err := bindFields(c)
	if err != nil {
		return err
	}
	defer body.Close()

	cat, err := h.Svc.UpdateCategory(c.Request().Context(), id, body.fields.Category())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.CategoryWithCount(*cat))
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Category deleted successfully"})
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type ProductHandler struct {
	Svc *service.CatalogService
	URL transport.URLFunc
}

func (h *ProductHandler) List(c echo.Context) error {
	page, err := h.Svc.ListProducts(c.Request().Context(), service.ProductQuery{
		Category: c.QueryParam("category"),
		MinPrice: c.QueryParam("min_price"),
		MaxPrice: c.QueryParam("max_price"),
		Search:   c.QueryParam("search"),
		Page:     c.QueryParam("page"),
		PerPage:  c.QueryParam("per_page"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.ProductPage(page, h.URL))
}

func (h *ProductHandler) Search(c echo.Context) error {
	page, err := h.Svc.SearchProducts(c.Request().Context(), c.QueryParam("q"), c.QueryParam("page"), c.QueryParam("per_page"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.ProductPage(page, h.URL))
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.Svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.Product(*p, h.URL))
}

func (h *ProductHandler) Create(c echo.Context) error {
	body, err := bindFields(c)
	if err != nil {
		return err
	}
	defer body.Close()

	p, err := h.Svc.CreateProduct(c.Request().Context(), body.fields.Product(), body.upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.ProductMessageResponse{
		Message: "Product created successfully",
		Product: transport.Product(*p, h.URL),
	})
}

// Update serves both PUT and the multipart POST form of the route.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	body, err := bindFields(c)
	if err != nil {
		return err
	}
	defer body.Close()

	p, err := h.Svc.UpdateProduct(c.Request().Context(), id, body.fields.Product(), body.upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.ProductMessageResponse{
		Message: "Product updated successfully",
		Product: transport.Product(*p, h.URL),
	})
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteProduct(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Product deleted successfully"})
}

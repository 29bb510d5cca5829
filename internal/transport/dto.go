package transport

import (
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type CategoryResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   *string   `json:"description"`
	ProductsCount *int64    `json:"products_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ProductResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Price       string            `json:"price"`
	CategoryID  uint              `json:"category_id"`
	Image       *string           `json:"image"`
	ImageURL    *string           `json:"image_url"`
	Category    *CategoryResponse `json:"category"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ProductMessageResponse struct {
	Message string          `json:"message"`
	Product ProductResponse `json:"product"`
}

type ProductPageResponse struct {
	Data        []ProductResponse `json:"data"`
	CurrentPage int               `json:"current_page"`
	LastPage    int               `json:"last_page"`
	PerPage     int               `json:"per_page"`
	Total       int64             `json:"total"`
	From        *int              `json:"from"`
	To          *int              `json:"to"`
}

// URLFunc turns a stored relative path into a public URL.
type URLFunc func(rel string) string

func Category(c models.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func CategoryWithCount(c repo.CategoryWithCount) CategoryResponse {
	out := Category(c.Category)
	n := c.ProductsCount
	out.ProductsCount = &n
	return out
}

func Categories(list []repo.CategoryWithCount) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, CategoryWithCount(c))
	}
	return out
}

func Product(p models.Product, url URLFunc) ProductResponse {
	out := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		CategoryID:  p.CategoryID,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Image != nil && url != nil {
		u := url(*p.Image)
		out.ImageURL = &u
	}
	if p.Category.ID != 0 {
		c := Category(p.Category)
		out.Category = &c
	}
	return out
}

func ProductPage(page *service.ProductPage, url URLFunc) ProductPageResponse {
	data := make([]ProductResponse, 0, len(page.Items))
	for _, p := range page.Items {
		data = append(data, Product(p, url))
	}
	return ProductPageResponse{
		Data:        data,
		CurrentPage: page.Meta.CurrentPage,
		LastPage:    page.Meta.LastPage,
		PerPage:     page.Meta.PerPage,
		Total:       page.Meta.Total,
		From:        page.Meta.From,
		To:          page.Meta.To,
	}
}

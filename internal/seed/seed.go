// Package seed fills an empty database with demo accounts and a small
// catalog.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
)

const DemoPassword = "password"

type account struct {
	name, email string
	role        models.Role
}

type category struct {
	name, slug, description string
}

type product struct {
	name, description, price string
	category                 string
}

var accounts = []account{
	{"Admin User", "admin@example.com", models.RoleAdmin},
	{"Test User", "user@example.com", models.RoleUser},
}

var categories = []category{
	{"Electronics", "electronics", "Electronic devices and gadgets"},
	{"Clothing", "clothing", "Fashion and apparel"},
	{"Home & Garden", "home-garden", "Home improvement and garden supplies"},
	{"Sports", "sports", "Sports equipment and accessories"},
	{"Books", "books", "Books and educational materials"},
}

var products = []product{
	{"iPhone 15 Pro", "Latest Apple smartphone with A17 Pro chip", "999.99", "electronics"},
	{"MacBook Air M3", "Lightweight laptop with M3 chip", "1199.99", "electronics"},
	{"Sony WH-1000XM5", "Premium noise-canceling headphones", "349.99", "electronics"},
	{`Samsung 65" OLED TV`, "4K OLED Smart TV", "1499.99", "electronics"},
	{"Nike Air Max 90", "Classic sneakers with Air cushioning", "129.99", "clothing"},
	{"Levi's 501 Jeans", "Original fit jeans", "79.99", "clothing"},
	{"North Face Jacket", "Waterproof outdoor jacket", "199.99", "clothing"},
	{"Dyson V15 Vacuum", "Cordless vacuum cleaner", "649.99", "home-garden"},
	{"Weber Gas Grill", "3-burner propane grill", "549.99", "home-garden"},
	{"Yoga Mat Pro", "Non-slip premium yoga mat", "59.99", "sports"},
	{"Dumbbell Set", "Adjustable dumbbells 5-50 lbs", "299.99", "sports"},
	{"Clean Code", "A Handbook of Agile Software Craftsmanship", "39.99", "books"},
}

type Result struct {
	Users      int
	Categories int
	Products   int
}

// Run inserts whatever demo rows are missing. Accounts are matched by
// email and categories by slug; products are only seeded into a category
// that was created by this run. index may be nil.
func Run(ctx context.Context, r *repo.GormRepo, index search.Index) (Result, error) {
	l := logging.FromContext(ctx).With("svc", "seed")
	var res Result

	for _, a := range accounts {
		taken, err := r.EmailTaken(ctx, a.email)
		if err != nil {
			return res, fmt.Errorf("check %s: %w", a.email, err)
		}
		if taken {
			continue
		}
		pw, err := hash.HashPassword(DemoPassword)
		if err != nil {
			return res, fmt.Errorf("hash password: %w", err)
		}
		if err := r.CreateUser(ctx, &models.User{Name: a.name, Email: a.email, PasswordHash: pw, Role: a.role}); err != nil {
			return res, fmt.Errorf("create %s: %w", a.email, err)
		}
		res.Users++
	}

	fresh := map[string]uint{}
	for _, c := range categories {
		taken, err := r.SlugTaken(ctx, c.slug, 0)
		if err != nil {
			return res, fmt.Errorf("check %s: %w", c.slug, err)
		}
		if taken {
			continue
		}
		desc := c.description
		row := &models.Category{Name: c.name, Slug: c.slug, Description: &desc}
		if err := r.CreateCategory(ctx, row); err != nil {
			return res, fmt.Errorf("create category %s: %w", c.slug, err)
		}
		fresh[c.slug] = row.ID
		res.Categories++
	}

	for _, p := range products {
		cid, ok := fresh[p.category]
		if !ok {
			continue
		}
		desc := p.description
		row := &models.Product{
			Name:        p.name,
			Description: &desc,
			Price:       decimal.RequireFromString(p.price),
			CategoryID:  cid,
		}
		if err := r.CreateProduct(ctx, row); err != nil {
			return res, fmt.Errorf("create product %s: %w", p.name, err)
		}
		res.Products++

		if index != nil {
			if err := index.Upsert(ctx, row); err != nil {
				l.Warn("seed_index_failed", "product_id", row.ID, "error", err)
			}
		}
	}

	l.Info("seed_success", "users", res.Users, "categories", res.Categories, "products", res.Products)
	return res, nil
}

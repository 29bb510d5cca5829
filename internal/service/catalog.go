package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/internal/validation"
)

const (
	DefaultMaxImageBytes = 2 << 20

	maxNameLen        = 255
	maxDescriptionLen = 5000
	imageDir          = "products"
	sideEffectTimeout = 5 * time.Second
)

var maxPrice = decimal.RequireFromString("99999999.99")

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type CatalogStore interface {
	ListProducts(ctx context.Context, f repo.ProductFilter) ([]models.Product, int64, error)
	ProductByID(ctx context.Context, id uint) (*models.Product, error)
	ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	SaveProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error

	ListCategories(ctx context.Context) ([]repo.CategoryWithCount, error)
	CategoryWithCount(ctx context.Context, id uint) (*repo.CategoryWithCount, error)
	CategoryByID(ctx context.Context, id uint) (*models.Category, error)
	CategoryExists(ctx context.Context, id uint) (bool, error)
	SlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	SaveCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id uint) error
}

type CatalogService struct {
	Repo   CatalogStore
	Files  storage.Files
	Events events.Publisher
	// Index is optional. Without it search uses the database.
	Index         search.Index
	MaxImageBytes int64
}

type productChanges struct {
	name        *string
	setDesc     bool
	description *string
	price       *decimal.Decimal
	categoryID  *uint
}

func (c productChanges) apply(p *models.Product) {
	if c.name != nil {
		p.Name = *c.name
	}
	if c.setDesc {
		p.Description = c.description
	}
	if c.price != nil {
		p.Price = *c.price
	}
	if c.categoryID != nil {
		p.CategoryID = *c.categoryID
	}
}

type image struct {
	data []byte
	ext  string
}

func (s *CatalogService) maxImageBytes() int64 {
	if s.MaxImageBytes > 0 {
		return s.MaxImageBytes
	}
	return DefaultMaxImageBytes
}

func validateString(verr *apperr.ValidationError, field string, f Field, max int) *string {
	if f.Kind != KindString {
		verr.Add(field, validation.MustBeString(field))
		return nil
	}
	v := strings.TrimSpace(f.Value)
	if utf8.RuneCountInString(v) > max {
		verr.Add(field, validation.MaxString(field, strconv.Itoa(max)))
		return nil
	}
	return &v
}

func validatePrice(verr *apperr.ValidationError, f Field) *decimal.Decimal {
	if f.Kind == KindOther {
		verr.Add("price", validation.MustBeNumber("price"))
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(f.Value))
	if err != nil {
		verr.Add("price", validation.MustBeNumber("price"))
		return nil
	}
	if d.IsNegative() {
		verr.Add("price", validation.MinNumber("price", "0"))
		return nil
	}
	if d.GreaterThan(maxPrice) {
		verr.Add("price", validation.MaxNumber("price", maxPrice.String()))
		return nil
	}
	d = d.Round(2)
	return &d
}

func validateID(verr *apperr.ValidationError, field string, f Field) *uint {
	if f.Kind == KindOther {
		verr.Add(field, validation.MustBeInteger(field))
		return nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(f.Value), 10, 64)
	if err != nil || n == 0 {
		if err != nil {
			verr.Add(field, validation.MustBeInteger(field))
		} else {
			verr.Add(field, validation.Invalid(field))
		}
		return nil
	}
	id := uint(n)
	return &id
}

// validateProduct checks the attributes of in. On create the name, price
// and category_id attributes are required; on update only present
// attributes are checked.
func (s *CatalogService) validateProduct(ctx context.Context, in ProductInput, upload *Upload, create bool) (productChanges, *image, error) {
	var ch productChanges
	verr := apperr.NewValidation()

	required := func(field string, f Field) bool {
		if f.Filled() {
			return true
		}
		if create || f.Present {
			verr.Add(field, validation.Required(field))
		}
		return false
	}

	if required("name", in.Name) {
		ch.name = validateString(verr, "name", in.Name, maxNameLen)
	}
	if in.Description.Present {
		ch.setDesc = true
		if in.Description.Filled() {
			if d := validateString(verr, "description", in.Description, maxDescriptionLen); d != nil && *d != "" {
				ch.description = d
			}
		}
	}
	if required("price", in.Price) {
		ch.price = validatePrice(verr, in.Price)
	}
	if required("category_id", in.CategoryID) {
		ch.categoryID = validateID(verr, "category_id", in.CategoryID)
	}
	if ch.categoryID != nil {
		ok, err := s.Repo.CategoryExists(ctx, *ch.categoryID)
		if err != nil {
			return ch, nil, err
		}
		if !ok {
			verr.Add("category_id", validation.Invalid("category_id"))
			ch.categoryID = nil
		}
	}

	var img *image
	switch {
	case upload != nil:
		var err error
		img, err = s.readImage(upload, verr)
		if err != nil {
			return ch, nil, err
		}
	case in.Image.Filled():
		verr.Add("image", "The image field must be an image.")
	}

	return ch, img, verr.OrNil()
}

func (s *CatalogService) readImage(u *Upload, verr *apperr.ValidationError) (*image, error) {
	limit := s.maxImageBytes()
	data, err := io.ReadAll(io.LimitReader(u.Content, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		verr.Add("image", "The image field must not be greater than "+strconv.FormatInt(limit/1024, 10)+" kilobytes.")
		return nil, nil
	}
	if len(data) == 0 {
		verr.Add("image", "The image field must be an image.")
		return nil, nil
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := imageTypes[m.String()]; ok {
			return &image{data: data, ext: ext}, nil
		}
	}
	if strings.HasPrefix(mt.String(), "image/") {
		verr.Add("image", "The image field must be a file of type: jpeg, png, jpg, gif, webp.")
	} else {
		verr.Add("image", "The image field must be an image.")
	}
	return nil, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput, upload *Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	ch, img, err := s.validateProduct(ctx, in, upload, true)
	if err != nil {
		l.Warn("create_product_failed", "status", 422, "reason", "invalid input", "error", err)
		return nil, err
	}

	p := &models.Product{}
	ch.apply(p)

	if img != nil {
		rel, err := s.Files.Put(ctx, imageDir, img.ext, img.data)
		if err != nil {
			l.Error("create_product_failed", "status", 500, "reason", "cannot store image", "error", err)
			return nil, err
		}
		p.Image = &rel
	}

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		s.discard(ctx, p.Image)
		var ref *apperr.ReferenceError
		if errors.As(err, &ref) {
			return nil, ref.Validation()
		}
		l.Error("create_product_failed", "status", 500, "reason", "cannot add product to db", "error", err)
		return nil, err
	}

	created, err := s.Repo.ProductByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicProducts, events.New(events.ProductCreated, created.ID, created.Name))
	s.reindex(ctx, created)
	l.Info("create_product_success", "product_id", created.ID)
	return created, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput, upload *Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update_product", "product_id", id)

	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			l.Error("update_product_failed", "status", 500, "error", err)
		}
		return nil, err
	}

	ch, img, err := s.validateProduct(ctx, in, upload, false)
	if err != nil {
		l.Warn("update_product_failed", "status", 422, "reason", "invalid input", "error", err)
		return nil, err
	}
	ch.apply(p)

	old := p.Image
	if img != nil {
		rel, err := s.Files.Put(ctx, imageDir, img.ext, img.data)
		if err != nil {
			l.Error("update_product_failed", "status", 500, "reason", "cannot store image", "error", err)
			return nil, err
		}
		p.Image = &rel
	}

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		if img != nil {
			s.discard(ctx, p.Image)
		}
		var ref *apperr.ReferenceError
		if errors.As(err, &ref) {
			return nil, ref.Validation()
		}
		l.Error("update_product_failed", "status", 500, "reason", "cannot save product", "error", err)
		return nil, err
	}
	if img != nil {
		s.discard(ctx, old)
	}

	updated, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicProducts, events.New(events.ProductUpdated, updated.ID, updated.Name))
	s.reindex(ctx, updated)
	l.Info("update_product_success")
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product", "product_id", id)

	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			l.Error("delete_product_failed", "status", 500, "reason", "cannot delete product from db", "error", err)
		}
		return err
	}
	s.discard(ctx, p.Image)

	s.publish(ctx, events.TopicProducts, events.New(events.ProductDeleted, id, p.Name))
	s.unindex(ctx, id)
	l.Info("delete_product_success")
	return nil
}

func (s *CatalogService) validateSlug(ctx context.Context, verr *apperr.ValidationError, f Field, exceptID uint) (*string, error) {
	v := validateString(verr, "slug", f, maxNameLen)
	if v == nil {
		return nil, nil
	}
	if !slug.IsSlug(*v) {
		verr.Add("slug", "The slug field must only contain lowercase letters, numbers and dashes.")
		return nil, nil
	}
	taken, err := s.Repo.SlugTaken(ctx, *v, exceptID)
	if err != nil {
		return nil, err
	}
	if taken {
		verr.Add("slug", validation.Taken("slug"))
		return nil, nil
	}
	return v, nil
}

// uniqueSlug derives a slug from name and appends -2, -3, ... until it is
// free.
func (s *CatalogService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "category"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.Repo.SlugTaken(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*repo.CategoryWithCount, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_category")

	verr := apperr.NewValidation()
	var c models.Category
	if in.Name.Filled() {
		if v := validateString(verr, "name", in.Name, maxNameLen); v != nil {
			c.Name = *v
		}
	} else {
		verr.Add("name", validation.Required("name"))
	}
	if in.Slug.Filled() {
		v, err := s.validateSlug(ctx, verr, in.Slug, 0)
		if err != nil {
			l.Error("create_category_failed", "status", 500, "reason", "cannot check slug", "error", err)
			return nil, err
		}
		if v != nil {
			c.Slug = *v
		}
	}
	if in.Description.Filled() {
		c.Description = validateString(verr, "description", in.Description, maxDescriptionLen)
	}
	if err := verr.OrNil(); err != nil {
		l.Warn("create_category_failed", "status", 422, "reason", "invalid input", "error", err)
		return nil, err
	}

	if c.Slug == "" {
		generated, err := s.uniqueSlug(ctx, c.Name)
		if err != nil {
			l.Error("create_category_failed", "status", 500, "reason", "cannot generate slug", "error", err)
			return nil, err
		}
		c.Slug = generated
	}

	if err := s.Repo.CreateCategory(ctx, &c); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Field("slug", validation.Taken("slug"))
		}
		l.Error("create_category_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, events.TopicCategories, events.New(events.CategoryCreated, c.ID, c.Name))
	l.Info("create_category_success", "category_id", c.ID)
	return s.Repo.CategoryWithCount(ctx, c.ID)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*repo.CategoryWithCount, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update_category", "category_id", id)

	c, err := s.Repo.CategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := apperr.NewValidation()
	if in.Name.Present {
		if !in.Name.Filled() {
			verr.Add("name", validation.Required("name"))
		} else if v := validateString(verr, "name", in.Name, maxNameLen); v != nil {
			c.Name = *v
		}
	}
	if in.Slug.Filled() {
		v, err := s.validateSlug(ctx, verr, in.Slug, id)
		if err != nil {
			l.Error("update_category_failed", "status", 500, "reason", "cannot check slug", "error", err)
			return nil, err
		}
		if v != nil {
			c.Slug = *v
		}
	}
	if in.Description.Present {
		c.Description = nil
		if in.Description.Filled() {
			c.Description = validateString(verr, "description", in.Description, maxDescriptionLen)
		}
	}
	if err := verr.OrNil(); err != nil {
		l.Warn("update_category_failed", "status", 422, "reason", "invalid input", "error", err)
		return nil, err
	}

	if err := s.Repo.SaveCategory(ctx, c); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Field("slug", validation.Taken("slug"))
		}
		l.Error("update_category_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, events.TopicCategories, events.New(events.CategoryUpdated, c.ID, c.Name))
	l.Info("update_category_success")
	return s.Repo.CategoryWithCount(ctx, c.ID)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_category", "category_id", id)

	if err := s.Repo.DeleteCategory(ctx, id); err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			l.Warn("delete_category_failed", "status", 409, "reason", "category has products", "error", err)
			return apperr.New(apperr.ErrConflict, "Cannot delete a category that still has products.")
		case !errors.Is(err, apperr.ErrNotFound):
			l.Error("delete_category_failed", "status", 500, "error", err)
		}
		return err
	}

	s.publish(ctx, events.TopicCategories, events.New(events.CategoryDeleted, id, ""))
	l.Info("delete_category_success")
	return nil
}

func (s *CatalogService) discard(ctx context.Context, rel *string) {
	if rel == nil || *rel == "" || s.Files == nil {
		return
	}
	if err := s.Files.Delete(ctx, *rel); err != nil {
		logging.FromContext(ctx).Warn("delete_image_failed", "path", *rel, "error", err)
	}
}

func (s *CatalogService) publish(ctx context.Context, topic string, e events.Event) {
	publish(ctx, s.Events, topic, e)
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.Index.Upsert(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("index_product_failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) unindex(ctx context.Context, id uint) {
	if s.Index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.Index.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("unindex_product_failed", "product_id", id, "error", err)
	}
}

// publish is best effort: failures are logged and never returned.
func publish(ctx context.Context, p events.Publisher, topic string, e events.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := p.Publish(ctx, topic, e); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", e.Type, "error", err)
	}
}

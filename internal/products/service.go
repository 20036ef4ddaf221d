package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
	"github.com/rmarin-dev/shopline-backend/pkg/text"
)

// Service defines the behavior needed by the product controllers.
type Service interface {
	List(ctx context.Context, q ListQuery) (*ListResult, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddImages(ctx context.Context, id uuid.UUID, urls []string) (*ProductDTO, error)
	RemoveImage(ctx context.Context, id uuid.UUID, url string) (*ProductDTO, error)
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, q ListQuery) ([]models.Product, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type service struct {
	repo       productRepository
	categories categoryFinder
}

// ServiceParams bundles the dependencies required to build a product service.
type ServiceParams struct {
	Repo       productRepository
	Categories categoryFinder
}

// NewService constructs a product service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("category repository is required")
	}
	return &service{repo: params.Repo, categories: params.Categories}, nil
}

func (s *service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	list, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return &ListResult{
		Items: FromModels(list),
		Meta:  pagination.MetaFor(pagination.Params{Page: q.Page, Limit: q.Limit}, total),
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return FromModel(product), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return FromModel(product), nil
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	name := strings.TrimSpace(req.Name)
	slug := text.Slugify(name)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name must contain letters or digits")
	}
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if err := validatePricing(req.ListPrice, req.DiscountPrice); err != nil {
		return nil, err
	}
	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	product := &models.Product{
		Name:          name,
		Slug:          slug,
		SKU:           sku,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Brand:         req.Brand,
		Tags:          normalizeTags(req.Tags),
		ListPrice:     req.ListPrice,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		IsActive:      active,
		IsFeatured:    req.IsFeatured,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug or sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		slug := text.Slugify(name)
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name must contain letters or digits")
		}
		updates["name"] = name
		updates["slug"] = slug
	}
	if req.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*req.SKU))
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		updates["sku"] = sku
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Tags != nil {
		updates["tags"] = normalizeTags(req.Tags)
	}

	listPrice := current.ListPrice
	if req.ListPrice != nil {
		listPrice = *req.ListPrice
		updates["list_price"] = *req.ListPrice
	}
	switch {
	case req.ClearDiscount:
		if err := validatePricing(listPrice, nil); err != nil {
			return nil, err
		}
		updates["discount_price"] = nil
	case req.DiscountPrice != nil:
		if err := validatePricing(listPrice, req.DiscountPrice); err != nil {
			return nil, err
		}
		updates["discount_price"] = *req.DiscountPrice
	case req.ListPrice != nil:
		if err := validatePricing(listPrice, current.DiscountPrice); err != nil {
			return nil, err
		}
	}

	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	product, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug or sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return FromModel(product), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

// AddImages appends uploaded image URLs to the product gallery.
func (s *service) AddImages(ctx context.Context, id uuid.UUID, urls []string) (*ProductDTO, error) {
	if len(urls) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no images provided")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	merged := append([]string{}, current.ImageURLs...)
	merged = append(merged, urls...)
	product, err := s.repo.Update(ctx, id, map[string]any{"image_urls": pqStringArray(merged)})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store product images")
	}
	return FromModel(product), nil
}

// RemoveImage drops a single URL from the product gallery.
func (s *service) RemoveImage(ctx context.Context, id uuid.UUID, url string) (*ProductDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	kept := make([]string, 0, len(current.ImageURLs))
	for _, existing := range current.ImageURLs {
		if existing != url {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(current.ImageURLs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}

	product, err := s.repo.Update(ctx, id, map[string]any{"image_urls": pqStringArray(kept)})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store product images")
	}
	return FromModel(product), nil
}

func normalizeTags(in []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func pqStringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

func validatePricing(listPrice decimal.Decimal, discount *decimal.Decimal) error {
	if listPrice.IsNegative() || listPrice.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "list price must be positive")
	}
	if discount != nil {
		if discount.IsNegative() || discount.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount price must be positive")
		}
		if discount.GreaterThanOrEqual(listPrice) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount price must be below list price")
		}
	}
	return nil
}

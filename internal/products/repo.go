package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
)

// ErrInsufficientStock is returned when a stock reservation asks for more
// units than the product has left.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository exposes product persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads a product by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product by its URL slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the given products in one query. Missing IDs are simply
// absent from the result.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// List returns a filtered page of products plus the total match count.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Product, int64, error) {
	params := pagination.Params{Page: q.Page, Limit: q.Limit}.Normalize()

	base := r.db.WithContext(ctx).Model(&models.Product{})
	if !q.IncludeInactive {
		base = base.Where("is_active = ?", true)
	}
	if q.CategorySlug != "" {
		// the named category plus its direct subcategories
		base = base.Where(
			"category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").Where(
				"slug = ? OR parent_id IN (?)", q.CategorySlug,
				r.db.Model(&models.Category{}).Select("id").Where("slug = ?", q.CategorySlug),
			),
		)
	}
	if q.SubCategorySlug != "" {
		base = base.Where(
			"category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").
				Where("slug = ? AND parent_id IS NOT NULL", q.SubCategorySlug),
		)
	}
	if q.Search != "" {
		needle := "%" + strings.ToLower(strings.TrimSpace(q.Search)) + "%"
		base = base.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", needle, needle)
	}
	if q.Featured != nil {
		base = base.Where("is_featured = ?", *q.Featured)
	}
	if q.Tag != "" {
		// tags are stored in array-literal form, so match the tag between
		// delimiters instead of as a bare substring
		tag := strings.ToLower(strings.TrimSpace(q.Tag))
		base = base.Where(
			"tags LIKE ? OR tags LIKE ? OR tags LIKE ? OR tags LIKE ?",
			"{"+tag+"}", "{"+tag+",%", "%,"+tag+",%", "%,"+tag+"}",
		)
	}
	// price bounds are bound as floats so the comparison stays numeric on
	// both backends
	if q.MinPrice != nil {
		base = base.Where("COALESCE(discount_price, list_price) >= ?", q.MinPrice.InexactFloat64())
	}
	if q.MaxPrice != nil {
		base = base.Where("COALESCE(discount_price, list_price) <= ?", q.MaxPrice.InexactFloat64())
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Product
	err := base.
		Order(orderClause(q.Sort)).
		Limit(params.Limit).
		Offset(params.Offset()).
		Preload("Category").
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func orderClause(sort string) string {
	switch sort {
	case "price_asc":
		return "COALESCE(discount_price, list_price) asc"
	case "price_desc":
		return "COALESCE(discount_price, list_price) desc"
	case "rating":
		return "rating_avg desc, rating_count desc"
	case "oldest":
		return "created_at asc"
	default:
		return "created_at desc"
	}
}

// Update applies the provided column updates to a product.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error) {
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", id).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

// Delete removes a product row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock reserves qty units with a conditional update so two
// concurrent orders can never oversell. Returns ErrInsufficientStock when
// fewer than qty units remain.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestoreStock returns qty units to the shelf after a cancelled or
// expired order.
func (r *Repository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// UpdateRating overwrites the denormalized review aggregate.
func (r *Repository) UpdateRating(ctx context.Context, id uuid.UUID, avg decimal.Decimal, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"rating_avg":   avg.InexactFloat64(),
			"rating_count": count,
		}).Error
}

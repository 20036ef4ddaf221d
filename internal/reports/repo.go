package reports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the admin reports.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a reports repository to the given connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountOrdersByStatus(ctx context.Context, status enums.OrderStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}

// Revenue sums the grand totals of delivered orders. Orders still in
// flight or cancelled do not count.
func (r *Repository) Revenue(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(grand_total), 0)").
		Where("status = ?", enums.OrderStatusDelivered).
		Scan(&total).Error
	return total, err
}

func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at desc").
		Limit(limit).
		Find(&list).Error
	return list, err
}

type productSalesRecord struct {
	ProductID uuid.UUID
	Name      string
	UnitsSold int64
	Revenue   float64
}

// ProductSales aggregates delivered order lines per product, best
// sellers first.
func (r *Repository) ProductSales(ctx context.Context, limit int) ([]productSalesRecord, error) {
	var rows []productSalesRecord
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id AS product_id, order_items.name AS name, SUM(order_items.quantity) AS units_sold, COALESCE(SUM(order_items.line_total), 0) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Where("order_items.product_id IS NOT NULL").
		Group("order_items.product_id, order_items.name").
		Order("units_sold desc").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

type categorySalesRecord struct {
	CategoryID uuid.UUID
	Name       string
	UnitsSold  int64
	Revenue    float64
}

// CategorySales aggregates delivered order lines per product category.
func (r *Repository) CategorySales(ctx context.Context, limit int) ([]categorySalesRecord, error) {
	var rows []categorySalesRecord
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("categories.id AS category_id, categories.name AS name, SUM(order_items.quantity) AS units_sold, COALESCE(SUM(order_items.line_total), 0) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Group("categories.id, categories.name").
		Order("units_sold desc").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

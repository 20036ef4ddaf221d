package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/internal/orders"
	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
)

const (
	recentOrdersLimit = 10
	salesReportLimit  = 50
)

// Service serves the admin reporting endpoints.
type Service interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
	ProductSales(ctx context.Context) ([]ProductSalesRow, error)
	CategorySales(ctx context.Context) ([]CategorySalesRow, error)
}

type service struct {
	db *db.Client
}

// NewService constructs a reporting service over the database client.
func NewService(client *db.Client) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{db: client}, nil
}

func (s *service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	repo := NewRepository(s.db.DB())

	users, err := repo.CountUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}
	productCount, err := repo.CountProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	orderCount, err := repo.CountOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	pending, err := repo.CountOrdersByStatus(ctx, enums.OrderStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count pending orders")
	}
	revenue, err := repo.Revenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum revenue")
	}
	recent, err := repo.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent orders")
	}

	return &DashboardStats{
		Users:         users,
		Products:      productCount,
		Orders:        orderCount,
		PendingOrders: pending,
		Revenue:       decimal.NewFromFloat(revenue).Round(2),
		RecentOrders:  orders.FromModels(recent),
	}, nil
}

func (s *service) ProductSales(ctx context.Context) ([]ProductSalesRow, error) {
	records, err := NewRepository(s.db.DB()).ProductSales(ctx, salesReportLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "product sales report")
	}
	rows := make([]ProductSalesRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ProductSalesRow{
			ProductID: rec.ProductID,
			Name:      rec.Name,
			UnitsSold: rec.UnitsSold,
			Revenue:   decimal.NewFromFloat(rec.Revenue).Round(2),
		})
	}
	return rows, nil
}

func (s *service) CategorySales(ctx context.Context) ([]CategorySalesRow, error) {
	records, err := NewRepository(s.db.DB()).CategorySales(ctx, salesReportLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "category sales report")
	}
	rows := make([]CategorySalesRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, CategorySalesRow{
			CategoryID: rec.CategoryID,
			Name:       rec.Name,
			UnitsSold:  rec.UnitsSold,
			Revenue:    decimal.NewFromFloat(rec.Revenue).Round(2),
		})
	}
	return rows, nil
}

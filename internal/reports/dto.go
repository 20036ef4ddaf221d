package reports

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/internal/orders"
)

// DashboardStats is the admin overview of the storefront.
type DashboardStats struct {
	Users         int64           `json:"users"`
	Products      int64           `json:"products"`
	Orders        int64           `json:"orders"`
	PendingOrders int64           `json:"pending_orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	RecentOrders  []orders.OrderDTO `json:"recent_orders"`
}

// ProductSalesRow summarizes delivered sales for one product.
type ProductSalesRow struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CategorySalesRow summarizes delivered sales for one category.
type CategorySalesRow struct {
	CategoryID uuid.UUID       `json:"category_id"`
	Name       string          `json:"name"`
	UnitsSold  int64           `json:"units_sold"`
	Revenue    decimal.Decimal `json:"revenue"`
}

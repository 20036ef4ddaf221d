package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/internal/products"
	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
)

// Service defines the behavior needed by the cart controller. Every
// mutation runs in one transaction and recomputes the cart totals before
// committing.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, req UpdateItemRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, req ApplyCouponRequest) (*CartDTO, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

var hundred = decimal.NewFromInt(100)

type service struct {
	db *db.Client
}

// NewService constructs a cart service backed by the database client.
func NewService(client *db.Client) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{db: client}, nil
}

// Get never 404s: a user without a cart row sees the empty cart.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := NewRepository(s.db.DB()).FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FromModel(nil), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return FromModel(cart), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error) {
	var out *CartDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
			}
			cart = &models.Cart{UserID: userID}
			if err := repo.Create(ctx, cart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
			}
		}

		product, err := products.NewRepository(tx).FindByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}

		item := findItem(cart, req.ProductID)
		quantity := req.Quantity
		if item != nil {
			quantity += item.Quantity
		}
		if !product.InStock(quantity) {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for requested quantity")
		}

		if item == nil {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
			})
			item = &cart.Items[len(cart.Items)-1]
		}
		item.Quantity = quantity
		snapshotPrices(item, product)
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart item")
		}

		out, err = s.persistTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, req UpdateItemRequest) (*CartDTO, error) {
	var out *CartDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		item := findItem(cart, productID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}

		product, err := products.NewRepository(tx).FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if !product.InStock(req.Quantity) {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for requested quantity")
		}

		item.Quantity = req.Quantity
		snapshotPrices(item, product)
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart item")
		}

		out, err = s.persistTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	var out *CartDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, cart.ID, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}

		kept := cart.Items[:0]
		for i := range cart.Items {
			if cart.Items[i].ProductID != productID {
				kept = append(kept, cart.Items[i])
			}
		}
		cart.Items = kept

		out, err = s.persistTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, req ApplyCouponRequest) (*CartDTO, error) {
	couponType, err := enums.ParseCouponType(req.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown coupon type")
	}
	if req.Discount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon discount cannot be negative")
	}
	if couponType == enums.CouponTypePercentage && req.Discount.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}

	var out *CartDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		cart.CouponCode = &req.Code
		cart.CouponType = &couponType
		discount := req.Discount
		cart.CouponDiscount = &discount

		out, err = s.persistTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	var out *CartDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		cart, err := loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		cart.CouponCode = nil
		cart.CouponType = nil
		cart.CouponDiscount = nil

		out, err = s.persistTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear empties the cart and drops its coupon. Called after a successful
// checkout; a missing cart is not an error.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart items")
		}

		cart.Items = nil
		cart.CouponCode = nil
		cart.CouponType = nil
		cart.CouponDiscount = nil
		_, err = s.persistTotals(ctx, repo, cart)
		return err
	})
}

// persistTotals runs the total engine over the in-memory cart state and
// writes the derived columns plus the coupon fields in one update.
func (s *service) persistTotals(ctx context.Context, repo *Repository, cart *models.Cart) (*CartDTO, error) {
	totals := ComputeTotals(cart.Items, couponOf(cart))

	cart.Total = totals.Total
	cart.DiscountTotal = totals.DiscountTotal
	cart.CouponSavings = totals.CouponSavings
	cart.GrandTotal = totals.GrandTotal

	updates := map[string]any{
		"total":           cart.Total,
		"discount_total":  cart.DiscountTotal,
		"coupon_savings":  cart.CouponSavings,
		"grand_total":     cart.GrandTotal,
		"coupon_code":     cart.CouponCode,
		"coupon_type":     cart.CouponType,
		"coupon_discount": cart.CouponDiscount,
	}
	if err := repo.UpdateFields(ctx, cart.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart totals")
	}
	return FromModel(cart), nil
}

func loadCart(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

func findItem(cart *models.Cart, productID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}

func snapshotPrices(item *models.CartItem, product *models.Product) {
	item.Name = product.Name
	item.UnitListPrice = product.ListPrice
	item.UnitPrice = product.EffectivePrice()
	item.LineTotal = LineTotal(item.UnitPrice, item.Quantity)
}

func couponOf(cart *models.Cart) *Coupon {
	if cart.CouponCode == nil || cart.CouponType == nil || cart.CouponDiscount == nil {
		return nil
	}
	return &Coupon{
		Code:     *cart.CouponCode,
		Type:     *cart.CouponType,
		Discount: *cart.CouponDiscount,
	}
}

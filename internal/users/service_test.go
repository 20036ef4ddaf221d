package users

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
)

func buildTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, name, email string, role enums.UserRole, createdAt time.Time) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		CreatedAt:    createdAt,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func TestListUsersFiltersAndPaginates(t *testing.T) {
	svc, conn := buildTestService(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	seedUser(t, conn, "Ada Admin", "ada@example.com", enums.UserRoleAdmin, base)
	seedUser(t, conn, "Ben Buyer", "ben@example.com", enums.UserRoleCustomer, base.Add(time.Minute))
	seedUser(t, conn, "Cara Buyer", "cara@example.com", enums.UserRoleCustomer, base.Add(2*time.Minute))

	all, err := svc.List(ctx, ListUsersQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all.Items) != 3 || all.Meta.Total != 3 {
		t.Fatalf("expected 3 users, got %d (meta %+v)", len(all.Items), all.Meta)
	}
	// newest registration first
	if all.Items[0].Email != "cara@example.com" {
		t.Fatalf("unexpected order, first = %s", all.Items[0].Email)
	}

	admins, err := svc.List(ctx, ListUsersQuery{Role: "admin"})
	if err != nil {
		t.Fatalf("role filter: %v", err)
	}
	if len(admins.Items) != 1 || admins.Items[0].Email != "ada@example.com" {
		t.Fatalf("unexpected role filter result %+v", admins.Items)
	}

	bySearch, err := svc.List(ctx, ListUsersQuery{Search: "ben"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(bySearch.Items) != 1 || bySearch.Items[0].Name != "Ben Buyer" {
		t.Fatalf("unexpected search result %+v", bySearch.Items)
	}

	page2, err := svc.List(ctx, ListUsersQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Items) != 1 || page2.Meta.TotalPages != 2 {
		t.Fatalf("unexpected page 2: %d items (meta %+v)", len(page2.Items), page2.Meta)
	}

	if _, err := svc.List(ctx, ListUsersQuery{Role: "superuser"}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	svc, conn := buildTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn, "Dana", "dana@example.com", enums.UserRoleCustomer, time.Now().UTC())

	got, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "dana@example.com" {
		t.Fatalf("unexpected user %+v", got)
	}

	if _, err := svc.Get(ctx, uuid.New()); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	svc, conn := buildTestService(t)
	ctx := context.Background()
	adminID := uuid.New()

	user := seedUser(t, conn, "Evan", "evan@example.com", enums.UserRoleCustomer, time.Now().UTC())

	if err := svc.Delete(ctx, adminID, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, user.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected user gone, got %v", err)
	}

	if err := svc.Delete(ctx, adminID, user.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}

func TestDeleteUserGuards(t *testing.T) {
	svc, conn := buildTestService(t)
	ctx := context.Background()

	admin := seedUser(t, conn, "Faye Admin", "faye@example.com", enums.UserRoleAdmin, time.Now().UTC())
	if err := svc.Delete(ctx, admin.ID, admin.ID); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error on self delete, got %v", err)
	}

	buyer := seedUser(t, conn, "Gil", "gil@example.com", enums.UserRoleCustomer, time.Now().UTC())
	order := &models.Order{
		UserID:        buyer.ID,
		Reference:     "ORD-USR10001",
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentStatus: enums.PaymentStatusPending,
		Status:        enums.OrderStatusPending,
		Subtotal:      decimal.RequireFromString("10.00"),
		GrandTotal:    decimal.RequireFromString("10.00"),
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if err := svc.Delete(ctx, admin.ID, buyer.ID); pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for user with orders, got %v", err)
	}
	if _, err := svc.Get(ctx, buyer.ID); err != nil {
		t.Fatalf("buyer should still exist: %v", err)
	}
}

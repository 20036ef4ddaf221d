package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/api/middleware"
	cartsvc "github.com/rmarin-dev/shopline-backend/internal/cart"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
)

type stubCartService struct {
	cart    *cartsvc.CartDTO
	err     error
	added   []cartsvc.AddItemRequest
	cleared int
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, req cartsvc.AddItemRequest) (*cartsvc.CartDTO, error) {
	s.added = append(s.added, req)
	return s.cart, s.err
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, req cartsvc.UpdateItemRequest) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, req cartsvc.ApplyCouponRequest) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared++
	return s.err
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withURLParam(req *http.Request, name, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestGetCartSuccess(t *testing.T) {
	cartID := uuid.New()
	svc := &stubCartService{cart: &cartsvc.CartDTO{
		ID:         cartID,
		GrandTotal: decimal.RequireFromString("42.50"),
	}}
	handler := GetCart(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/cart", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data cartsvc.CartDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != cartID {
		t.Fatalf("unexpected cart id %s", envelope.Data.ID)
	}
}

func TestGetCartRequiresUserContext(t *testing.T) {
	handler := GetCart(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAddCartItemSuccess(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{cart: &cartsvc.CartDTO{ID: uuid.New()}}
	handler := AddCartItem(svc, nil)

	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := authedRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.added) != 1 || svc.added[0].ProductID != productID || svc.added[0].Quantity != 2 {
		t.Fatalf("unexpected add calls %+v", svc.added)
	}
}

func TestAddCartItemRejectsZeroQuantity(t *testing.T) {
	svc := &stubCartService{}
	handler := AddCartItem(svc, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`
	req := authedRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.added) != 0 {
		t.Fatalf("service should not be called on invalid quantity")
	}
}

func TestUpdateCartItemInvalidProductID(t *testing.T) {
	handler := UpdateCartItem(&stubCartService{}, nil)

	req := authedRequest(http.MethodPut, "/api/v1/cart/items/nope", `{"quantity":1}`, uuid.New())
	req = withURLParam(req, "productID", "nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRemoveCartItemNotFound(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")}
	handler := RemoveCartItem(svc, nil)

	req := authedRequest(http.MethodDelete, "/api/v1/cart/items/"+uuid.NewString(), "", uuid.New())
	req = withURLParam(req, "productID", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestClearCartSuccess(t *testing.T) {
	svc := &stubCartService{}
	handler := ClearCart(svc, nil)

	req := authedRequest(http.MethodDelete, "/api/v1/cart", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.cleared != 1 {
		t.Fatalf("expected one clear call, got %d", svc.cleared)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmarin-dev/shopline-backend/api/middleware"
	ordersvc "github.com/rmarin-dev/shopline-backend/internal/orders"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
)

type stubOrderService struct {
	checkout  *ordersvc.CheckoutResponse
	order     *ordersvc.OrderDTO
	list      *ordersvc.ListResult
	tracking  *ordersvc.TrackingDTO
	err       error
	created   []ordersvc.CreateOrderRequest
	confirmed []ordersvc.ConfirmPaymentRequest
	deleted   []uuid.UUID
}

func (s *stubOrderService) Create(ctx context.Context, userID uuid.UUID, req ordersvc.CreateOrderRequest) (*ordersvc.CheckoutResponse, error) {
	s.created = append(s.created, req)
	return s.checkout, s.err
}

func (s *stubOrderService) ConfirmPayment(ctx context.Context, req ordersvc.ConfirmPaymentRequest) (*ordersvc.OrderDTO, error) {
	s.confirmed = append(s.confirmed, req)
	return s.order, s.err
}

func (s *stubOrderService) MarkPaymentSucceeded(ctx context.Context, intentID, receiptEmail string) error {
	return s.err
}

func (s *stubOrderService) MarkPaymentFailed(ctx context.Context, intentID string) error {
	return s.err
}

func (s *stubOrderService) GetByID(ctx context.Context, id uuid.UUID) (*ordersvc.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ordersvc.ListResult, error) {
	return s.list, s.err
}

func (s *stubOrderService) ListAll(ctx context.Context, params pagination.Params) (*ordersvc.ListResult, error) {
	return s.list, s.err
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req ordersvc.UpdateStatusRequest) (*ordersvc.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubOrderService) Track(ctx context.Context, reference string) (*ordersvc.TrackingDTO, error) {
	return s.tracking, s.err
}

func (s *stubOrderService) ExpirePendingPayments(ctx context.Context, now time.Time) (int, error) {
	return 0, s.err
}

func checkoutBody(productID uuid.UUID) string {
	return `{
		"items":[{"product_id":"` + productID.String() + `","quantity":1}],
		"shipping_address":{"line1":"12 Main St","city":"Lisbon","postal_code":"1000-001","country":"PT"},
		"payment_method":"cod"
	}`
}

func TestCreateOrderCreated(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{checkout: &ordersvc.CheckoutResponse{
		Order: &ordersvc.OrderDTO{ID: orderID, Reference: "ORD-20260831-AB12CD"},
	}}
	handler := CreateOrder(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/orders", checkoutBody(uuid.New()), uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(svc.created))
	}

	var envelope struct {
		Data ordersvc.CheckoutResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.ID != orderID {
		t.Fatalf("unexpected order id %s", envelope.Data.Order.ID)
	}
}

func confirmBody(orderID uuid.UUID) string {
	return `{"payment_intent_id":"pi_12345","order_id":"` + orderID.String() + `"}`
}

func TestConfirmOrderPaymentForwardsCallerIdentity(t *testing.T) {
	orderID := uuid.New()
	callerID := uuid.New()
	svc := &stubOrderService{order: &ordersvc.OrderDTO{
		ID:            orderID,
		UserID:        callerID,
		PaymentStatus: "paid",
	}}
	handler := ConfirmOrderPayment(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/orders/confirm-payment", confirmBody(orderID), callerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.confirmed) != 1 {
		t.Fatalf("expected one confirm call, got %d", len(svc.confirmed))
	}
	got := svc.confirmed[0]
	if got.UserID != callerID || got.Admin {
		t.Fatalf("caller identity not forwarded: user=%s admin=%v", got.UserID, got.Admin)
	}
	if got.OrderID != orderID || got.PaymentIntentID != "pi_12345" {
		t.Fatalf("unexpected confirm payload: %+v", got)
	}
}

func TestConfirmOrderPaymentForeignOrderForbidden(t *testing.T) {
	callerID := uuid.New()
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")}
	handler := ConfirmOrderPayment(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/orders/confirm-payment", confirmBody(uuid.New()), callerID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d (%s)", rec.Code, rec.Body.String())
	}
	// the service decides ownership from the caller's id, never the body
	if len(svc.confirmed) != 1 || svc.confirmed[0].UserID != callerID {
		t.Fatalf("caller identity not forwarded: %+v", svc.confirmed)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock")}
	handler := CreateOrder(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/orders", checkoutBody(uuid.New()), uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc := &stubOrderService{}
	handler := CreateOrder(svc, nil)

	body := `{"items":[],"shipping_address":{"line1":"12 Main St","city":"Lisbon","postal_code":"1000-001","country":"PT"},"payment_method":"cod"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.created) != 0 {
		t.Fatalf("service should not be called on empty items")
	}
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	svc := &stubOrderService{order: &ordersvc.OrderDTO{ID: uuid.New(), UserID: owner}}
	handler := GetOrder(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "", stranger)
	req = withURLParam(req, "id", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order, got %d", rec.Code)
	}
}

func TestGetOrderAdminSeesAll(t *testing.T) {
	owner := uuid.New()
	admin := uuid.New()
	svc := &stubOrderService{order: &ordersvc.OrderDTO{ID: uuid.New(), UserID: owner}}
	handler := GetOrder(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "", admin)
	req = req.WithContext(middleware.WithRole(req.Context(), enums.UserRoleAdmin.String()))
	req = withURLParam(req, "id", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestListMyOrdersRejectsBadPage(t *testing.T) {
	handler := ListMyOrders(&stubOrderService{}, nil)

	req := authedRequest(http.MethodGet, "/api/v1/orders?page=banana", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListMyOrdersSuccess(t *testing.T) {
	svc := &stubOrderService{list: &ordersvc.ListResult{
		Items: []ordersvc.OrderDTO{{ID: uuid.New()}},
		Meta:  pagination.Meta{Page: 1, Limit: 20, Total: 1, TotalPages: 1},
	}}
	handler := ListMyOrders(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/orders", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data ordersvc.ListResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Meta.Total != 1 {
		t.Fatalf("unexpected total %d", envelope.Data.Meta.Total)
	}
}

func TestTrackOrderPublic(t *testing.T) {
	svc := &stubOrderService{tracking: &ordersvc.TrackingDTO{
		Reference: "ORD-20260831-AB12CD",
		Status:    enums.OrderStatusShipped.String(),
	}}
	handler := TrackOrder(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/track/ORD-20260831-AB12CD", nil)
	req = withURLParam(req, "reference", "ORD-20260831-AB12CD")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data ordersvc.TrackingDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusShipped.String() {
		t.Fatalf("unexpected status %q", envelope.Data.Status)
	}
}

func TestDeleteOrderInvalidID(t *testing.T) {
	svc := &stubOrderService{}
	handler := DeleteOrder(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/orders/nope", nil)
	req = withURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.deleted) != 0 {
		t.Fatalf("service should not be called on invalid id")
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	productsvc "github.com/rmarin-dev/shopline-backend/internal/products"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
)

type stubProductService struct {
	product *productsvc.ProductDTO
	list    *productsvc.ListResult
	err     error
	queries []productsvc.ListQuery
	created []productsvc.CreateProductRequest
}

func (s *stubProductService) List(ctx context.Context, q productsvc.ListQuery) (*productsvc.ListResult, error) {
	s.queries = append(s.queries, q)
	return s.list, s.err
}

func (s *stubProductService) GetBySlug(ctx context.Context, slug string) (*productsvc.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubProductService) GetByID(ctx context.Context, id uuid.UUID) (*productsvc.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubProductService) Create(ctx context.Context, req productsvc.CreateProductRequest) (*productsvc.ProductDTO, error) {
	s.created = append(s.created, req)
	return s.product, s.err
}

func (s *stubProductService) Update(ctx context.Context, id uuid.UUID, req productsvc.UpdateProductRequest) (*productsvc.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubProductService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubProductService) AddImages(ctx context.Context, id uuid.UUID, urls []string) (*productsvc.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubProductService) RemoveImage(ctx context.Context, id uuid.UUID, url string) (*productsvc.ProductDTO, error) {
	return s.product, s.err
}

func TestListProductsAppliesFilters(t *testing.T) {
	svc := &stubProductService{list: &productsvc.ListResult{
		Items: []productsvc.ProductDTO{},
		Meta:  pagination.Meta{Page: 2, Limit: 10},
	}}
	handler := ListProducts(svc, nil)

	target := "/api/v1/products?page=2&limit=10&category=kitchen&search=lamp&min_price=5.50&featured=true"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.queries) != 1 {
		t.Fatalf("expected one list call, got %d", len(svc.queries))
	}

	q := svc.queries[0]
	if q.Page != 2 || q.Limit != 10 {
		t.Fatalf("unexpected paging %d/%d", q.Page, q.Limit)
	}
	if q.CategorySlug != "kitchen" || q.Search != "lamp" {
		t.Fatalf("unexpected filters %+v", q)
	}
	if q.MinPrice == nil || !q.MinPrice.Equal(decimal.RequireFromString("5.50")) {
		t.Fatalf("unexpected min price %v", q.MinPrice)
	}
	if q.Featured == nil || !*q.Featured {
		t.Fatalf("expected featured filter to be set")
	}
	if q.IncludeInactive {
		t.Fatalf("public listing must not include inactive products")
	}
}

func TestAdminListProductsIncludesInactive(t *testing.T) {
	svc := &stubProductService{list: &productsvc.ListResult{}}
	handler := AdminListProducts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.queries) != 1 || !svc.queries[0].IncludeInactive {
		t.Fatalf("admin listing should include inactive products")
	}
}

func TestListProductsRejectsBadPrice(t *testing.T) {
	svc := &stubProductService{}
	handler := ListProducts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?min_price=cheap", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.queries) != 0 {
		t.Fatalf("service should not be called on invalid filters")
	}
}

func TestGetProductBySlug(t *testing.T) {
	svc := &stubProductService{product: &productsvc.ProductDTO{ID: uuid.New(), Slug: "walnut-desk-lamp"}}
	handler := GetProduct(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/walnut-desk-lamp", nil)
	req = withURLParam(req, "slug", "walnut-desk-lamp")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data productsvc.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Slug != "walnut-desk-lamp" {
		t.Fatalf("unexpected slug %q", envelope.Data.Slug)
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := &stubProductService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	handler := GetProduct(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/ghost", nil)
	req = withURLParam(req, "slug", "ghost")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCreateProductRejectsMissingFields(t *testing.T) {
	svc := &stubProductService{}
	handler := CreateProduct(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(`{"name":"X"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.created) != 0 {
		t.Fatalf("service should not be called on invalid payload")
	}
}

func TestUpdateProductInvalidID(t *testing.T) {
	handler := UpdateProduct(&stubProductService{}, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/nope", strings.NewReader(`{}`))
	req = withURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

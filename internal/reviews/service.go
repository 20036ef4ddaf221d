package reviews

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
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
)

// Service manages product reviews and keeps the product rating
// aggregates in step with the review rows.
type Service interface {
	Create(ctx context.Context, productID, userID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error)
	Update(ctx context.Context, reviewID, actorID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, reviewID, actorID uuid.UUID, isAdmin bool) error
}

type service struct {
	db *db.Client
}

// NewService constructs a review service over the given database client.
func NewService(client *db.Client) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{db: client}, nil
}

// Create posts a review. Each user reviews a product at most once.
func (s *service) Create(ctx context.Context, productID, userID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var out *ReviewDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		productsRepo := products.NewRepository(tx)

		if _, err := productsRepo.FindByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		review := &models.Review{
			ProductID: productID,
			UserID:    userID,
			Rating:    req.Rating,
			Comment:   req.Comment,
		}
		if err := repo.Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store review")
		}
		if err := s.refreshAggregate(ctx, repo, productsRepo, productID); err != nil {
			return err
		}
		out = FromModel(review)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the rating and comment of the caller's own review.
func (s *service) Update(ctx context.Context, reviewID, actorID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var out *ReviewDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		productsRepo := products.NewRepository(tx)

		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		if review.UserID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
		}

		review.Rating = req.Rating
		review.Comment = req.Comment
		if err := repo.Save(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store review")
		}
		if err := s.refreshAggregate(ctx, repo, productsRepo, review.ProductID); err != nil {
			return err
		}
		out = FromModel(review)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByProduct returns a page of reviews newest first, together with
// the product's current rating aggregate.
func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResult, error) {
	product, err := products.NewRepository(s.db.DB()).FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	list, total, err := NewRepository(s.db.DB()).ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	return &ListResult{
		Items:   FromModels(list),
		Summary: RatingSummary{Average: product.RatingAvg, Count: product.RatingCount},
		Meta:    pagination.MetaFor(params, total),
	}, nil
}

// Delete removes a review. Owners delete their own; admins delete any.
func (s *service) Delete(ctx context.Context, reviewID, actorID uuid.UUID, isAdmin bool) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		productsRepo := products.NewRepository(tx)

		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		if review.UserID != actorID && !isAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
		}

		if err := repo.Delete(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
		}
		return s.refreshAggregate(ctx, repo, productsRepo, review.ProductID)
	})
}

// refreshAggregate recomputes and stores the product rating inside the
// caller's transaction so the aggregate never drifts from the rows.
func (s *service) refreshAggregate(ctx context.Context, repo *Repository, productsRepo *products.Repository, productID uuid.UUID) error {
	avg, count, err := repo.Aggregate(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate ratings")
	}
	rounded := decimal.NewFromFloat(avg).Round(2)
	if err := productsRepo.UpdateRating(ctx, productID, rounded, count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store rating aggregate")
	}
	return nil
}

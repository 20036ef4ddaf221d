package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
)

// ReviewDTO is the API view of one product review.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateReviewRequest is the payload for posting or replacing a review.
type CreateReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// RatingSummary is the aggregate stored back on the product row.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ListResult is one page of reviews plus the product's current aggregate.
type ListResult struct {
	Items   []ReviewDTO     `json:"items"`
	Summary RatingSummary   `json:"summary"`
	Meta    pagination.Meta `json:"meta"`
}

// FromModel maps a stored review onto its API view.
func FromModel(review *models.Review) *ReviewDTO {
	dto := &ReviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
	if review.User != nil {
		dto.UserName = review.User.Name
	}
	return dto
}

// FromModels maps a page of reviews.
func FromModels(reviews []models.Review) []ReviewDTO {
	out := make([]ReviewDTO, 0, len(reviews))
	for i := range reviews {
		out = append(out, *FromModel(&reviews[i]))
	}
	return out
}

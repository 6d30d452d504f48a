package catalog

import (
	"context"

	"github.com/s0up4200/cinerec/api"
)

// Requester is the subset of api.Client used by the services
type Requester interface {
	Request(ctx context.Context, method, path string, opts api.RequestOptions, out any) error
}

// MovieService reads the catalog
type MovieService interface {
	List(ctx context.Context, params ListParams) (*MoviePage, error)
	Get(ctx context.Context, id int64) (*Movie, error)
	Popular(ctx context.Context, limit int) ([]Movie, error)
}

// RatingService manages a user's ratings
type RatingService interface {
	Create(ctx context.Context, userID, movieID int64, value float64) (*Rating, error)
	ListByUser(ctx context.Context, userID int64, page, limit int) (*RatingPage, error)
	Update(ctx context.Context, ratingID int64, value float64) (*Rating, error)
	Delete(ctx context.Context, ratingID int64) error
}

// RecommendationService fetches model output
type RecommendationService interface {
	ForUser(ctx context.Context, userID int64, limit int) ([]Recommendation, error)
	Similar(ctx context.Context, movieID int64, limit int) ([]Recommendation, error)
}

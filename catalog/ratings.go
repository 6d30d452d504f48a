package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/s0up4200/cinerec/api"
	"github.com/s0up4200/cinerec/validation"
)

// Rating bounds accepted by the service
const (
	MinRating = 1
	MaxRating = 5
)

type createRatingRequest struct {
	UserID  int64   `json:"user_id" validate:"gt=0"`
	MovieID int64   `json:"movie_id" validate:"gt=0"`
	Value   float64 `json:"rating" validate:"gte=1,lte=5"`
}

type updateRatingRequest struct {
	Value float64 `json:"rating" validate:"gte=1,lte=5"`
}

// Ratings implements RatingService
type Ratings struct {
	api Requester
}

// NewRatings creates a rating service
func NewRatings(r Requester) *Ratings {
	return &Ratings{api: r}
}

// Create rates a movie. A second rating for the same (user, movie) is rejected
// by the service with a 400, see IsDuplicateRating.
func (s *Ratings) Create(ctx context.Context, userID, movieID int64, value float64) (*Rating, error) {
	req := createRatingRequest{UserID: userID, MovieID: movieID, Value: value}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var rating Rating
	if err := s.api.Request(ctx, http.MethodPost, "/ratings", api.RequestOptions{Body: req}, &rating); err != nil {
		return nil, err
	}
	return &rating, nil
}

// ListByUser fetches one page of a user's ratings, newest first
func (s *Ratings) ListByUser(ctx context.Context, userID int64, page, limit int) (*RatingPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result RatingPage
	path := fmt.Sprintf("/ratings/user/%d", userID)
	if err := s.api.Request(ctx, http.MethodGet, path, api.RequestOptions{Params: params}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update changes the value of an existing rating
func (s *Ratings) Update(ctx context.Context, ratingID int64, value float64) (*Rating, error) {
	req := updateRatingRequest{Value: value}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var rating Rating
	path := fmt.Sprintf("/ratings/%d", ratingID)
	if err := s.api.Request(ctx, http.MethodPut, path, api.RequestOptions{Body: req}, &rating); err != nil {
		return nil, err
	}
	return &rating, nil
}

// Delete removes a rating
func (s *Ratings) Delete(ctx context.Context, ratingID int64) error {
	return s.api.Request(ctx, http.MethodDelete, fmt.Sprintf("/ratings/%d", ratingID), api.RequestOptions{}, nil)
}

// IsDuplicateRating reports whether err is the service rejecting a second
// rating for the same movie.
func IsDuplicateRating(err error) bool {
	return api.IsValidation(err) && api.StatusOf(err) == http.StatusBadRequest
}

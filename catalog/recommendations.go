package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/s0up4200/cinerec/api"
)

// Recommendations implements RecommendationService
type Recommendations struct {
	api Requester
}

// NewRecommendations creates a recommendation service
func NewRecommendations(r Requester) *Recommendations {
	return &Recommendations{api: r}
}

// ForUser fetches personalized recommendations, best first
func (s *Recommendations) ForUser(ctx context.Context, userID int64, limit int) ([]Recommendation, error) {
	return s.fetch(ctx, fmt.Sprintf("/recommendations/%d", userID), limit)
}

// Similar fetches movies similar to movieID. A 404 means the movie has no
// similarity data yet; callers usually treat that as an empty result.
func (s *Recommendations) Similar(ctx context.Context, movieID int64, limit int) ([]Recommendation, error) {
	return s.fetch(ctx, fmt.Sprintf("/recommendations/similar/%d", movieID), limit)
}

func (s *Recommendations) fetch(ctx context.Context, path string, limit int) ([]Recommendation, error) {
	var recs []Recommendation
	if err := s.api.Request(ctx, http.MethodGet, path, api.RequestOptions{Params: limitParams(limit)}, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

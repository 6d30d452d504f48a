package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/s0up4200/cinerec/api"
	"github.com/s0up4200/cinerec/validation"
)

// DefaultPageSize matches the service's default listing size
const DefaultPageSize = 20

// ListParams selects a page of the catalog. Empty Search and Genre are no-op filters.
type ListParams struct {
	Page     int    `json:"page" validate:"gte=1"`
	PageSize int    `json:"limit" validate:"gte=1,lte=100"`
	Search   string `json:"search"`
	Genre    string `json:"genre"`
}

// Values encodes the params as the service's query string
func (p ListParams) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.PageSize))
	if s := strings.TrimSpace(p.Search); s != "" {
		v.Set("search", s)
	}
	if g := strings.TrimSpace(p.Genre); g != "" {
		v.Set("genre", g)
	}
	return v
}

// Movies implements MovieService
type Movies struct {
	api Requester
}

// NewMovies creates a movie service
func NewMovies(r Requester) *Movies {
	return &Movies{api: r}
}

// List fetches one page of the catalog, optionally filtered
func (s *Movies) List(ctx context.Context, params ListParams) (*MoviePage, error) {
	if params.Page == 0 {
		params.Page = 1
	}
	if params.PageSize == 0 {
		params.PageSize = DefaultPageSize
	}
	if err := validation.Struct(params); err != nil {
		return nil, err
	}

	var page MoviePage
	if err := s.api.Request(ctx, http.MethodGet, "/movies", api.RequestOptions{Params: params.Values()}, &page); err != nil {
		return nil, err
	}
	if page.Page == 0 {
		page.Page = params.Page
	}
	return &page, nil
}

// Get fetches a single movie
func (s *Movies) Get(ctx context.Context, id int64) (*Movie, error) {
	var movie Movie
	if err := s.api.Request(ctx, http.MethodGet, fmt.Sprintf("/movies/%d", id), api.RequestOptions{}, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// Popular fetches the most rated movies
func (s *Movies) Popular(ctx context.Context, limit int) ([]Movie, error) {
	var movies []Movie
	err := s.api.Request(ctx, http.MethodGet, "/movies/popular/list", api.RequestOptions{
		Params: limitParams(limit),
	}, &movies)
	if err != nil {
		return nil, err
	}
	return movies, nil
}

func limitParams(limit int) url.Values {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

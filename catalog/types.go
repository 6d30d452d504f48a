package catalog

import (
	"strings"
	"time"
)

// Movie is a catalog record. It is read-only from the client's perspective.
type Movie struct {
	ID            int64    `json:"movie_id"`
	Title         string   `json:"title"`
	Genres        []string `json:"genres"`
	ReleaseDate   string   `json:"release_date,omitempty"`
	ImdbScore     *float64 `json:"imdb_score,omitempty"`
	AverageRating *float64 `json:"avg_rating,omitempty"`
	RatingCount   int      `json:"rating_count,omitempty"`
	PosterURL     *string  `json:"poster_url,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Director      string   `json:"director,omitempty"`
	Actors        string   `json:"actors,omitempty"`
	Runtime       string   `json:"runtime,omitempty"`
	Type          string   `json:"type,omitempty"`
	Languages     string   `json:"languages,omitempty"`
	ViewRating    string   `json:"view_rating,omitempty"`
}

// Score returns the imdb score, falling back to the average user rating
func (m *Movie) Score() float64 {
	if m.ImdbScore != nil {
		return *m.ImdbScore
	}
	if m.AverageRating != nil {
		return *m.AverageRating
	}
	return 0
}

// Poster returns the best available artwork URL
func (m *Movie) Poster() string {
	if m.ImageURL != nil && *m.ImageURL != "" {
		return *m.ImageURL
	}
	if m.PosterURL != nil {
		return *m.PosterURL
	}
	return ""
}

// HasGenre reports whether the movie is tagged with genre (case-insensitive)
func (m *Movie) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// MoviePage is one page of the catalog listing
type MoviePage struct {
	Items []Movie `json:"movies"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

// TotalPages returns the number of pages for the page size used
func (p *MoviePage) TotalPages(pageSize int) int {
	if pageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + pageSize - 1) / pageSize
}

// Rating is a user's score for a movie
type Rating struct {
	ID        int64     `json:"rating_id"`
	UserID    int64     `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Value     float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// UserRating is a rating joined with its movie title
type UserRating struct {
	ID        int64     `json:"rating_id"`
	MovieID   int64     `json:"movie_id"`
	Title     string    `json:"title"`
	Value     float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingPage is one page of a user's ratings
type RatingPage struct {
	Items []UserRating `json:"ratings"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
}

// Recommendation is a movie with the model's predicted rating.
// Recommendations are never cached; every fetch asks the model again.
type Recommendation struct {
	Movie
	PredictedRating *float64 `json:"predicted_rating,omitempty"`
}

// Package apitest runs an in-process fake of the recommendation service for tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// Movie is the wire shape of a movie record
type Movie struct {
	ID            int64    `json:"movie_id"`
	Title         string   `json:"title"`
	Genres        []string `json:"genres"`
	ImdbScore     *float64 `json:"imdb_score,omitempty"`
	AverageRating float64  `json:"avg_rating"`
	RatingCount   int      `json:"rating_count"`
	PosterURL     *string  `json:"poster_url,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Type          string   `json:"type,omitempty"`
}

// Rating is the wire shape of a stored rating
type Rating struct {
	ID        int64     `json:"rating_id"`
	UserID    int64     `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Value     float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a registered account
type User struct {
	ID       int64
	Username string
	Email    string
	Password string
	Token    string
}

// Server is a fake recommendation service mounted under /api
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	users        map[string]*User
	movies       map[int64]Movie
	ratings      map[int64]*Rating
	similar      map[int64][]int64
	nextUserID   int64
	nextRatingID int64
	requests     []RecordedRequest
	latency      func(r *http.Request) time.Duration
}

// RecordedRequest captures what the server saw
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

// NewServer starts a fake service. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		users:        make(map[string]*User),
		movies:       make(map[int64]Movie),
		ratings:      make(map[int64]*Rating),
		similar:      make(map[int64][]int64),
		nextUserID:   1,
		nextRatingID: 1,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// APIURL returns the base URL including the /api prefix
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// AddUser registers an account with a fixed id and token
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.Username] = &cp
	if u.ID >= s.nextUserID {
		s.nextUserID = u.ID + 1
	}
}

// AddMovies seeds the catalog
func (s *Server) AddMovies(movies ...Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movies {
		s.movies[m.ID] = m
	}
}

// SetLatency delays each /movies listing by the duration fn returns for it
func (s *Server) SetLatency(fn func(r *http.Request) time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = fn
}

// SetSimilar sets the similar-movie list for a movie
func (s *Server) SetSimilar(movieID int64, similar ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.similar[movieID] = similar
}

// Requests returns a copy of every request seen so far
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request for path, if any
func (s *Server) LastRequest(path string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/movies", s.handleListMovies)
		r.Get("/movies/popular/list", s.handlePopular)
		r.Get("/movies/{id}", s.handleGetMovie)

		r.Get("/recommendations/similar/{movieID}", s.handleSimilar)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/ratings", s.handleCreateRating)
			r.Get("/ratings/user/{userID}", s.handleUserRatings)
			r.Put("/ratings/{id}", s.handleUpdateRating)
			r.Delete("/ratings/{id}", s.handleDeleteRating)
			r.Get("/recommendations/{userID}", s.handleRecommendations)
		})
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || s.userByToken(token) == nil {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userByToken(token string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Token == token {
			return u
		}
	}
	return nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	u := &User{
		ID:       s.nextUserID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Token:    "token-" + req.Username,
	}
	s.nextUserID++
	s.users[u.Username] = u
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"email":    u.Email,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": u.Token,
		"token_type":   "bearer",
		"user_id":      u.ID,
		"username":     u.Username,
	})
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()
	if latency != nil {
		select {
		case <-time.After(latency(r)):
		case <-r.Context().Done():
			return
		}
	}

	q := r.URL.Query()
	page := intParam(q.Get("page"), 1)
	limit := intParam(q.Get("limit"), 20)
	search := strings.ToLower(q.Get("search"))
	genre := q.Get("genre")

	s.mu.Lock()
	var matched []Movie
	for _, m := range s.movies {
		if search != "" && !strings.Contains(strings.ToLower(m.Title), search) {
			continue
		}
		if genre != "" && !hasGenre(m, genre) {
			continue
		}
		matched = append(matched, m)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))

	writeJSON(w, http.StatusOK, map[string]any{
		"movies": matched[start:end],
		"total":  len(matched),
		"page":   page,
		"limit":  limit,
	})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 10)

	s.mu.Lock()
	movies := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		movies = append(movies, m)
	}
	s.mu.Unlock()

	sort.Slice(movies, func(i, j int) bool { return movies[i].RatingCount > movies[j].RatingCount })
	writeJSON(w, http.StatusOK, movies[:min(limit, len(movies))])
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid movie id")
		return
	}

	s.mu.Lock()
	m, ok := s.movies[id]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Movie not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type ratingRequest struct {
	UserID  int64   `json:"user_id"`
	MovieID int64   `json:"movie_id"`
	Rating  float64 `json:"rating"`
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeDetail(w, http.StatusUnprocessableEntity, "Rating from 1 to 5")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[req.MovieID]; !ok {
		writeDetail(w, http.StatusNotFound, "Movie not found")
		return
	}
	for _, existing := range s.ratings {
		if existing.UserID == req.UserID && existing.MovieID == req.MovieID {
			writeDetail(w, http.StatusBadRequest, "Rating already exists. Use PUT to update.")
			return
		}
	}

	rating := &Rating{
		ID:        s.nextRatingID,
		UserID:    req.UserID,
		MovieID:   req.MovieID,
		Value:     req.Rating,
		Timestamp: time.Now().UTC(),
	}
	s.nextRatingID++
	s.ratings[rating.ID] = rating

	writeJSON(w, http.StatusCreated, rating)
}

func (s *Server) handleUserRatings(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	q := r.URL.Query()
	page := intParam(q.Get("page"), 1)
	limit := intParam(q.Get("limit"), 20)

	s.mu.Lock()
	var items []map[string]any
	for _, rt := range s.ratings {
		if rt.UserID != userID {
			continue
		}
		items = append(items, map[string]any{
			"rating_id": rt.ID,
			"movie_id":  rt.MovieID,
			"title":     s.movies[rt.MovieID].Title,
			"rating":    rt.Value,
			"timestamp": rt.Timestamp,
		})
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i]["rating_id"].(int64) > items[j]["rating_id"].(int64) })
	start := min((page-1)*limit, len(items))
	end := min(start+limit, len(items))

	writeJSON(w, http.StatusOK, map[string]any{
		"ratings": items[start:end],
		"total":   len(items),
		"page":    page,
	})
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req struct {
		Rating float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.ratings[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Rating not found")
		return
	}
	rt.Value = req.Rating
	rt.Timestamp = time.Now().UTC()
	writeJSON(w, http.StatusOK, rt)
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ratings[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Rating not found")
		return
	}
	delete(s.ratings, id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Rating deleted successfully"})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 10)

	s.mu.Lock()
	movies := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		movies = append(movies, m)
	}
	s.mu.Unlock()

	sort.Slice(movies, func(i, j int) bool { return movies[i].ID < movies[j].ID })
	movies = movies[:min(limit, len(movies))]

	out := make([]map[string]any, 0, len(movies))
	for i, m := range movies {
		out = append(out, map[string]any{
			"movie_id":         m.ID,
			"title":            m.Title,
			"genres":           m.Genres,
			"avg_rating":       m.AverageRating,
			"predicted_rating": 5.0 - float64(i)*0.1,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	movieID, _ := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	limit := intParam(r.URL.Query().Get("limit"), 10)

	s.mu.Lock()
	ids, ok := s.similar[movieID]
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		m := s.movies[id]
		out = append(out, map[string]any{
			"movie_id":         m.ID,
			"title":            m.Title,
			"genres":           m.Genres,
			"predicted_rating": 0.9,
		})
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Movie not found in model")
		return
	}
	writeJSON(w, http.StatusOK, out[:min(limit, len(out))])
}

func hasGenre(m Movie, genre string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

func intParam(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

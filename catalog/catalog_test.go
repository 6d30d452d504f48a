package catalog

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/cinerec/api"
	"github.com/s0up4200/cinerec/apitest"
	"github.com/s0up4200/cinerec/session"
	"github.com/s0up4200/cinerec/validation"
)

func ptr[T any](v T) *T { return &v }

func newTestServer(t *testing.T) (*apitest.Server, *api.Client) {
	t.Helper()

	server := apitest.NewServer()
	t.Cleanup(server.Close)
	server.AddUser(apitest.User{ID: 7, Username: "alice", Password: "pw", Token: "t1"})
	server.AddMovies(
		apitest.Movie{ID: 101, Title: "Heat", Genres: []string{"Crime", "Thriller"}, ImdbScore: ptr(8.3), RatingCount: 40},
		apitest.Movie{ID: 102, Title: "Alien", Genres: []string{"Horror", "Sci-Fi"}, ImdbScore: ptr(8.5), RatingCount: 90},
		apitest.Movie{ID: 103, Title: "Aliens", Genres: []string{"Action", "Sci-Fi"}, RatingCount: 70, AverageRating: 4.1},
	)

	client, err := api.NewClient(server.APIURL(), zerolog.Nop(), api.WithTokenSource(api.TokenFunc(func() string { return "t1" })))
	require.NoError(t, err)
	return server, client
}

func TestMovies_List(t *testing.T) {
	server, client := newTestServer(t)
	movies := NewMovies(client)
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		page, err := movies.List(ctx, ListParams{})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Len(t, page.Items, 3)

		req, ok := server.LastRequest("/api/movies")
		require.True(t, ok)
		assert.Equal(t, "limit=20&page=1", req.Query)
	})

	t.Run("blank search is no filter", func(t *testing.T) {
		_, err := movies.List(ctx, ListParams{Page: 1, PageSize: 20})
		require.NoError(t, err)
		plain, _ := server.LastRequest("/api/movies")

		_, err = movies.List(ctx, ListParams{Page: 1, PageSize: 20, Search: "  "})
		require.NoError(t, err)
		blank, _ := server.LastRequest("/api/movies")

		assert.Equal(t, plain.Query, blank.Query)
	})

	t.Run("search", func(t *testing.T) {
		page, err := movies.List(ctx, ListParams{Search: "alien"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, "Alien", page.Items[0].Title)
	})

	t.Run("genre", func(t *testing.T) {
		page, err := movies.List(ctx, ListParams{Genre: "crime"})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, int64(101), page.Items[0].ID)
	})

	t.Run("paging", func(t *testing.T) {
		page, err := movies.List(ctx, ListParams{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, 2, page.TotalPages(2))
	})

	t.Run("invalid page size", func(t *testing.T) {
		_, err := movies.List(ctx, ListParams{Page: 1, PageSize: 500})
		require.Error(t, err)
		assert.True(t, validation.IsValidationError(err))
	})
}

func TestMovies_Get(t *testing.T) {
	_, client := newTestServer(t)
	movies := NewMovies(client)

	movie, err := movies.Get(context.Background(), 102)
	require.NoError(t, err)
	assert.Equal(t, "Alien", movie.Title)
	assert.InDelta(t, 8.5, movie.Score(), 0.001)
	assert.True(t, movie.HasGenre("sci-fi"))

	_, err = movies.Get(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "Movie not found", err.(*api.Error).Message)
}

func TestMovies_Popular(t *testing.T) {
	_, client := newTestServer(t)

	popular, err := NewMovies(client).Popular(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, int64(102), popular[0].ID)
	assert.Equal(t, int64(103), popular[1].ID)
}

func TestRatings_Lifecycle(t *testing.T) {
	_, client := newTestServer(t)
	ratings := NewRatings(client)
	ctx := context.Background()

	created, err := ratings.Create(ctx, 7, 101, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(101), created.MovieID)
	assert.InDelta(t, 4.0, created.Value, 0.001)

	page, err := ratings.ListByUser(ctx, 7, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Heat", page.Items[0].Title)

	updated, err := ratings.Update(ctx, created.ID, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, updated.Value, 0.001)

	require.NoError(t, ratings.Delete(ctx, created.ID))

	page, err = ratings.ListByUser(ctx, 7, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	err = ratings.Delete(ctx, created.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestRatings_Duplicate(t *testing.T) {
	_, client := newTestServer(t)
	ratings := NewRatings(client)
	ctx := context.Background()

	_, err := ratings.Create(ctx, 7, 101, 5)
	require.NoError(t, err)

	_, err = ratings.Create(ctx, 7, 101, 5)
	require.Error(t, err)
	assert.True(t, IsDuplicateRating(err))
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.False(t, api.IsNetwork(err))
}

func TestRatings_OutOfRange(t *testing.T) {
	server, client := newTestServer(t)
	ratings := NewRatings(client)

	for _, v := range []float64{0, 5.5, -1} {
		_, err := ratings.Create(context.Background(), 7, 101, v)
		require.Error(t, err)
		assert.True(t, validation.IsValidationError(err), "value %v", v)
		assert.False(t, IsDuplicateRating(err))
	}

	_, ok := server.LastRequest("/api/ratings")
	assert.False(t, ok, "invalid ratings must not reach the service")
}

func TestIsDuplicateRating(t *testing.T) {
	assert.True(t, IsDuplicateRating(&api.Error{Kind: api.KindValidation, StatusCode: 400}))
	assert.False(t, IsDuplicateRating(&api.Error{Kind: api.KindValidation, StatusCode: 422}))
	assert.False(t, IsDuplicateRating(&api.Error{Kind: api.KindNetwork}))
	assert.False(t, IsDuplicateRating(nil))
}

func TestRecommendations(t *testing.T) {
	server, client := newTestServer(t)
	recs := NewRecommendations(client)
	ctx := context.Background()

	got, err := recs.ForUser(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].PredictedRating)
	assert.InDelta(t, 5.0, *got[0].PredictedRating, 0.001)
	assert.Greater(t, *got[0].PredictedRating, *got[1].PredictedRating)

	server.SetSimilar(102, 103)
	similar, err := recs.Similar(ctx, 102, 10)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "Aliens", similar[0].Title)

	_, err = recs.Similar(ctx, 101, 10)
	assert.True(t, api.IsNotFound(err))
}

func TestRecommendations_RequireAuth(t *testing.T) {
	server, _ := newTestServer(t)
	anon, err := api.NewClient(server.APIURL(), zerolog.Nop())
	require.NoError(t, err)

	_, err = NewRecommendations(anon).ForUser(context.Background(), 7, 10)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

// Login, fetch recommendations with the session's token, then hit the
// duplicate-rating path the same way the CLI does.
func TestSessionScenario(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	client, err := api.NewClient(server.APIURL(), zerolog.Nop())
	require.NoError(t, err)
	store := session.NewStore(client, session.NewMemoryStorage(), zerolog.Nop())
	client.SetTokenSource(store)

	sess, err := store.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "t1", sess.Token)
	assert.Equal(t, int64(7), sess.User.ID)
	assert.Equal(t, "alice", sess.User.Username)

	_, err = NewRecommendations(client).ForUser(ctx, sess.User.ID, 10)
	require.NoError(t, err)
	req, ok := server.LastRequest("/api/recommendations/7")
	require.True(t, ok)
	assert.Equal(t, "Bearer t1", req.Authorization)

	ratings := NewRatings(client)
	_, err = ratings.Create(ctx, sess.User.ID, 101, 5)
	require.NoError(t, err)
	_, err = ratings.Create(ctx, sess.User.ID, 101, 5)
	assert.True(t, IsDuplicateRating(err))
}

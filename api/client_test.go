package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		baseURL string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			baseURL: "http://localhost:8000/api/",
		},
		{
			name:    "missing URL",
			baseURL: "",
			wantErr: true,
			errMsg:  "URL is required",
		},
		{
			name:    "bad scheme",
			baseURL: "ftp://localhost/api",
			wantErr: true,
			errMsg:  "scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.baseURL, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:8000/api", client.BaseURL())
		})
	}
}

func TestClientOptions(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("with timeout", func(t *testing.T) {
		client, err := NewClient("http://localhost", logger, WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	})

	t.Run("no timeout by default", func(t *testing.T) {
		client, err := NewClient("http://localhost", logger)
		require.NoError(t, err)
		assert.Zero(t, client.httpClient.Timeout)
	})

	t.Run("with custom http client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		client, err := NewClient("http://localhost", logger, WithHTTPClient(custom))
		require.NoError(t, err)
		assert.Equal(t, custom, client.httpClient)
	})

	t.Run("with rate limit", func(t *testing.T) {
		client, err := NewClient("http://localhost", logger, WithRateLimit(5, 0))
		require.NoError(t, err)
		require.NotNil(t, client.limiter)
		assert.Equal(t, 1, client.limiter.Burst())

		client, err = NewClient("http://localhost", logger, WithRateLimit(0, 3))
		require.NoError(t, err)
		assert.Nil(t, client.limiter)
	})
}

func TestRequest_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, client.Get(ctx, "/ping", nil, nil))
	assert.Empty(t, gotAuth, "no token source means anonymous request")
	assert.NotEmpty(t, gotRequestID)

	client.SetTokenSource(TokenFunc(func() string { return "t1" }))
	require.NoError(t, client.Get(ctx, "/ping", nil, nil))
	assert.Equal(t, "Bearer t1", gotAuth)

	client.SetTokenSource(TokenFunc(func() string { return "" }))
	require.NoError(t, client.Get(ctx, "/ping", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestRequest_EncodesParamsAndBody(t *testing.T) {
	type payload struct {
		UserID  int64   `json:"user_id"`
		MovieID int64   `json:"movie_id"`
		Rating  float64 `json:"rating"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ratings", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, payload{UserID: 7, MovieID: 101, Rating: 5}, p)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"rating_id": 3}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/api", zerolog.Nop())
	require.NoError(t, err)

	var out struct {
		ID int64 `json:"rating_id"`
	}
	err = client.Request(context.Background(), http.MethodPost, "/ratings", RequestOptions{
		Params: url.Values{"page": {"2"}},
		Body:   payload{UserID: 7, MovieID: 101, Rating: 5},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.ID)
}

func TestRequest_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"duplicate rating", 400, `{"detail":"Rating already exists. Use PUT to update."}`, KindValidation, "Rating already exists. Use PUT to update."},
		{"unprocessable", 422, `{"detail":[{"msg":"field required"},{"msg":"value too large"}]}`, KindValidation, "field required; value too large"},
		{"unauthorized", 401, `{"detail":"Incorrect username or password"}`, KindAuth, "Incorrect username or password"},
		{"forbidden", 403, `{"message":"nope"}`, KindAuth, "nope"},
		{"not found", 404, `{"detail":"Movie not found"}`, KindNotFound, "Movie not found"},
		{"server error", 500, `{"error":"boom"}`, KindServer, "boom"},
		{"plain text body", 502, `bad gateway`, KindServer, "bad gateway"},
		{"empty body", 503, ``, KindServer, "503 Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL, zerolog.Nop())
			require.NoError(t, err)

			err = client.Get(context.Background(), "/x", nil, nil)
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestRequest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client, err := NewClient(serverURL, zerolog.Nop())
	require.NoError(t, err)

	err = client.Get(context.Background(), "/movies", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsValidation(err))
	assert.Zero(t, StatusOf(err))
}

func TestRequest_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"movies": "not a list"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)

	var out struct {
		Movies []int `json:"movies"`
	}
	err = client.Get(context.Background(), "/movies", nil, &out)
	require.Error(t, err)
	assert.Equal(t, KindDecode, KindOf(err))
}

type badBody struct{}

func (badBody) MarshalJSON() ([]byte, error) {
	return nil, errors.New("cannot encode")
}

func TestRequest_LocalFailuresAreNotAPIErrors(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)

	err = client.Post(context.Background(), "/ratings", badBody{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode request body")
	assert.Equal(t, KindUnknown, KindOf(err))

	err = client.Request(context.Background(), "BAD METHOD", "/movies", RequestOptions{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")
	assert.Equal(t, KindUnknown, KindOf(err))

	assert.Zero(t, hits)
}

func TestRequest_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = client.Get(ctx, "/slow", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindNetwork, "network"},
		{KindAuth, "auth"},
		{KindValidation, "validation"},
		{KindNotFound, "not_found"},
		{KindServer, "server"},
		{KindDecode, "decode"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestError_Helpers(t *testing.T) {
	err := &Error{Kind: KindNotFound, Method: "GET", Path: "/movies/9", StatusCode: 404, Message: "Movie not found"}
	assert.Equal(t, "api GET /movies/9: status 404: Movie not found", err.Error())
	assert.True(t, err.IsNotFound())
	assert.False(t, err.IsUnauthorized())

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

// Package api provides the HTTP client for the movie recommendation service.
//
// The client is deliberately thin: it builds the request, attaches the bearer
// token supplied by a TokenSource, performs exactly one round trip and decodes
// the JSON response. Resource-specific calls live in package catalog and the
// session lifecycle in package session.
//
// # Usage
//
//	client, err := api.NewClient("http://localhost:8000/api", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	client.SetTokenSource(store)
//
//	var movie catalog.Movie
//	err = client.Get(ctx, "/movies/42", nil, &movie)
//
// # Error Handling
//
// Every failure is an *Error classified by Kind:
//
//   - KindNetwork: no response was received (includes context cancellation)
//   - KindAuth: 401 or 403
//   - KindValidation: any other 4xx, e.g. a duplicate rating (400)
//   - KindNotFound: 404
//   - KindServer: 5xx
//   - KindDecode: 2xx with a body that does not match the target type
//
// Use KindOf, IsValidation, IsNotFound and friends to branch on the kind
// without type assertions.
package api

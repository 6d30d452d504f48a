// Package catalog wraps the service's movie, rating and recommendation
// endpoints with one typed call each.
//
// Services are stateless. Errors from the API client are returned untouched so
// that views can decide how to present them; the only helper here is
// IsDuplicateRating, which names the service's 400 for a repeated rating.
package catalog

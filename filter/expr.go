// Package filter narrows movie lists with user-supplied expr expressions,
// for example `ImdbScore > 7 && hasGenre("Drama")`.
package filter

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/cinerec/catalog"
)

// DefaultCacheSize is the number of compiled programs kept by CompileFilter
const DefaultCacheSize = 64

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache
}

var defaultCompiler = NewExprCompiler(WithCache(DefaultCacheSize))

// CompileFilter compiles expression with the shared caching compiler
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Compile against a sample environment so unknown fields are reported
	// at compile time rather than silently evaluating to nil.
	env := createRuntimeEnvironment(catalog.Movie{})
	maps.Copy(env, c.helperFuncs)
	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}
	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against a movie. Runtime errors count as no match.
func (f *exprFilter) Evaluate(movie catalog.Movie) bool {
	env := createRuntimeEnvironment(movie)
	maps.Copy(env, f.helpers)
	result, err := expr.Run(f.program, env)
	if err != nil {
		return false
	}
	return result.(bool)
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 8)
	addHelperFunctions(funcs)
	return funcs
}

func addHelperFunctions(env map[string]any) {
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
}

// createRuntimeEnvironment exposes the movie's fields and movie-bound helpers
func createRuntimeEnvironment(movie catalog.Movie) map[string]any {
	env := make(map[string]any, 32)
	addHelperFunctions(env)

	env["Movie"] = movie
	env["hasGenre"] = createHasGenreFunc(movie.Genres)
	env["directedBy"] = func(name string) bool {
		return strings.Contains(strings.ToLower(movie.Director), strings.ToLower(name))
	}
	env["starring"] = func(name string) bool {
		return strings.Contains(strings.ToLower(movie.Actors), strings.ToLower(name))
	}

	env["ID"] = movie.ID
	env["Title"] = movie.Title
	env["Genres"] = movie.Genres
	env["Year"] = releaseYear(movie.ReleaseDate)
	env["ImdbScore"] = deref(movie.ImdbScore)
	env["AverageRating"] = deref(movie.AverageRating)
	env["RatingCount"] = movie.RatingCount
	env["Score"] = movie.Score()
	env["Director"] = movie.Director
	env["Actors"] = movie.Actors
	env["Type"] = movie.Type
	env["Languages"] = movie.Languages
	env["Runtime"] = movie.Runtime
	env["ViewRating"] = movie.ViewRating
	env["HasPoster"] = movie.Poster() != ""

	return env
}

func createHasGenreFunc(genres []string) func(string) bool {
	lower := make([]string, len(genres))
	for i, g := range genres {
		lower[i] = strings.ToLower(g)
	}
	return func(genre string) bool {
		return slices.Contains(lower, strings.ToLower(genre))
	}
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, _ := strconv.Atoi(date[:4])
	return year
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

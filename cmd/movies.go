package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/cinerec/catalog"
	"github.com/s0up4200/cinerec/filter"
	"github.com/s0up4200/cinerec/view"
)

const similarLimit = 10

var (
	page        int
	pageSize    int
	searchQuery string
	genre       string
	filterExpr  string
	showDetails bool
)

var moviesCmd = &cobra.Command{
	Use:   "movies",
	Short: "List the movie catalog",
	Long: `List one page of the catalog, optionally searched by title or restricted to a genre.

--filter narrows the page client-side with an expression over the movie,
or names a filter from the config file, for example:

  cinerec movies --genre Drama --filter 'ImdbScore > 8 and Year < 1990'`,
	Args: cobra.NoArgs,
	RunE: runMovies,
}

var movieCmd = &cobra.Command{
	Use:   "movie <id>",
	Short: "Show one movie and similar titles",
	Args:  cobra.ExactArgs(1),
	RunE:  runMovie,
}

func init() {
	rootCmd.AddCommand(moviesCmd, movieCmd)

	moviesCmd.Flags().IntVar(&page, "page", 1, "page number")
	moviesCmd.Flags().IntVar(&pageSize, "limit", 0, "movies per page (default from search.page_size)")
	moviesCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "search titles")
	moviesCmd.Flags().StringVarP(&genre, "genre", "g", "", "only movies in this genre")
	moviesCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression or named filter")
	moviesCmd.Flags().BoolVar(&showDetails, "details", false, "show director, rating count and poster")
}

func runMovies(cmd *cobra.Command, args []string) error {
	size := pageSize
	if size == 0 {
		size = cfg.Search.PageSize
	}

	var compiled filter.CompiledFilter
	if filterExpr != "" {
		expression := cfg.ResolveFilter(filterExpr)
		var err error
		compiled, err = filter.CompileFilter(expression)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		logger.Debug().Str("filter", expression).Msg("Filtering movies")
	}

	result, err := movies.List(cmd.Context(), catalog.ListParams{
		Page:     page,
		PageSize: size,
		Search:   searchQuery,
		Genre:    genre,
	})
	if err != nil {
		return fmt.Errorf("failed to list movies: %w", err)
	}

	items := result.Items
	if compiled != nil {
		items, err = filter.NewConcurrentEvaluator().Evaluate(cmd.Context(), compiled, items)
		if err != nil {
			return err
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMovieList(items, result.Page, result.TotalPages(size), result.Total, view.FormatOptions{
		ShowDetails: showDetails,
		ShowGenres:  true,
	}))
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func runMovie(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "movie id")
	if err != nil {
		return err
	}

	movie, similar, err := loadMovieDetail(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMovie(movie))
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSimilar(similar))
	return nil
}

// loadMovieDetail fetches the movie and its similar titles concurrently.
// Similar titles are optional: failures there are logged and dropped.
func loadMovieDetail(ctx context.Context, id int64) (*catalog.Movie, []catalog.Recommendation, error) {
	var (
		movie   *catalog.Movie
		similar []catalog.Recommendation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movie, err = movies.Get(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to get movie %d: %w", id, err)
		}
		return nil
	})
	g.Go(func() error {
		s, err := recs.Similar(gctx, id, similarLimit)
		if err != nil {
			logger.Debug().Err(err).Int64("movie_id", id).Msg("Similar movies unavailable")
			return nil
		}
		similar = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return movie, similar, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s '%s': must be a positive integer", what, s)
	}
	return id, nil
}

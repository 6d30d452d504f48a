package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/cinerec/catalog"
	"github.com/s0up4200/cinerec/guard"
	"github.com/s0up4200/cinerec/view"
)

const (
	homeShelfSample   = 50
	homePopularLimit  = 10
	homeRecommendSize = 10
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show recommendations, genre shelves and popular movies",
	Args:  cobra.NoArgs,
	RunE:  runHome,
}

func init() {
	rootCmd.AddCommand(homeCmd)
}

func runHome(cmd *cobra.Command, args []string) error {
	sess, err := guard.Wait(cmd.Context(), storeWatcher{})
	if err != nil && !errors.Is(err, guard.ErrLoginRequired) {
		return err
	}

	var (
		sample  *catalog.MoviePage
		popular []catalog.Movie
		picks   []catalog.Recommendation
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		sample, err = movies.List(ctx, catalog.ListParams{Page: 1, PageSize: homeShelfSample})
		return err
	})
	g.Go(func() error {
		var err error
		popular, err = movies.Popular(ctx, homePopularLimit)
		return err
	})
	if sess != nil {
		g.Go(func() error {
			var err error
			picks, err = recs.ForUser(ctx, sess.User.ID, homeRecommendSize)
			if err != nil {
				// the rest of the page is still useful
				logger.Warn().Err(err).Msg("Failed to load recommendations")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load home: %w", err)
	}

	out := cmd.OutOrStdout()
	if sess != nil {
		fmt.Fprintf(out, "\nWelcome back, %s\n", sess.User.Username)
		if len(picks) > 0 {
			fmt.Fprintln(out, "\nPicked for you:")
			for _, p := range picks {
				fmt.Fprintf(out, "  %s [%d]\n", p.Title, p.ID)
			}
		}
	} else {
		fmt.Fprintln(out, "\nSign in with 'cinerec login' to get personalized picks.")
	}

	shelves := view.GroupByGenre(sample.Items, view.DefaultPerGenre, view.DefaultMinPerGenre, view.DefaultMaxGenres)
	fmt.Fprint(out, formatter.FormatShelves(shelves))

	if len(popular) > 0 {
		fmt.Fprintln(out, "\nPopular now:")
		for i, m := range popular {
			fmt.Fprintf(out, "  %2d. %s [%d]\n", i+1, m.Title, m.ID)
		}
	}
	fmt.Fprintln(out)
	return nil
}

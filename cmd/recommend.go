package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/cinerec/catalog"
	"github.com/s0up4200/cinerec/guard"
	"github.com/s0up4200/cinerec/session"
)

var recommendLimit int

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show recommendations for you",
	Long: `Show movies recommended for the signed-in user.

Recommendations become personalized after you have rated a few movies;
until then the service suggests popular titles.`,
	Args: cobra.NoArgs,
	RunE: guard.Protect(storeWatcher{}, runRecommend),
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 20, "number of recommendations")
}

func runRecommend(cmd *cobra.Command, args []string, sess *session.Session) error {
	var (
		ratingCount int
		list        []catalog.Recommendation
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		page, err := ratings.ListByUser(ctx, sess.User.ID, 1, 1)
		if err != nil {
			return fmt.Errorf("failed to count ratings: %w", err)
		}
		ratingCount = page.Total
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = recs.ForUser(ctx, sess.User.ID, recommendLimit)
		if err != nil {
			return fmt.Errorf("failed to get recommendations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRecommendations(list, ratingCount))
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/s0up4200/cinerec/catalog"
	"github.com/s0up4200/cinerec/guard"
	"github.com/s0up4200/cinerec/session"
	"github.com/s0up4200/cinerec/view"
)

var ratingsPage int

var rateCmd = &cobra.Command{
	Use:   "rate <movie-id> <1-5>",
	Short: "Rate a movie",
	Args:  cobra.ExactArgs(2),
	RunE:  guard.Protect(storeWatcher{}, runRate),
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Manage your ratings",
}

var ratingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your ratings, newest first",
	Args:  cobra.NoArgs,
	RunE:  guard.Protect(storeWatcher{}, runRatingsList),
}

var ratingsUpdateCmd = &cobra.Command{
	Use:   "update <rating-id> <1-5>",
	Short: "Change an existing rating",
	Args:  cobra.ExactArgs(2),
	RunE:  guard.Protect(storeWatcher{}, runRatingsUpdate),
}

var ratingsDeleteCmd = &cobra.Command{
	Use:   "delete <rating-id>",
	Short: "Delete a rating",
	Args:  cobra.ExactArgs(1),
	RunE:  guard.Protect(storeWatcher{}, runRatingsDelete),
}

func init() {
	rootCmd.AddCommand(rateCmd, ratingsCmd)
	ratingsCmd.AddCommand(ratingsListCmd, ratingsUpdateCmd, ratingsDeleteCmd)

	ratingsListCmd.Flags().IntVar(&ratingsPage, "page", 1, "page number")
}

func runRate(cmd *cobra.Command, args []string, sess *session.Session) error {
	movieID, err := parseID(args[0], "movie id")
	if err != nil {
		return err
	}
	value, err := parseRating(args[1])
	if err != nil {
		return err
	}

	_, err = ratings.Create(cmd.Context(), sess.User.ID, movieID, value)
	notice := view.RatingNotice(err)
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatNotice(notice))

	if notice.Level == view.LevelError {
		return err
	}
	return nil
}

func runRatingsList(cmd *cobra.Command, args []string, sess *session.Session) error {
	result, err := ratings.ListByUser(cmd.Context(), sess.User.ID, ratingsPage, catalog.DefaultPageSize)
	if err != nil {
		return fmt.Errorf("failed to list ratings: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRatings(result))
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func runRatingsUpdate(cmd *cobra.Command, args []string, sess *session.Session) error {
	ratingID, err := parseID(args[0], "rating id")
	if err != nil {
		return err
	}
	value, err := parseRating(args[1])
	if err != nil {
		return err
	}

	updated, err := ratings.Update(cmd.Context(), ratingID, value)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Rating %d is now %.0f\n", updated.ID, updated.Value)
	return nil
}

func runRatingsDelete(cmd *cobra.Command, args []string, sess *session.Session) error {
	ratingID, err := parseID(args[0], "rating id")
	if err != nil {
		return err
	}

	if err := ratings.Delete(cmd.Context(), ratingID); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Rating %d deleted\n", ratingID)
	return nil
}

func parseRating(s string) (float64, error) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < catalog.MinRating || value > catalog.MaxRating {
		return 0, fmt.Errorf("invalid rating '%s': must be between %d and %d", s, catalog.MinRating, catalog.MaxRating)
	}
	return value, nil
}

// Package view renders catalog data for the terminal.
package view

import (
	"fmt"
	"strings"

	"github.com/s0up4200/cinerec/catalog"
)

// FormatOptions controls how much detail list output shows
type FormatOptions struct {
	ShowDetails bool
	ShowGenres  bool
}

// ConsoleFormatter provides console output formatting for movies
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatMovieList formats one page of movies for console display
func (f *ConsoleFormatter) FormatMovieList(movies []catalog.Movie, page, totalPages, total int, options FormatOptions) string {
	if len(movies) == 0 {
		return "No movies found"
	}

	var sb strings.Builder

	// Header
	sb.WriteString("\nMovie")
	if total != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d)", total)
	if totalPages > 1 {
		fmt.Fprintf(&sb, " - page %d of %d", page, totalPages)
	}
	sb.WriteString(":\n\n")

	for i, movie := range movies {
		isLast := i == len(movies)-1
		f.formatMovie(&sb, movie, isLast, options)

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatMovie formats the detail view of a single movie
func (f *ConsoleFormatter) FormatMovie(movie *catalog.Movie) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s", movie.Title)
	if year := releaseYear(movie.ReleaseDate); year != "" {
		fmt.Fprintf(&sb, " (%s)", year)
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", max(len(movie.Title), 10)))
	sb.WriteString("\n")

	if len(movie.Genres) > 0 {
		fmt.Fprintf(&sb, "Genres: %s\n", strings.Join(movie.Genres, ", "))
	}

	var facts []string
	if movie.ImdbScore != nil {
		facts = append(facts, fmt.Sprintf("IMDb %.1f", *movie.ImdbScore))
	}
	if movie.AverageRating != nil && movie.RatingCount > 0 {
		facts = append(facts, fmt.Sprintf("Users %.1f/5 (%d ratings)", *movie.AverageRating, movie.RatingCount))
	}
	if movie.Runtime != "" {
		facts = append(facts, movie.Runtime)
	}
	if movie.ViewRating != "" {
		facts = append(facts, movie.ViewRating)
	}
	if len(facts) > 0 {
		fmt.Fprintf(&sb, "%s\n", strings.Join(facts, " | "))
	}

	if movie.Director != "" {
		fmt.Fprintf(&sb, "Director: %s\n", movie.Director)
	}
	if movie.Actors != "" {
		fmt.Fprintf(&sb, "Cast: %s\n", movie.Actors)
	}
	if movie.Languages != "" {
		fmt.Fprintf(&sb, "Languages: %s\n", movie.Languages)
	}
	if movie.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", movie.Summary)
	}

	return sb.String()
}

// FormatSimilar formats the "more like this" row. An empty list renders nothing.
func (f *ConsoleFormatter) FormatSimilar(recs []catalog.Recommendation) string {
	if len(recs) == 0 {
		return ""
	}

	titles := make([]string, 0, len(recs))
	for _, r := range recs {
		titles = append(titles, fmt.Sprintf("%s [%d]", r.Title, r.ID))
	}
	return fmt.Sprintf("\nMore like this:\n  %s\n", strings.Join(titles, "  ·  "))
}

// FormatRecommendations formats a recommendation list. Predicted ratings are
// only shown once the user has enough ratings for them to mean something.
func (f *ConsoleFormatter) FormatRecommendations(recs []catalog.Recommendation, ratingCount int) string {
	var sb strings.Builder

	personalized := Personalized(ratingCount)
	if personalized {
		sb.WriteString("\nRecommended for you\n")
		sb.WriteString("Personalized suggestions based on your ratings\n\n")
	} else {
		sb.WriteString("\nPopular movies\n")
		fmt.Fprintf(&sb, "Rate %d more movies to unlock personalized recommendations! Showing popular movies for now.\n\n",
			PersonalizationThreshold-ratingCount)
	}

	if len(recs) == 0 {
		sb.WriteString("No movies found\n")
		return sb.String()
	}

	for i, rec := range recs {
		isLast := i == len(recs)-1
		prefix := "├"
		if isLast {
			prefix = "╰"
		}

		fmt.Fprintf(&sb, "%s── %s [%d]", prefix, rec.Title, rec.ID)
		if personalized && rec.PredictedRating != nil {
			fmt.Fprintf(&sb, " - predicted %.1f", *rec.PredictedRating)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatRatings formats a page of the user's ratings
func (f *ConsoleFormatter) FormatRatings(page *catalog.RatingPage) string {
	if page == nil || len(page.Items) == 0 {
		return "You have not rated any movies yet"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nYour ratings (%d):\n\n", page.Total)

	for i, r := range page.Items {
		isLast := i == len(page.Items)-1
		prefix := "├"
		indent := "│   "
		if isLast {
			prefix = "╰"
			indent = "    "
		}

		fmt.Fprintf(&sb, "%s── %s %s\n", prefix, r.Title, stars(r.Value))
		fmt.Fprintf(&sb, "%sRating ID: %d | Movie ID: %d", indent, r.ID, r.MovieID)
		if !r.Timestamp.IsZero() {
			fmt.Fprintf(&sb, " | %s", r.Timestamp.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatShelves formats the home screen genre rows
func (f *ConsoleFormatter) FormatShelves(shelves []Shelf) string {
	if len(shelves) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, shelf := range shelves {
		fmt.Fprintf(&sb, "\n%s (%d)\n", shelf.Genre, len(shelf.Movies))
		titles := make([]string, 0, len(shelf.Movies))
		for _, m := range shelf.Movies {
			titles = append(titles, m.Title)
		}
		fmt.Fprintf(&sb, "  %s\n", strings.Join(titles, "  ·  "))
	}
	return sb.String()
}

// FormatNotice formats a notice with a level marker
func (f *ConsoleFormatter) FormatNotice(n Notice) string {
	var marker string
	switch n.Level {
	case LevelSuccess:
		marker = "✓"
	case LevelInfo:
		marker = "i"
	default:
		marker = "✗"
	}
	return fmt.Sprintf("%s %s", marker, n.Text)
}

// formatMovie formats a single movie entry
func (f *ConsoleFormatter) formatMovie(sb *strings.Builder, movie catalog.Movie, isLast bool, options FormatOptions) {
	prefix := "├"
	if isLast {
		prefix = "╰"
	}

	fmt.Fprintf(sb, "%s── %s [%d]", prefix, movie.Title, movie.ID)
	if score := movie.Score(); score > 0 {
		fmt.Fprintf(sb, " ★ %.1f", score)
	}
	sb.WriteString("\n")

	indent := "│   "
	if isLast {
		indent = "    "
	}

	if options.ShowGenres && len(movie.Genres) > 0 {
		genres := movie.Genres
		if len(genres) > 3 {
			genres = genres[:3]
		}
		fmt.Fprintf(sb, "%sGenres: %s\n", indent, strings.Join(genres, ", "))
	}

	if options.ShowDetails {
		if movie.Director != "" {
			fmt.Fprintf(sb, "%sDirector: %s\n", indent, movie.Director)
		}
		if movie.RatingCount > 0 {
			fmt.Fprintf(sb, "%sRatings: %d\n", indent, movie.RatingCount)
		}
		if poster := movie.Poster(); poster != "" {
			fmt.Fprintf(sb, "%sPoster: %s\n", indent, poster)
		}
	}
}

func stars(value float64) string {
	n := int(value + 0.5)
	n = min(max(n, 0), catalog.MaxRating)
	return strings.Repeat("★", n) + strings.Repeat("☆", catalog.MaxRating-n)
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

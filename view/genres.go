package view

import (
	"sort"

	"github.com/s0up4200/cinerec/catalog"
)

// Shelf limits used by the home screen
const (
	DefaultPerGenre    = 10
	DefaultMinPerGenre = 3
	DefaultMaxGenres   = 10
)

// Shelf is one genre row on the home screen
type Shelf struct {
	Genre  string
	Movies []catalog.Movie
}

// GroupByGenre buckets movies into genre shelves. Each shelf keeps the first
// perGenre movies seen for that genre; shelves with fewer than minPerGenre
// movies are dropped, the fullest maxGenres shelves are kept, and each
// shelf is sorted by score, best first.
func GroupByGenre(movies []catalog.Movie, perGenre, minPerGenre, maxGenres int) []Shelf {
	buckets := make(map[string][]catalog.Movie)
	for _, m := range movies {
		for _, g := range m.Genres {
			if len(buckets[g]) < perGenre {
				buckets[g] = append(buckets[g], m)
			}
		}
	}

	shelves := make([]Shelf, 0, len(buckets))
	for genre, ms := range buckets {
		if len(ms) < minPerGenre {
			continue
		}
		shelves = append(shelves, Shelf{Genre: genre, Movies: ms})
	}

	sort.Slice(shelves, func(i, j int) bool {
		if len(shelves[i].Movies) != len(shelves[j].Movies) {
			return len(shelves[i].Movies) > len(shelves[j].Movies)
		}
		return shelves[i].Genre < shelves[j].Genre
	})
	if maxGenres > 0 && len(shelves) > maxGenres {
		shelves = shelves[:maxGenres]
	}

	for _, s := range shelves {
		sort.SliceStable(s.Movies, func(i, j int) bool {
			return s.Movies[i].Score() > s.Movies[j].Score()
		})
	}
	return shelves
}

// PersonalizationThreshold is the rating count that unlocks personalized recommendations
const PersonalizationThreshold = 5

// Personalized reports whether a user with ratingCount ratings gets
// personalized recommendations.
func Personalized(ratingCount int) bool {
	return ratingCount >= PersonalizationThreshold
}

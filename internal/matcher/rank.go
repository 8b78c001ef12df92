package matcher

import (
	"sort"

	"github.com/yourusername/cratedig-go/internal/domain"
)

// SortTracks orders tracks by descending score. Equal scores keep the
// download service's order.
func SortTracks(tracks []domain.ScoredTrack) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Score > tracks[j].Score
	})
}

// SortAlbums orders albums by descending score, stable on ties
func SortAlbums(albums []domain.ScoredAlbum) {
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].Score > albums[j].Score
	})
}

package matcher

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"

	"github.com/yourusername/cratedig-go/internal/domain"
)

// Wanted describes what the user is looking for
type Wanted struct {
	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`
	Album  string `json:"album,omitempty"`
}

// Relevance scores how closely a track matches what is wanted, in [0,1].
// Artists are compared only when both sides have one.
func Relevance(t domain.ScoredTrack, want Wanted) float64 {
	if want.Title == "" {
		return 1
	}
	if want.Artist != "" && t.Artist != "" {
		return similarity(want.Artist+" "+want.Title, t.Artist+" "+t.Title)
	}
	return similarity(want.Title, t.Title)
}

// AlbumRelevance scores how closely an album matches the wanted album title
func AlbumRelevance(a domain.ScoredAlbum, want Wanted) float64 {
	if want.Album == "" {
		return 1
	}
	if want.Artist != "" && a.Artist != "" {
		return similarity(want.Artist+" "+want.Album, a.Artist+" "+a.Title)
	}
	return similarity(want.Album, a.Title)
}

// FilterTracks keeps tracks whose relevance reaches threshold, in order
func FilterTracks(tracks []domain.ScoredTrack, want Wanted, threshold float64) []domain.ScoredTrack {
	if threshold <= 0 {
		return tracks
	}
	kept := tracks[:0:0]
	for _, t := range tracks {
		if Relevance(t, want) >= threshold {
			kept = append(kept, t)
		}
	}
	return kept
}

// FilterAlbums keeps albums whose relevance reaches threshold, in order
func FilterAlbums(albums []domain.ScoredAlbum, want Wanted, threshold float64) []domain.ScoredAlbum {
	if threshold <= 0 {
		return albums
	}
	kept := albums[:0:0]
	for _, a := range albums {
		if AlbumRelevance(a, want) >= threshold {
			kept = append(kept, a)
		}
	}
	return kept
}

func similarity(a, b string) float64 {
	return strutil.Similarity(normalize(a), normalize(b), metrics.NewJaroWinkler())
}

func normalize(s string) string {
	// Casers carry state, so each call gets its own.
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

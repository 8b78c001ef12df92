package matcher

import "github.com/yourusername/cratedig-go/internal/domain"

// GroupAlbums bundles tracks sharing a peer and a directory. Albums come back in
// the order their first track was seen.
func GroupAlbums(tracks []domain.ScoredTrack) []domain.ScoredAlbum {
	type key struct{ username, dir string }

	index := make(map[key]int)
	var albums []domain.ScoredAlbum
	for _, t := range tracks {
		k := key{t.Username, domain.RemoteDir(t.Filename)}
		i, ok := index[k]
		if !ok {
			i = len(albums)
			index[k] = i
			albums = append(albums, domain.ScoredAlbum{
				Username:          t.Username,
				Path:              k.dir,
				Title:             albumTitle(t, k.dir),
				HasFreeUploadSlot: t.HasFreeUploadSlot,
				UploadSpeed:       t.UploadSpeed,
				QueueLength:       t.QueueLength,
			})
		}
		a := &albums[i]
		a.Tracks = append(a.Tracks, t)
		a.TrackCount = len(a.Tracks)
		a.TotalSize += t.Size
		if a.Artist == "" {
			a.Artist = t.Artist
		}
	}

	for i := range albums {
		albums[i].DominantQuality = DominantQuality(albums[i].Tracks)
		albums[i].Score = ScoreAlbum(albums[i])
	}
	return albums
}

// DominantQuality returns the most frequent format; ties go to the first seen
func DominantQuality(tracks []domain.ScoredTrack) string {
	counts := make(map[string]int)
	var order []string
	for _, t := range tracks {
		if counts[t.Quality] == 0 {
			order = append(order, t.Quality)
		}
		counts[t.Quality]++
	}

	best, bestCount := "unknown", 0
	for _, q := range order {
		if counts[q] > bestCount {
			best, bestCount = q, counts[q]
		}
	}
	return best
}

// ScoreAlbum scores an album from its dominant format, size band and peer state
func ScoreAlbum(a domain.ScoredAlbum) float64 {
	score := FormatWeight(a.DominantQuality)
	score += trackCountBonus(a.TrackCount)
	score += peerAdjustment(a.HasFreeUploadSlot, a.UploadSpeed, a.QueueLength)
	return min(score, 1.0)
}

func trackCountBonus(n int) float64 {
	switch {
	case n >= 8 && n <= 20:
		return 0.1
	case n > 20:
		return 0.05
	default:
		return 0
	}
}

func albumTitle(t domain.ScoredTrack, dir string) string {
	if t.Album != "" {
		return t.Album
	}
	parts := domain.SplitRemotePath(dir)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

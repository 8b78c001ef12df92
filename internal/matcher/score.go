package matcher

import "github.com/yourusername/cratedig-go/internal/domain"

const unknownFormatWeight = 0.3

var formatWeights = map[string]float64{
	"flac": 1.0,
	"mp3":  0.8,
	"ogg":  0.7,
	"aac":  0.6,
	"wma":  0.5,
}

var audioFormats = map[string]bool{
	"flac": true, "mp3": true, "ogg": true, "aac": true, "wma": true,
	"m4a": true, "opus": true, "wav": true, "alac": true, "ape": true, "aiff": true,
}

// FormatWeight returns the base score of a file format
func FormatWeight(quality string) float64 {
	if w, ok := formatWeights[quality]; ok {
		return w
	}
	return unknownFormatWeight
}

// IsAudio reports whether a quality string names an audio format
func IsAudio(quality string) bool {
	return audioFormats[quality]
}

// ScoreListing computes a listing's score. Only the upper bound is clamped:
// penalties may push the result below the format's base weight.
func ScoreListing(l domain.RawListing) float64 {
	score := FormatWeight(Quality(l.Filename))

	if l.BitRate != nil {
		switch br := *l.BitRate; {
		case br >= 320:
			score += 0.2
		case br >= 256:
			score += 0.1
		case br < 128:
			score -= 0.2
		}
	}

	score += peerAdjustment(l.HasFreeUploadSlot, l.UploadSpeed, l.QueueLength)
	return min(score, 1.0)
}

// ScoreTrack enriches a listing with parsed metadata and its score
func ScoreTrack(l domain.RawListing) domain.ScoredTrack {
	p := ParseFilename(l.Filename)
	return domain.ScoredTrack{
		RawListing:  l,
		Artist:      p.Artist,
		Title:       p.Title,
		Album:       p.Album,
		TrackNumber: p.TrackNumber,
		Quality:     Quality(l.Filename),
		Score:       ScoreListing(l),
	}
}

// ScoreAll scores every listing, keeping input order
func ScoreAll(listings []domain.RawListing) []domain.ScoredTrack {
	tracks := make([]domain.ScoredTrack, 0, len(listings))
	for _, l := range listings {
		tracks = append(tracks, ScoreTrack(l))
	}
	return tracks
}

func peerAdjustment(freeSlot bool, uploadSpeed, queueLength int) float64 {
	var adj float64
	if freeSlot {
		adj += 0.1
	}
	if uploadSpeed > 100 {
		adj += 0.05
	}
	if queueLength > 10 {
		adj -= 0.1
	}
	return adj
}

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		artist string
		title  string
		track  *int
	}{
		{"track artist title", "01 - Artist - Title.flac", "Artist", "Title", intPtr(1)},
		{"artist title", "Artist - Title.mp3", "Artist", "Title", nil},
		{"no pattern", "weird_name.mp3", "", "weird_name", nil},
		{"dotted track number", "07. Title Only.ogg", "", "Title Only", intPtr(7)},
		{"en dash", "Artist – Title.flac", "Artist", "Title", nil},
		{"windows path", `Music\Some Album\03 - Band - Song.flac`, "Band", "Song", intPtr(3)},
		{"unix path", "Music/Some Album/12 - Band - Song Name.mp3", "Band", "Song Name", intPtr(12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseFilename(tt.path)
			assert.Equal(t, tt.artist, p.Artist)
			assert.Equal(t, tt.title, p.Title)
			if tt.track == nil {
				assert.Nil(t, p.TrackNumber)
			} else {
				require.NotNil(t, p.TrackNumber)
				assert.Equal(t, *tt.track, *p.TrackNumber)
			}
		})
	}
}

func TestInferAlbum(t *testing.T) {
	assert.Equal(t, "Discovery", InferAlbum(`Music\Discovery\01 - Track.flac`))
	assert.Equal(t, "Discovery", InferAlbum("Music/Discovery/01 - Track.flac"))
	assert.Empty(t, InferAlbum("01 - Track.flac"))
	assert.Empty(t, InferAlbum("Music/CD1/01 - Track.flac"), "short names are not albums")
	assert.Empty(t, InferAlbum("@@share/01 - Track.flac"), "at-prefixed folders are not albums")
}

func TestQuality(t *testing.T) {
	assert.Equal(t, "flac", Quality("a/b/Song.FLAC"))
	assert.Equal(t, "mp3", Quality(`a\b\Song.mp3`))
	assert.Equal(t, "unknown", Quality("a/b/Song"))
	assert.Equal(t, "unknown", Quality(".hidden"))
}

func intPtr(n int) *int { return &n }

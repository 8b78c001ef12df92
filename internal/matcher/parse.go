package matcher

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/cratedig-go/internal/domain"
)

// Parsed holds metadata inferred from a file path
type Parsed struct {
	Artist      string
	Title       string
	Album       string
	TrackNumber *int
}

// Tried in order; the first match wins.
var filenamePatterns = []*regexp.Regexp{
	// "01 - Artist - Title" or "01. Artist - Title"
	regexp.MustCompile(`^(?P<track>\d+)\s*[-.]\s*(?P<artist>.+?)\s*[-–]\s*(?P<title>.+)$`),
	// "Artist - Title"
	regexp.MustCompile(`^(?P<artist>.+?)\s*[-–]\s*(?P<title>.+)$`),
	// "01 - Title" or "01. Title"
	regexp.MustCompile(`^(?P<track>\d+)\s*[-.]\s*(?P<title>.+)$`),
}

// ParseFilename infers track number, artist, title and album from a remote path.
// When no pattern matches the title falls back to the file stem.
func ParseFilename(remote string) Parsed {
	stem := fileStem(remote)

	var p Parsed
	for _, re := range filenamePatterns {
		m := re.FindStringSubmatch(stem)
		if m == nil {
			continue
		}
		for i, name := range re.SubexpNames() {
			switch name {
			case "track":
				if n, err := strconv.Atoi(m[i]); err == nil {
					p.TrackNumber = &n
				}
			case "artist":
				p.Artist = strings.TrimSpace(m[i])
			case "title":
				p.Title = strings.TrimSpace(m[i])
			}
		}
		break
	}

	if p.Title == "" {
		p.Title = stem
	}
	p.Album = InferAlbum(remote)
	return p
}

// InferAlbum returns the parent directory name when it looks like a real album
// folder: longer than 3 characters and not an @-prefixed share root.
func InferAlbum(remote string) string {
	parts := domain.SplitRemotePath(remote)
	if len(parts) < 2 {
		return ""
	}
	candidate := parts[len(parts)-2]
	if strings.HasPrefix(candidate, "@") || len(candidate) <= 3 {
		return ""
	}
	return candidate
}

// Quality returns the lower-cased file extension, or "unknown"
func Quality(remote string) string {
	ext := extension(domain.RemoteBase(remote))
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(ext)
}

func fileStem(remote string) string {
	base := domain.RemoteBase(remote)
	if ext := extension(base); ext != "" {
		return strings.TrimSuffix(base, "."+ext)
	}
	return base
}

// extension returns the text after the last dot, ignoring dot-files
func extension(base string) string {
	ext := path.Ext(base)
	if ext == "" || ext == base {
		return ""
	}
	return ext[1:]
}

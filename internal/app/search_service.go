package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/cratedig-go/internal/domain"
	"github.com/yourusername/cratedig-go/internal/matcher"
)

const maxParallelSearches = 4

// SearchQuery describes what to look for on the peer network. Query overrides
// the text built from the other fields.
type SearchQuery struct {
	Query  string   `json:"query,omitempty"`
	Artist string   `json:"artist,omitempty"`
	Title  string   `json:"title,omitempty"`
	Album  string   `json:"album,omitempty"`
	Tracks []string `json:"tracks,omitempty"` // album track titles, searched individually
}

func (q SearchQuery) wanted() matcher.Wanted {
	return matcher.Wanted{Artist: q.Artist, Title: q.Title, Album: q.Album}
}

// SearchService turns peer search results into ranked candidates
type SearchService struct {
	service domain.DownloadService
	config  domain.MatchingConfig
	logger  *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(service domain.DownloadService, config domain.MatchingConfig, logger *zap.Logger) *SearchService {
	return &SearchService{service: service, config: config, logger: logger}
}

// SearchTracks returns scored tracks, best first
func (s *SearchService) SearchTracks(ctx context.Context, q SearchQuery) ([]domain.ScoredTrack, error) {
	text := q.Query
	if text == "" {
		text = joinTerms(q.Artist, q.Title)
	}
	if text == "" {
		return nil, fmt.Errorf("empty search query")
	}

	listings, err := s.service.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	tracks := s.score(listings)
	if s.config.MinSimilarity > 0 && q.Title != "" {
		tracks = matcher.FilterTracks(tracks, q.wanted(), s.config.MinSimilarity)
	}
	matcher.SortTracks(tracks)

	s.logger.Debug("Track search finished",
		zap.String("query", text),
		zap.Int("listings", len(listings)),
		zap.Int("tracks", len(tracks)))
	return tracks, nil
}

// SearchAlbums returns scored albums, best first. The album query and one query
// per wanted track run concurrently and their listings are merged.
func (s *SearchService) SearchAlbums(ctx context.Context, q SearchQuery) ([]domain.ScoredAlbum, error) {
	queries := s.albumQueries(q)
	if len(queries) == 0 {
		return nil, fmt.Errorf("empty search query")
	}

	results := make([][]domain.RawListing, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSearches)
	for i, text := range queries {
		i, text := i, text
		g.Go(func() error {
			found, err := s.service.Search(gctx, text)
			if err != nil {
				return fmt.Errorf("search %q failed: %w", text, err)
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in query order so ties stay deterministic.
	seen := make(map[fileKey]struct{})
	var listings []domain.RawListing
	for _, found := range results {
		for _, l := range found {
			k := fileKey{l.Username, l.Filename}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			listings = append(listings, l)
		}
	}

	albums := matcher.GroupAlbums(s.score(listings))
	if s.config.MinSimilarity > 0 && q.Album != "" {
		albums = matcher.FilterAlbums(albums, q.wanted(), s.config.MinSimilarity)
	}
	matcher.SortAlbums(albums)

	s.logger.Debug("Album search finished",
		zap.Strings("queries", queries),
		zap.Int("listings", len(listings)),
		zap.Int("albums", len(albums)))
	return albums, nil
}

func (s *SearchService) albumQueries(q SearchQuery) []string {
	var queries []string
	if q.Query != "" {
		queries = append(queries, q.Query)
	} else if text := joinTerms(q.Artist, q.Album); text != "" {
		queries = append(queries, text)
	}
	for _, title := range q.Tracks {
		if text := joinTerms(q.Artist, title); text != "" {
			queries = append(queries, text)
		}
	}
	return queries
}

// score keeps audio files when configured and scores them in order
func (s *SearchService) score(listings []domain.RawListing) []domain.ScoredTrack {
	tracks := make([]domain.ScoredTrack, 0, len(listings))
	for _, l := range listings {
		if s.config.AudioOnly && !matcher.IsAudio(matcher.Quality(l.Filename)) {
			continue
		}
		tracks = append(tracks, matcher.ScoreTrack(l))
	}
	return tracks
}

func joinTerms(terms ...string) string {
	var parts []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

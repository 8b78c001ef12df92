package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cratedig-go/internal/app"
	"github.com/yourusername/cratedig-go/internal/domain"
	"go.uber.org/zap"
)

// Searcher runs ranked peer searches
type Searcher interface {
	SearchTracks(ctx context.Context, q app.SearchQuery) ([]domain.ScoredTrack, error)
	SearchAlbums(ctx context.Context, q app.SearchQuery) ([]domain.ScoredAlbum, error)
}

// SearchHandler handles search requests
type SearchHandler struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher Searcher, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// SearchTracks handles POST /api/v1/search/tracks
func (h *SearchHandler) SearchTracks(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}

	tracks, err := h.searcher.SearchTracks(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Track search failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if tracks == nil {
		tracks = []domain.ScoredTrack{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(tracks), "tracks": tracks})
}

// SearchAlbums handles POST /api/v1/search/albums
func (h *SearchHandler) SearchAlbums(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}

	albums, err := h.searcher.SearchAlbums(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Album search failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if albums == nil {
		albums = []domain.ScoredAlbum{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(albums), "albums": albums})
}

func bindQuery(c *gin.Context) (app.SearchQuery, bool) {
	var q app.SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, false
	}
	if strings.TrimSpace(q.Query+q.Artist+q.Title+q.Album) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query, artist, title or album is required"})
		return q, false
	}
	return q, true
}

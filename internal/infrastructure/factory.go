package infrastructure

import (
	"fmt"
	"sort"

	"github.com/yourusername/cratedig-go/internal/domain"
	"go.uber.org/zap"
)

// BackendFactory builds a download service from configuration
type BackendFactory func(config *domain.Config, logger *zap.Logger) (domain.DownloadService, error)

// ImporterFactory builds an importer from configuration
type ImporterFactory func(config *domain.Config, logger *zap.Logger) (domain.Importer, error)

var backends = map[domain.BackendID]BackendFactory{
	domain.BackendSlskd: func(config *domain.Config, logger *zap.Logger) (domain.DownloadService, error) {
		if config.Slskd.URL == "" {
			return nil, fmt.Errorf("%w: slskd url is required", domain.ErrInvalidConfig)
		}
		return NewSlskdClient(config.Slskd, logger.Named("slskd")), nil
	},
}

var importers = map[domain.ImporterID]ImporterFactory{
	domain.ImporterBeets: func(config *domain.Config, logger *zap.Logger) (domain.Importer, error) {
		if config.Import.Binary == "" {
			return nil, fmt.Errorf("%w: beets binary is required", domain.ErrInvalidConfig)
		}
		return NewBeetsImporter(config.Import, config.Logging.LogsDir, logger.Named("beets")), nil
	},
}

// NewDownloadService resolves the configured backend
func NewDownloadService(config *domain.Config, logger *zap.Logger) (domain.DownloadService, error) {
	factory, ok := backends[config.Slskd.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", domain.ErrUnknownBackend, config.Slskd.Backend, BackendIDs())
	}
	return factory(config, logger)
}

// NewImporter resolves the configured importer
func NewImporter(config *domain.Config, logger *zap.Logger) (domain.Importer, error) {
	factory, ok := importers[config.Import.Importer]
	if !ok {
		return nil, fmt.Errorf("%w: importer %q (available: %v)", domain.ErrUnknownBackend, config.Import.Importer, ImporterIDs())
	}
	return factory(config, logger)
}

// BackendIDs lists the registered download service backends
func BackendIDs() []domain.BackendID {
	ids := make([]domain.BackendID, 0, len(backends))
	for id := range backends {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ImporterIDs lists the registered importers
func ImporterIDs() []domain.ImporterID {
	ids := make([]domain.ImporterID, 0, len(importers))
	for id := range importers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taskline/taskline/pkg/persistence"
	"github.com/taskline/taskline/pkg/persistence/file"
	"github.com/taskline/taskline/pkg/persistence/postgresql"
	"github.com/taskline/taskline/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss"}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Store, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewStore(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewStore(databaseURL)
	default:
		return file.NewStore(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}

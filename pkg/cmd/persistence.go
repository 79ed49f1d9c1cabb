// Package cmd provides shared construction helpers for the binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/persistence/file"
	"github.com/cumplia/sgci/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres:// URLs get the SQL store; anything else is treated as a file
// path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

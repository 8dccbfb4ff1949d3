// Package storage selects the review store named by the configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage/memory"
	"flex_reviews/internal/storage/mongo"
	"flex_reviews/internal/storage/mysql"
)

// Open returns the configured store and a func releasing its resources.
func Open(ctx context.Context, cfg shared.Config) (domain.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Info().Msg("using in-memory store with demo data")
		return memory.NewSeeded(), func() {}, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		return mysql.New(db), func() { _ = db.Close() }, nil

	case "mongo":
		repo, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

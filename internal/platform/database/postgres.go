package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/config"
	_ "github.com/lib/pq"
)

const retryDelay = 2 * time.Second

// NewPostgresDB opens the pool and pings it until the database answers or
// cfg.ConnectRetries attempts are spent. Compose starts the API alongside
// Postgres, so the first few pings usually fail.
func NewPostgresDB(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 1; i <= cfg.ConnectRetries; i++ {
		log.Info("connecting to database",
			slog.Int("attempt", i),
			slog.Int("max_attempts", cfg.ConnectRetries),
			slog.String("host", cfg.Host),
		)

		db, err = sql.Open("postgres", cfg.DSN())
		if err == nil {
			err = db.PingContext(ctx)
		}

		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

			log.Info("database connected", slog.String("database", cfg.Database))
			return db, nil
		}

		if db != nil {
			_ = db.Close()
		}

		log.Warn("database not ready yet", slog.String("error", err.Error()), slog.Duration("retry_in", retryDelay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("connect database after %d attempts: %w", cfg.ConnectRetries, err)
}

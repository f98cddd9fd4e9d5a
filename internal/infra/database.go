package infra

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsDir is the embedded directory goose reads from.
const MigrationsDir = "migrations"

// NewDatabase opens the Postgres connection pool. The schema is owned by the
// SQL migrations in migrations/; AutoMigrate is never run against Postgres.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// RunMigrations runs a goose command ("up", "down", "status", "version", ...)
// against the embedded migration files.
func RunMigrations(ctx context.Context, db *gorm.DB, command string, args ...string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, sqlDB, MigrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MaybeAutoMigrate applies pending migrations on startup when enabled.
func MaybeAutoMigrate(ctx context.Context, db *gorm.DB, enabled bool) error {
	if !enabled {
		return nil
	}
	log.Info().Str("dir", MigrationsDir).Msg("aplicando migrações (autorun)")
	if err := RunMigrations(ctx, db, "up"); err != nil {
		return err
	}
	log.Info().Msg("migrações aplicadas")
	return nil
}

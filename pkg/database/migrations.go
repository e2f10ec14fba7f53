package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"netsimplex/pkg/config"
	"netsimplex/pkg/logger"
)

// Migrator применяет goose миграции из встроенной файловой системы
type Migrator struct {
	pool       *pgxpool.Pool
	migrations fs.FS
	dir        string
}

// NewMigrator создаёт новый мигратор; dir - каталог внутри migrations
func NewMigrator(pool *pgxpool.Pool, migrations fs.FS, dir string) *Migrator {
	return &Migrator{
		pool:       pool,
		migrations: migrations,
		dir:        dir,
	}
}

// open готовит goose и возвращает *sql.DB поверх пула
func (m *Migrator) open() (*sql.DB, error) {
	goose.SetBaseFS(m.migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	return stdlib.OpenDBFromPool(m.pool), nil
}

// Up применяет все миграции
func (m *Migrator) Up(ctx context.Context) error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, m.dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations applied successfully", "dir", m.dir)
	return nil
}

// Version возвращает текущую версию схемы
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	db, err := m.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return goose.GetDBVersionContext(ctx, db)
}

// RunMigrations запускает миграции если включено в конфигурации
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, cfg *config.DatabaseConfig, migrations fs.FS, dir string) error {
	if !cfg.AutoMigrate {
		logger.Info("Auto-migration is disabled")
		return nil
	}

	m := NewMigrator(pool, migrations, dir)
	if err := m.Up(ctx); err != nil {
		return err
	}

	version, err := m.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Schema version", "version", version)
	return nil
}

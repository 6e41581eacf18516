package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/certrenew/internal/models"
)

const bootstrapTimeout = 10 * time.Second

// Connect ensures the target database exists, opens it and runs migrations.
func Connect(ctx context.Context, dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	if err := ensureDatabase(ctx, dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(conn.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return conn, nil
}

// Migrate creates or updates the user, certificate and renewal tables.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.User{},
		&models.Certificate{},
		&models.Renewal{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

// maintenanceDSN points a postgres URL at the "postgres" maintenance database
// and returns the database name it originally targeted. Non-URL DSNs and URLs
// without a database name yield an empty name.
func maintenanceDSN(dsn string) (string, string, error) {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return "", "", nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", "", err
	}

	name := strings.TrimPrefix(parsed.Path, "/")
	if name == "" {
		return "", "", nil
	}

	parsed.Path = "/postgres"
	return parsed.String(), name, nil
}

// ensureDatabase creates the target database on first start.
func ensureDatabase(ctx context.Context, dsn string) error {
	adminDSN, name, err := maintenanceDSN(dsn)
	if err != nil || name == "" {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	admin, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return err
	}
	defer admin.Close()

	if err := admin.PingContext(ctx); err != nil {
		return fmt.Errorf("ping maintenance database: %w", err)
	}

	var exists bool
	if err := admin.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return fmt.Errorf("lookup database %q: %w", name, err)
	}
	if exists {
		return nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("create database %q: %w", name, err)
	}
	return nil
}

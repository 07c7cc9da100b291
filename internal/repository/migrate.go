package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "postgres" database/sql driver used by goose.
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/taskdeck/taskdeck/migrations"
)

// Migrate applies all pending schema migrations to the database at databaseURL.
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migration connection: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

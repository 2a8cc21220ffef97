// Package main provides a CLI tool for running database migrations.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/cryptofolio/internal/config"
	"github.com/cryptofolio/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var databaseURL, migrationsPath string
	switch *dbType {
	case "postgres":
		databaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.Database,
		)
		migrationsPath = "migrations/postgres"
	case "clickhouse":
		databaseURL = fmt.Sprintf(
			"clickhouse://%s:%s?username=%s&password=%s&database=%s&x-multi-statement=true",
			cfg.Database.ClickHouse.Host,
			cfg.Database.ClickHouse.Port,
			cfg.Database.ClickHouse.User,
			cfg.Database.ClickHouse.Password,
			cfg.Database.ClickHouse.Database,
		)
		migrationsPath = "migrations/clickhouse"
	default:
		log.Fatalf("Unknown database type: %s", *dbType)
	}

	if err := run(*dbType, *action, databaseURL, migrationsPath); err != nil {
		log.Fatalf("%s migration failed: %v", *dbType, err)
	}
}

func run(dbType, action, databaseURL, migrationsPath string) error {
	switch action {
	case "up":
		log.Printf("Running %s migrations...", dbType)
		if err := storage.RunMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		log.Printf("%s migrations completed successfully", dbType)

	case "down":
		log.Printf("Rolling back %s migration...", dbType)
		if err := storage.RollbackMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		log.Printf("%s migration rolled back successfully", dbType)

	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, migrationsPath)
		if err != nil {
			return err
		}
		log.Printf("Current %s migration version: %d (dirty: %v)", dbType, version, dirty)

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}

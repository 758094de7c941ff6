// Package main is the entry point for the Singboard migration tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/config"
	"github.com/singboard/singboard/internal/repository/postgres"
	"github.com/singboard/singboard/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// migrator is satisfied by both database backends.
type migrator interface {
	Migrate(ctx context.Context) error
	MigrationVersion(ctx context.Context) (int, error)
	Close() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	switch os.Args[1] {
	case "up":
		withDB(func(ctx context.Context, db migrator) error {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			version, err := db.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Migrations applied. Schema version: %d\n", version)
			return nil
		})

	case "status":
		withDB(func(ctx context.Context, db migrator) error {
			version, err := db.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Schema version: %d\n", version)
			return nil
		})

	case "version":
		fmt.Printf("Singboard Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func withDB(fn func(ctx context.Context, db migrator) error) {
	ctx := context.Background()
	cfg := config.MustLoad("")

	db, err := open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := fn(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func open(ctx context.Context, cfg *config.Config) (migrator, error) {
	logger := zerolog.Nop()

	switch cfg.Database.Driver {
	case "postgres":
		return postgres.NewDB(ctx, cfg.Database, logger)
	case "sqlite":
		return sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`Singboard Migration Tool

Usage:
  singboard-migrate <command>

Commands:
  up          Apply all pending migrations
  status      Print the current schema version
  version     Print version information
  help        Show this help message`)
}

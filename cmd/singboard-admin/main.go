// Package main is the entry point for the Singboard admin CLI.
// This tool provides administrative commands for managing users, seeding
// the database, and clearing the page cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/cache/memory"
	"github.com/singboard/singboard/internal/cache/redis"
	"github.com/singboard/singboard/internal/config"
	"github.com/singboard/singboard/internal/repository"
	"github.com/singboard/singboard/internal/repository/postgres"
	"github.com/singboard/singboard/internal/repository/sqlite"
	"github.com/singboard/singboard/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("Singboard Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = userCommand(args)

	case "seed":
		err = seedCommand()

	case "cache":
		err = cacheCommand(args)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func userCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: singboard-admin user <create|list|delete> [arguments]")
	}

	ctx := context.Background()
	cfg := config.MustLoad("")
	users, db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ExitOnError)
		username := fs.String("username", "", "username (required)")
		email := fs.String("email", "", "email address (required)")
		password := fs.String("password", "", "password (blank leaves the account unable to log in)")
		admin := fs.Bool("admin", false, "grant admin privileges")
		fs.Parse(args[1:])

		if *username == "" || *email == "" {
			return fmt.Errorf("--username and --email are required")
		}

		user, err := users.Create(ctx, service.CreateUserInput{
			Username: *username,
			Email:    *email,
			Password: *password,
			IsAdmin:  *admin,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created user %d (%s)\n", user.ID, user.Username)
		return nil

	case "list":
		all, err := users.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tADMIN\tACTIVE\tCREATED")
		for _, u := range all {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%s\n",
				u.ID, u.Username, u.Email, u.IsAdmin, u.IsActive,
				u.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: singboard-admin user delete <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[1])
		}
		if err := users.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted user %d\n", id)
		return nil

	default:
		return fmt.Errorf("unknown user subcommand %q", args[0])
	}
}

// seedCommand creates the sample admin/admin account on an empty database.
// Refuses unless example content is enabled, so a production deployment
// can't accidentally get a well-known credential.
func seedCommand() error {
	ctx := context.Background()
	cfg := config.MustLoad("")

	if !cfg.Auth.EnableExamples {
		fmt.Println("Example content is disabled; skipping seed.")
		return nil
	}

	users, db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := users.SeedAdminUser(ctx)
	if err != nil {
		return err
	}
	if !created {
		fmt.Println("Database already has users; skipping seed.")
		return nil
	}
	fmt.Println("Sample user created: admin / admin")
	return nil
}

func cacheCommand(args []string) error {
	if len(args) < 1 || args[0] != "clear" {
		return fmt.Errorf("usage: singboard-admin cache clear")
	}

	ctx := context.Background()
	cfg := config.MustLoad("")

	var cache repository.Cache
	if cfg.Redis.Enabled {
		c, err := redis.NewCache(ctx, cfg.Redis, zerolog.Nop())
		if err != nil {
			return err
		}
		defer c.Close()
		cache = c
	} else {
		// The in-memory cache is per-process, so there is nothing shared
		// to clear; this still exercises the same code path.
		c := memory.NewCache()
		defer c.Stop()
		cache = c
	}

	if err := cache.Delete(ctx, repository.CacheKey{}.LandingPage()); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}

// connect opens the configured database backend and returns a wired
// user service. Migrations run first so CLI commands work on a fresh file.
func connect(ctx context.Context, cfg *config.Config) (*service.UserService, repository.DatabaseHealth, error) {
	logger := zerolog.Nop()

	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return service.NewUserService(postgres.NewUserRepository(db), logger), db, nil

	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return service.NewUserService(sqlite.NewUserRepository(db), logger), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`Singboard Admin CLI

Usage:
  singboard-admin <command> [arguments]

Commands:
  user        Manage users (create, list, delete)
  seed        Seed the database with a sample admin account
  cache       Manage the page cache (clear)
  version     Print version information
  help        Show this help message

Examples:
  singboard-admin user create --username admin --email admin@example.com --password secret --admin
  singboard-admin user list
  singboard-admin user delete 3
  singboard-admin seed
  singboard-admin cache clear

Use "singboard-admin <command> --help" for more information about a command.`)
}

// fuelsync-admin runs schema migrations and seeds the default plans and
// super admin account.
//
// Usage:
//
//	fuelsync-admin -config config/base.yaml migrate up
//	fuelsync-admin -config config/base.yaml migrate down
//	fuelsync-admin -config config/base.yaml migrate status
//	fuelsync-admin -config config/base.yaml seed -admin-email a@b.c -admin-password secret
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/logging"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/store"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config/base.yaml", "path to the YAML configuration file")
	logLevel := flag.String("log-level", "info", "zerolog level")
	flag.Parse()

	logger := logging.Setup("fuelsync-admin", version, *logLevel)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if cfg.Postgres.Host == "" || cfg.Postgres.Database == "" || cfg.Postgres.User == "" {
		logger.Fatal().Msg("postgres host, database, and user are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer db.Close()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	switch args[0] {
	case "migrate":
		if len(args) < 2 {
			usage()
		}
		switch args[1] {
		case "up":
			if err := db.MigrateUp(ctx); err != nil {
				logger.Fatal().Err(err).Msg("migrate up")
			}
			logger.Info().Msg("migrations applied")
		case "down":
			if err := db.MigrateDown(ctx); err != nil {
				logger.Fatal().Err(err).Msg("migrate down")
			}
			logger.Info().Msg("last migration rolled back")
		case "status":
			status, err := db.Status(ctx)
			if err != nil {
				logger.Fatal().Err(err).Msg("migration status")
			}
			for _, m := range status {
				state := "pending"
				if m.Applied {
					state = "applied"
				}
				fmt.Printf("%3d  %-30s %s\n", m.Version, m.Name, state)
			}
		default:
			usage()
		}

	case "seed":
		seedFlags := flag.NewFlagSet("seed", flag.ExitOnError)
		email := seedFlags.String("admin-email", os.Getenv("ADMIN_EMAIL"), "super admin email")
		password := seedFlags.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "super admin password")
		_ = seedFlags.Parse(args[1:])
		if *email == "" || *password == "" {
			logger.Fatal().Msg("admin-email and admin-password (or ADMIN_EMAIL / ADMIN_PASSWORD) are required")
		}
		if err := db.Seed(ctx, *email, *password); err != nil {
			logger.Fatal().Err(err).Msg("seed")
		}
		logger.Info().Str("email", *email).Msg("default plans and super admin seeded")

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fuelsync-admin [-config path] migrate up|down|status")
	fmt.Fprintln(os.Stderr, "       fuelsync-admin [-config path] seed -admin-email EMAIL -admin-password PASSWORD")
	os.Exit(2)
}
